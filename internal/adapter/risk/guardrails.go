package risk

import (
	"log"
	"strings"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// Guardrails provide rule-based pre-filters and post-validation around
// the model's risk scoring so obviously benign infrastructure never
// reaches the API and malformed model output never reaches callers.

// KnownGoodIndicators are indicators that belong to legitimate
// infrastructure and are scored without calling the model.
var KnownGoodIndicators = []string{
	// Microsoft domains
	"microsoft.com",
	"windowsupdate.com",
	"update.microsoft.com",
	"msftconnecttest.com",
	"office.com",
	"live.com",

	// Cloud providers
	"amazonaws.com",
	"cloudfront.net",
	"googleapis.com",
	"gstatic.com",
	"azure.com",

	// CDNs
	"cloudflare.com",
	"akamai.net",
	"fastly.net",

	// Common services
	"apple.com",
	"google.com",
	"mozilla.org",
	"ubuntu.com",
	"debian.org",
}

// GuardrailConfig controls guardrail behavior
type GuardrailConfig struct {
	KnownGoodScore     int // Score assigned to known-good indicators (default: 5)
	DefangedFloorScore int // Minimum score for records that were de-fanged in the source text (default: 60)
}

// DefaultGuardrailConfig returns the default configuration
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		KnownGoodScore:     5,
		DefangedFloorScore: 60,
	}
}

// ApplyPreGuardrails scores indicators that can be decided without the
// model. It returns the records still needing analysis and the results
// already decided.
func ApplyPreGuardrails(iocs []domain.IOC, config GuardrailConfig) (remaining []domain.IOC, decided []Result) {
	for _, ioc := range iocs {
		if isKnownGoodIndicator(ioc.Value) {
			log.Printf("⚡ Pre-filter: %s is known-good infrastructure, skipping analysis", ioc.Value)
			RecordGuardrail("pre", "skip")
			decided = append(decided, Result{
				ID:          ioc.ID,
				Value:       ioc.Value,
				RiskScore:   config.KnownGoodScore,
				RiskLevel:   "low",
				Explanation: "Indicator belongs to known legitimate infrastructure",
			})
			continue
		}
		remaining = append(remaining, ioc)
	}
	return remaining, decided
}

// ApplyPostGuardrails validates and adjusts one model result against
// the record it was matched to.
func ApplyPostGuardrails(result Result, ioc domain.IOC, config GuardrailConfig) Result {
	// Clamp score into range
	if result.RiskScore < 0 {
		RecordGuardrail("post", "clamp")
		result.RiskScore = 0
	}
	if result.RiskScore > 100 {
		RecordGuardrail("post", "clamp")
		result.RiskScore = 100
	}

	// A de-fanged indicator was deliberately neutered by whoever wrote
	// the source text. That is itself a signal.
	if ioc.OriginalValue != "" && result.RiskScore < config.DefangedFloorScore {
		log.Printf("⚠️ Guardrail: de-fanged indicator %s scored %d, raising to floor %d",
			ioc.Value, result.RiskScore, config.DefangedFloorScore)
		RecordGuardrail("post", "derive")
		result.RiskScore = config.DefangedFloorScore
	}

	// Derive level from score when missing or inconsistent
	expected := levelForScore(result.RiskScore)
	if normalizeLevel(result.RiskLevel) != expected {
		if result.RiskLevel != "" {
			RecordGuardrail("post", "derive")
		}
		result.RiskLevel = expected
	}

	RecordScore(result.RiskScore)
	return result
}

func isKnownGoodIndicator(value string) bool {
	valueLower := strings.ToLower(value)
	for _, good := range KnownGoodIndicators {
		if strings.Contains(valueLower, good) {
			return true
		}
	}
	return false
}

func levelForScore(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "critical", "high", "medium", "low":
		return level
	}
	return ""
}
