package risk

import (
	"log"
	"strings"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// matcher pairs a model result with the record it belongs to. Matchers
// run in order and each one only sees results the earlier matchers did
// not claim, so a reliable key always beats a weaker one.
type matcher struct {
	name  string
	match func(ioc domain.IOC, result Result) bool
}

var matchers = []matcher{
	{
		name: "id",
		match: func(ioc domain.IOC, result Result) bool {
			return result.ID != "" && result.ID == ioc.ID
		},
	},
	{
		name: "value",
		match: func(ioc domain.IOC, result Result) bool {
			return result.Value != "" && result.Value == ioc.Value
		},
	},
	{
		name: "value_fold",
		match: func(ioc domain.IOC, result Result) bool {
			return result.Value != "" && strings.EqualFold(result.Value, ioc.Value)
		},
	},
	{
		// Positional fallback: leftover records pair with leftover
		// results in order.
		name: "position",
		match: func(domain.IOC, Result) bool {
			return true
		},
	},
}

// MergeResults reconciles model results with the records they score.
// Models paraphrase: they drop IDs, re-case values or reorder the
// array, so each record is matched by the strongest available key.
// Records with no matching result are returned unchanged.
func MergeResults(iocs []domain.IOC, results []Result, config GuardrailConfig) []domain.IOC {
	merged := make([]domain.IOC, len(iocs))
	copy(merged, iocs)

	claimed := make([]bool, len(results))

	for _, m := range matchers {
		for i := range merged {
			if merged[i].RiskScore != nil {
				continue
			}
			for j, result := range results {
				if claimed[j] {
					continue
				}
				if !m.match(merged[i], result) {
					continue
				}
				claimed[j] = true
				applyResult(&merged[i], result, config)
				RecordMergeMatch(m.name)
				break
			}
		}
	}

	for i := range merged {
		if merged[i].RiskScore == nil {
			log.Printf("⚠️ No risk result matched record %s (%s)", merged[i].ID, merged[i].Value)
		}
	}

	return merged
}

func applyResult(ioc *domain.IOC, result Result, config GuardrailConfig) {
	result = ApplyPostGuardrails(result, *ioc, config)

	score := result.RiskScore
	ioc.RiskScore = &score
	ioc.RiskLevel = result.RiskLevel
	ioc.RiskExplanation = result.Explanation
	ioc.ThreatIntelligence = result.ThreatIntelligence
}
