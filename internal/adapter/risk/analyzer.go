package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// Result is the model's assessment of a single indicator.
type Result struct {
	ID                 string `json:"id"`
	Value              string `json:"value"`
	RiskScore          int    `json:"risk_score"`          // 0-100
	RiskLevel          string `json:"risk_level"`          // critical, high, medium, low
	Explanation        string `json:"explanation"`         // Why this score was assigned
	ThreatIntelligence string `json:"threat_intelligence"` // Known campaigns, families, context
}

// Analyzer scores extracted indicators with an LLM behind a resilient client.
type Analyzer struct {
	apiURL  string
	apiKey  string
	model   string
	client  *ResilientClient
	config  GuardrailConfig
	enabled bool
}

// NewAnalyzer creates an analyzer configured from the environment:
//
//	RISK_API_KEY           API key (falls back to OPENAI_API_KEY)
//	RISK_ANALYSIS_ENABLED  "true" to enable scoring
//	RISK_API_URL           chat-completions endpoint (default OpenAI)
//	RISK_MODEL             model name (default gpt-4o-mini)
func NewAnalyzer() *Analyzer {
	apiKey := os.Getenv("RISK_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY") // Fallback to OPENAI_API_KEY
	}

	enabled := os.Getenv("RISK_ANALYSIS_ENABLED")

	apiURL := os.Getenv("RISK_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/chat/completions" // Default to OpenAI
	}

	model := os.Getenv("RISK_MODEL")
	if model == "" {
		model = "gpt-4o-mini" // Fast and cost-effective
	}

	return &Analyzer{
		apiURL:  apiURL,
		apiKey:  apiKey,
		model:   model,
		client:  NewResilientClient(),
		config:  DefaultGuardrailConfig(),
		enabled: enabled == "true" && apiKey != "",
	}
}

// IsEnabled returns whether risk analysis is enabled
func (a *Analyzer) IsEnabled() bool {
	return a.enabled
}

// Analyze scores the batch and returns the records annotated with
// risk fields. Records the model cannot be matched against keep their
// original fields untouched.
func (a *Analyzer) Analyze(ctx context.Context, iocs []domain.IOC) ([]domain.IOC, error) {
	timer := StartTimer()
	defer timer.ObserveDuration()

	if !a.enabled {
		return nil, fmt.Errorf("risk analysis is not enabled")
	}
	if len(iocs) == 0 {
		return iocs, nil
	}

	remaining, decided := ApplyPreGuardrails(iocs, a.config)

	var results []Result
	if len(remaining) > 0 {
		prompt := a.buildPrompt(remaining)

		response, err := a.callModel(ctx, prompt)
		if err != nil {
			RecordRequest("error", "api")
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded") {
				RecordError("timeout")
			} else if strings.Contains(err.Error(), "circuit breaker") {
				RecordError("circuit_open")
			}
			return nil, fmt.Errorf("failed to call risk API: %w", err)
		}

		results, err = a.parseResponse(response)
		if err != nil {
			RecordRequest("error", "parse")
			RecordError("parse")
			return nil, fmt.Errorf("failed to parse risk API response: %w", err)
		}

		RecordRequest("success", "api")
	} else {
		RecordRequest("skipped", "pre_filter")
	}

	results = append(results, decided...)

	return MergeResults(iocs, results, a.config), nil
}

func (a *Analyzer) buildPrompt(iocs []domain.IOC) string {
	var sb strings.Builder

	sb.WriteString("You are a cybersecurity analyst. Assess the risk of each of the following indicators of compromise extracted from a threat report.\n\n")

	sb.WriteString("**Indicators:**\n")
	for i, ioc := range iocs {
		sb.WriteString(fmt.Sprintf("%d. ID: %s, Type: %s, Value: %s", i+1, ioc.ID, ioc.Type, ioc.Value))
		if ioc.OriginalValue != "" {
			sb.WriteString(fmt.Sprintf(" (appeared de-fanged as %q)", ioc.OriginalValue))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n**Task:**\n")
	sb.WriteString("Score every indicator and respond with a JSON array in the following format:\n")
	sb.WriteString("```json\n")
	sb.WriteString("[\n")
	sb.WriteString("  {\n")
	sb.WriteString("    \"id\": \"the indicator ID exactly as given\",\n")
	sb.WriteString("    \"value\": \"the indicator value exactly as given\",\n")
	sb.WriteString("    \"risk_score\": 0-100,\n")
	sb.WriteString("    \"risk_level\": \"critical|high|medium|low\",\n")
	sb.WriteString("    \"explanation\": \"Brief reason for the score\",\n")
	sb.WriteString("    \"threat_intelligence\": \"Known campaigns, malware families or context, if any\"\n")
	sb.WriteString("  }\n")
	sb.WriteString("]\n")
	sb.WriteString("```\n\n")

	sb.WriteString("**Important Guidelines:**\n")
	sb.WriteString("1. Include every indicator exactly once, copying its ID and value verbatim\n")
	sb.WriteString("2. Indicators that appeared de-fanged were deliberately neutered by the report author and deserve elevated scores\n")
	sb.WriteString("3. File hashes of known malware and C2 addresses score 80+\n")
	sb.WriteString("4. Generic filenames and well-known public infrastructure score below 40\n")
	sb.WriteString("5. When uncertain, score 40-60 and say so in the explanation\n")

	return sb.String()
}

func (a *Analyzer) callModel(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": a.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are an expert cybersecurity analyst. Score indicators of compromise and respond with structured JSON only.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": 0.3, // Lower temperature for more consistent scoring
		"max_tokens":  2000,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("risk API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in risk API response")
	}

	return response.Choices[0].Message.Content, nil
}

func (a *Analyzer) parseResponse(response string) ([]Result, error) {
	// Extract JSON from markdown code blocks if present
	jsonStr := response
	if idx := strings.Index(response, "```json"); idx != -1 {
		jsonStr = response[idx+7:]
		if endIdx := strings.Index(jsonStr, "```"); endIdx != -1 {
			jsonStr = jsonStr[:endIdx]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		jsonStr = response[idx+3:]
		if endIdx := strings.Index(jsonStr, "```"); endIdx != -1 {
			jsonStr = jsonStr[:endIdx]
		}
	}

	jsonStr = strings.TrimSpace(jsonStr)

	var results []Result
	if err := json.Unmarshal([]byte(jsonStr), &results); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w (response: %s)", err, jsonStr)
	}

	return results, nil
}
