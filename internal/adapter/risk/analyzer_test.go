package risk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

func TestBuildPrompt(t *testing.T) {
	analyzer := &Analyzer{}

	iocs := []domain.IOC{
		{
			ID:    "IPv4-0000abcd-1-aaaa",
			Type:  domain.IPv4,
			Value: "203.0.113.77",
		},
		{
			ID:            "Defanged-URL-0000ef01-2-bbbb",
			Type:          domain.DefangedURL,
			Value:         "http://evil.example/payload",
			OriginalValue: "hxxp://evil[.]example/payload",
		},
	}

	prompt := analyzer.buildPrompt(iocs)

	if !strings.Contains(prompt, "IPv4-0000abcd-1-aaaa") {
		t.Error("Prompt should contain record IDs")
	}

	if !strings.Contains(prompt, "203.0.113.77") {
		t.Error("Prompt should contain indicator values")
	}

	if !strings.Contains(prompt, "hxxp://evil[.]example/payload") {
		t.Error("Prompt should mention the de-fanged form")
	}

	if !strings.Contains(prompt, "Important Guidelines") {
		t.Error("Prompt should contain guidelines")
	}

	if !strings.Contains(prompt, "risk_score") {
		t.Error("Prompt should describe the expected JSON shape")
	}
}

func TestParseResponse(t *testing.T) {
	analyzer := &Analyzer{}

	tests := []struct {
		name     string
		response string
		wantErr  bool
		wantLen  int
	}{
		{
			name: "Valid JSON in markdown",
			response: "```json\n" +
				`[{"id":"a","value":"203.0.113.77","risk_score":85,"risk_level":"critical","explanation":"Known C2"}]` +
				"\n```",
			wantErr: false,
			wantLen: 1,
		},
		{
			name:     "Valid JSON without markdown",
			response: `[{"id":"a","value":"x","risk_score":30,"risk_level":"low","explanation":"Generic"}]`,
			wantErr:  false,
			wantLen:  1,
		},
		{
			name:     "Invalid JSON",
			response: "not a valid json",
			wantErr:  true,
		},
		{
			name: "JSON with extra text",
			response: "Here is my assessment:\n```json\n" +
				`[{"id":"a","risk_score":50},{"id":"b","risk_score":70}]` +
				"\n```\nHope this helps!",
			wantErr: false,
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := analyzer.parseResponse(tt.response)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if len(results) != tt.wantLen {
				t.Errorf("Expected %d results, got %d", tt.wantLen, len(results))
			}
		})
	}
}

func TestAnalyzeDisabled(t *testing.T) {
	analyzer := &Analyzer{enabled: false}

	_, err := analyzer.Analyze(context.Background(), []domain.IOC{{ID: "x", Value: "y"}})
	if err == nil {
		t.Error("Expected error when analysis is disabled")
	}
}

func TestAnalyzeAgainstFakeServer(t *testing.T) {
	InitMetrics()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}

		var reqBody struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}

		content := "```json\n" +
			`[{"id":"IPv4-1","value":"203.0.113.77","risk_score":88,"risk_level":"critical","explanation":"Reported C2 address","threat_intelligence":"Seen in botnet campaigns"}]` +
			"\n```"

		response := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	analyzer := &Analyzer{
		apiURL:  server.URL,
		apiKey:  "test-key",
		model:   "gpt-4o-mini",
		client:  NewResilientClient(),
		config:  DefaultGuardrailConfig(),
		enabled: true,
	}

	iocs := []domain.IOC{
		{ID: "IPv4-1", Type: domain.IPv4, Value: "203.0.113.77"},
	}

	merged, err := analyzer.Analyze(context.Background(), iocs)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(merged) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(merged))
	}

	if merged[0].RiskScore == nil || *merged[0].RiskScore != 88 {
		t.Errorf("Expected risk score 88, got %v", merged[0].RiskScore)
	}

	if merged[0].RiskLevel != "critical" {
		t.Errorf("Expected risk level critical, got %q", merged[0].RiskLevel)
	}

	if merged[0].ThreatIntelligence == "" {
		t.Error("Expected threat intelligence to be populated")
	}
}

func TestAnalyzeAllKnownGoodSkipsAPI(t *testing.T) {
	InitMetrics()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := &Analyzer{
		apiURL:  server.URL,
		apiKey:  "test-key",
		client:  NewResilientClient(),
		config:  DefaultGuardrailConfig(),
		enabled: true,
	}

	iocs := []domain.IOC{
		{ID: "URL-1", Type: domain.URL, Value: "https://update.microsoft.com/check"},
	}

	merged, err := analyzer.Analyze(context.Background(), iocs)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if called {
		t.Error("API should not be called when all indicators are known good")
	}

	if merged[0].RiskScore == nil || *merged[0].RiskScore != 5 {
		t.Errorf("Expected known-good score 5, got %v", merged[0].RiskScore)
	}

	if merged[0].RiskLevel != "low" {
		t.Errorf("Expected risk level low, got %q", merged[0].RiskLevel)
	}
}
