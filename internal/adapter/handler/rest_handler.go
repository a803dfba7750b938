package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hive-corporation/iocscan/internal/adapter/eventbus"
	"github.com/hive-corporation/iocscan/internal/adapter/exporter"
	"github.com/hive-corporation/iocscan/internal/adapter/notifier"
	"github.com/hive-corporation/iocscan/internal/adapter/risk"
	"github.com/hive-corporation/iocscan/internal/core/domain"
	"github.com/hive-corporation/iocscan/internal/core/ports"
)

var (
	metricsOnce sync.Once

	scanIOCsExtracted *prometheus.CounterVec
	scanDuration      prometheus.Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		scanIOCsExtracted = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_iocs_extracted_total",
				Help: "Total number of IOC records extracted, by type",
			},
			[]string{"type"},
		)

		scanDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scan_duration_seconds",
				Help:    "Duration of text scans in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
		)
	})
}

type RestHandler struct {
	repo          ports.IOCRepository
	riskAnalyzer  *risk.Analyzer
	publisher     *eventbus.Publisher
	slackNotifier *notifier.SlackNotifier
	cefExporter   *exporter.CEFExporter
	stixExporter  *exporter.STIXExporter
}

func NewRestHandler(repo ports.IOCRepository, riskAnalyzer *risk.Analyzer, publisher *eventbus.Publisher, slackNotifier *notifier.SlackNotifier) *RestHandler {
	initMetrics()
	return &RestHandler{
		repo:          repo,
		riskAnalyzer:  riskAnalyzer,
		publisher:     publisher,
		slackNotifier: slackNotifier,
		cefExporter:   exporter.NewCEFExporter(),
		stixExporter:  exporter.NewSTIXExporter(),
	}
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "iocscan-api",
	}
	writeJSON(w, http.StatusOK, response)
}

type scanRequest struct {
	Text string `json:"text"`
}

// Scan extracts IOC records from posted text. With ?risk=true each
// record is additionally scored by the risk analyzer.
func (h *RestHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var payload scanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.Text == "" {
		writeError(w, http.StatusBadRequest, "missing 'text' field")
		return
	}

	start := time.Now()
	iocs := domain.Detect(payload.Text)
	scanDuration.Observe(time.Since(start).Seconds())

	for _, ioc := range iocs {
		scanIOCsExtracted.WithLabelValues(string(ioc.Type)).Inc()
	}

	scanID := uuid.NewString()
	withRisk := r.URL.Query().Get("risk") == "true"

	if withRisk && h.riskAnalyzer != nil && h.riskAnalyzer.IsEnabled() && len(iocs) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		scored, err := h.riskAnalyzer.Analyze(ctx, iocs)
		if err != nil {
			log.Printf("⚠️ Risk analysis failed for scan %s: %v", scanID, err)
		} else {
			iocs = scored
		}
	}

	if h.repo != nil && len(iocs) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := h.repo.SaveBatch(ctx, scanID, "api", iocs); err != nil {
			log.Printf("⚠️ Failed to persist scan %s: %v", scanID, err)
		}
	}

	if h.publisher != nil && len(iocs) > 0 {
		if err := h.publisher.PublishScan(scanID, iocs); err != nil {
			log.Printf("⚠️ Failed to publish scan %s: %v", scanID, err)
		}
	}

	if h.slackNotifier != nil && hasHighRisk(iocs) {
		if err := h.slackNotifier.NotifyHighRiskScan(scanID, iocs); err != nil {
			log.Printf("⚠️ Failed to send Slack notification for scan %s: %v", scanID, err)
		}
	}

	response := map[string]interface{}{
		"scan_id": scanID,
		"count":   len(iocs),
		"iocs":    iocs,
	}
	if iocs == nil {
		response["iocs"] = []domain.IOC{}
	}
	writeJSON(w, http.StatusOK, response)
}

// Validate checks one value against one IOC type's full-match pattern.
func (h *RestHandler) Validate(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		writeError(w, http.StatusBadRequest, "missing 'value' parameter")
		return
	}

	iocType := domain.IOCType(r.URL.Query().Get("type"))
	if !iocType.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown 'type' parameter")
		return
	}

	response := map[string]interface{}{
		"value": value,
		"type":  iocType,
		"valid": domain.Validate(value, iocType),
	}
	writeJSON(w, http.StatusOK, response)
}

type exportRequest struct {
	Text string       `json:"text,omitempty"`
	IOCs []domain.IOC `json:"iocs,omitempty"`
}

// Export renders records in a SIEM-friendly format. The body carries
// either raw text to scan or previously scanned records.
func (h *RestHandler) Export(w http.ResponseWriter, r *http.Request) {
	var payload exportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	iocs := payload.IOCs
	if len(iocs) == 0 && payload.Text != "" {
		iocs = domain.Detect(payload.Text)
	}
	if len(iocs) == 0 {
		writeError(w, http.StatusBadRequest, "nothing to export: provide 'text' or 'iocs'")
		return
	}

	scanID := uuid.NewString()

	switch format := r.URL.Query().Get("format"); format {
	case "txt", "":
		data := exporter.ExportText(iocs, r.URL.Query().Get("sep"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(data)); err != nil {
			log.Printf("Error writing text export response: %v", err)
		}

	case "cef":
		data := h.cefExporter.Export(scanID, iocs)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(data)); err != nil {
			log.Printf("Error writing CEF export response: %v", err)
		}

	case "stix":
		data, err := h.stixExporter.Export(iocs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build STIX bundle")
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(data)); err != nil {
			log.Printf("Error writing STIX export response: %v", err)
		}

	default:
		writeError(w, http.StatusBadRequest, "unsupported format (use 'txt', 'cef', or 'stix')")
	}
}

// CheckIOC looks up previously persisted records for one value.
func (h *RestHandler) CheckIOC(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	value := r.URL.Query().Get("value")
	if value == "" {
		writeError(w, http.StatusBadRequest, "missing 'value' parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	iocs, err := h.repo.FindByValue(ctx, value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query records")
		return
	}

	response := map[string]interface{}{
		"value":  value,
		"exists": len(iocs) > 0,
		"count":  len(iocs),
		"iocs":   iocs,
	}
	if iocs == nil {
		response["iocs"] = []domain.IOC{}
	}
	writeJSON(w, http.StatusOK, response)
}

// RecentIOCs returns records persisted within the given window.
func (h *RestHandler) RecentIOCs(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	since := r.URL.Query().Get("since")
	if since == "" {
		since = "24h"
	}
	window, err := time.ParseDuration(since)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use format like '24h')")
		return
	}

	limit := 1000
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	iocs, err := h.repo.FindSince(ctx, time.Now().Add(-window), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query records")
		return
	}

	response := map[string]interface{}{
		"count": len(iocs),
		"iocs":  iocs,
	}
	if iocs == nil {
		response["iocs"] = []domain.IOC{}
	}
	writeJSON(w, http.StatusOK, response)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func hasHighRisk(iocs []domain.IOC) bool {
	for _, ioc := range iocs {
		if ioc.RiskLevel == "high" || ioc.RiskLevel == "critical" {
			return true
		}
	}
	return false
}
