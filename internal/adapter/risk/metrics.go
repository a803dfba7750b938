package risk

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// riskRequestsTotal tracks risk-analysis requests by status and reason
	riskRequestsTotal *prometheus.CounterVec

	// riskDuration tracks latency of batch risk-analysis calls
	riskDuration prometheus.Histogram

	// riskGuardrailsTotal tracks guardrail activations
	riskGuardrailsTotal *prometheus.CounterVec

	// riskAPIErrorsTotal tracks upstream API errors by type
	riskAPIErrorsTotal *prometheus.CounterVec

	// riskScoreDistribution tracks the distribution of assigned risk scores
	riskScoreDistribution prometheus.Histogram

	// riskMergeMatchesTotal tracks which matcher reconciled each result
	riskMergeMatchesTotal *prometheus.CounterVec
)

// InitMetrics registers all Prometheus metrics for risk analysis.
// This should be called once at application startup.
func InitMetrics() {
	metricsOnce.Do(func() {
		riskRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_analysis_requests_total",
				Help: "Total number of risk-analysis requests by status and reason",
			},
			[]string{"status", "reason"},
		)

		riskDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "risk_analysis_duration_seconds",
				Help:    "Duration of batch risk-analysis calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
		)

		riskGuardrailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_analysis_guardrails_total",
				Help: "Total number of guardrail activations by type and action",
			},
			[]string{"type", "action"},
		)

		riskAPIErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_api_errors_total",
				Help: "Total number of risk API errors by error type",
			},
			[]string{"error_type"},
		)

		riskScoreDistribution = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "risk_score_distribution",
				Help:    "Distribution of assigned risk scores (0-100)",
				Buckets: []float64{10, 25, 40, 50, 60, 70, 80, 90, 100},
			},
		)

		riskMergeMatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_merge_matches_total",
				Help: "Count of merged risk results by the matcher that reconciled them",
			},
			[]string{"matcher"},
		)
	})
}

// RecordRequest records a risk-analysis request with status and reason.
// status: "success", "error", "skipped"
func RecordRequest(status, reason string) {
	if riskRequestsTotal != nil {
		riskRequestsTotal.WithLabelValues(status, reason).Inc()
	}
}

// RecordGuardrail records a guardrail activation.
// guardType: "pre", "post"; action: "skip", "clamp", "derive"
func RecordGuardrail(guardType, action string) {
	if riskGuardrailsTotal != nil {
		riskGuardrailsTotal.WithLabelValues(guardType, action).Inc()
	}
}

// RecordError records an upstream API error by type.
// errorType: "timeout", "auth", "rate_limit", "server_error", "connection", "parse", "circuit_open"
func RecordError(errorType string) {
	if riskAPIErrorsTotal != nil {
		riskAPIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}

// RecordScore records one assigned risk score.
func RecordScore(score int) {
	if riskScoreDistribution != nil {
		riskScoreDistribution.Observe(float64(score))
	}
}

// RecordMergeMatch records which matcher reconciled a result with its record.
func RecordMergeMatch(matcher string) {
	if riskMergeMatchesTotal != nil {
		riskMergeMatchesTotal.WithLabelValues(matcher).Inc()
	}
}

// Timer measures the duration of one risk-analysis call.
type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration() {
	if t != nil && riskDuration != nil {
		riskDuration.Observe(time.Since(t.start).Seconds())
	}
}
