package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/c360studio/speclint/validation"
)

var (
	// ValidationCount counts validation runs by document kind and outcome.
	ValidationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speclint_validations_total",
			Help: "Total number of document validations",
		},
		[]string{"kind", "valid"},
	)

	// ValidationDuration observes validation latency by document kind.
	ValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "speclint_validation_duration_seconds",
			Help: "Document validation duration in seconds",
		},
		[]string{"kind"},
	)

	// IssueCount counts reported issues by severity.
	IssueCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speclint_issues_total",
			Help: "Total number of validation issues reported",
		},
		[]string{"severity"},
	)

	// InFlightRequests tracks HTTP requests currently being served.
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "speclint_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// MatrixCount counts traceability matrix builds.
	MatrixCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "speclint_matrix_builds_total",
			Help: "Total number of traceability matrix builds",
		},
	)
)

func recordValidation(res *validation.Result, elapsed time.Duration) {
	valid := "false"
	if res.IsValid {
		valid = "true"
	}
	ValidationCount.WithLabelValues(string(res.Kind), valid).Inc()
	ValidationDuration.WithLabelValues(string(res.Kind)).Observe(elapsed.Seconds())
	for _, issue := range res.Issues {
		IssueCount.WithLabelValues(string(issue.Severity)).Inc()
	}
}
