package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event delivery metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgwarden_events_total",
			Help: "Total number of events received",
		},
		[]string{"source", "status"},
	)

	StaleEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imgwarden_stale_events_dropped_total",
			Help: "Total number of events dropped by the staleness guard",
		},
	)

	// Classification metrics
	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgwarden_classification_duration_seconds",
			Help:    "Duration of safety classification calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClassificationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imgwarden_classification_errors_total",
			Help: "Total number of failed classification calls",
		},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgwarden_verdicts_total",
			Help: "Total number of moderation verdicts by outcome",
		},
		[]string{"verdict"},
	)

	// Remediation metrics
	RemediationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgwarden_remediation_duration_seconds",
			Help:    "Duration of the full remediation pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RemediationStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgwarden_remediation_stage_errors_total",
			Help: "Total number of remediation stage failures",
		},
		[]string{"stage"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgwarden_rate_limit_hits_total",
			Help: "Total number of rate limit hits on the push endpoint",
		},
		[]string{"key"},
	)

	// Audit metrics
	AuditWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imgwarden_audit_write_errors_total",
			Help: "Total number of failed audit record writes",
		},
	)
)
