// Package metrics declares the Prometheus metrics exported on /metrics.
// Everything registers with the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "faceauth"

// Result label values shared by the counters below.
const (
	ResultSuccess       = "success"
	ResultNoFace        = "extraction_failed"
	ResultNotRecognized = "not_recognized"
	ResultNoUsers       = "no_users"
	ResultStorageError  = "storage_error"
	ResultUpstreamError = "upstream_error"
	ResultInvalidInput  = "invalid_input"
)

// RegistrationsTotal counts /registrar outcomes.
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// AuthenticationsTotal counts /autenticar outcomes.
var AuthenticationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentications_total",
		Help:      "Total number of authentication attempts, by result.",
	},
	[]string{"result"},
)

// MatchDistance observes the best Euclidean distance of every comparison that
// had at least one candidate.
var MatchDistance = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "match_distance",
		Help:      "Distance between the candidate face and the closest enrolled descriptor.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 1.0, 1.5},
	},
)

// ExtractionFailuresTotal counts descriptor extraction failures.
// Label reason: no_face, multiple_faces, undecodable_image, bad_descriptor.
var ExtractionFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_failures_total",
		Help:      "Total number of face descriptor extraction failures, by reason.",
	},
	[]string{"reason"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
