// Package metrics defines the Prometheus collectors for the gateway's
// security pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dokq_requests_blocked_total",
			Help: "Requests rejected by the sanitization gate, by reason",
		},
		[]string{"reason"},
	)

	InjectionSignatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dokq_injection_signatures_total",
			Help: "Injection-signature scanner findings (telemetry, not blocking)",
		},
		[]string{"pattern"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dokq_auth_attempts_total",
			Help: "Bearer credential resolutions, by result",
		},
		[]string{"result"},
	)

	CSRFValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dokq_csrf_validations_total",
			Help: "CSRF validations on mutating requests, by result",
		},
		[]string{"result"},
	)

	CSRFTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dokq_csrf_tokens_issued_total",
			Help: "CSRF tokens issued (including rotations)",
		},
	)

	RoleDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dokq_role_denials_total",
			Help: "Requests denied by the role authorization gate",
		},
	)
)
