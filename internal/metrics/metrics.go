package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResetSubmissions counts form submissions by result:
	// dispatched, too_short, mismatch, in_flight.
	ResetSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "password_reset_submissions_total",
			Help:      "Reset form submissions by validation result",
		},
		[]string{"result"},
	)

	// ResetOutcomes counts account API results: success, error.
	ResetOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "password_reset_outcomes_total",
			Help:      "Password reset outcomes reported by the account service",
		},
		[]string{"outcome"},
	)

	MountedForms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Name:      "password_reset_forms_mounted",
			Help:      "Reset forms currently mounted in this process",
		},
	)
)
