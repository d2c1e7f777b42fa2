// Package metrics defines and registers all custom Prometheus metrics for
// the facility management API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at package init via
// promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "facility"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "locked", "otp_required", "otp_invalid"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// TokenRefreshTotal counts refresh-token exchanges.
// Label:
//   - result: "success" or "rejected"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of refresh-token exchanges, labelled by result.",
	},
	[]string{"result"},
)

// ── Permit metrics ────────────────────────────────────────────────────────────

// PermitsUploadedTotal counts newly uploaded permits.
// Label:
//   - facility_type: the facility type the permit belongs to
var PermitsUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permits_uploaded_total",
		Help:      "Total number of permits uploaded, by facility type.",
	},
	[]string{"facility_type"},
)

// PermitsRenewedTotal counts permit renewals (supersessions).
var PermitsRenewedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permits_renewed_total",
		Help:      "Total number of permit renewals.",
	},
)

// ExpiryTransitionsTotal counts permits crossing into a new derived status
// during the background expiry sweep.
// Label:
//   - status: "expiring" or "expired"
var ExpiryTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expiry_transitions_total",
		Help:      "Total number of permit status transitions recorded by the expiry sweep.",
	},
	[]string{"status"},
)

// ExpirySweepDuration measures how long a full expiry sweep takes.
var ExpirySweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "expiry_sweep_duration_seconds",
		Help:      "Duration of a full permit expiry sweep.",
		Buckets:   prometheus.DefBuckets,
	},
)
