package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for identity operations.
type Metrics struct {
	UsersRegistered  prometheus.Counter
	DuplicateEmails  prometheus.Counter
	RegisterDuration prometheus.Histogram
}

// New registers and returns identity metrics collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "tuition_identity_users_registered_total",
			Help: "Total number of users registered",
		}),
		DuplicateEmails: f.NewCounter(prometheus.CounterOpts{
			Name: "tuition_identity_duplicate_email_total",
			Help: "Registrations rejected because the email was already registered",
		}),
		RegisterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tuition_identity_register_duration_seconds",
			Help:    "Time to hash a password and store a new user",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
