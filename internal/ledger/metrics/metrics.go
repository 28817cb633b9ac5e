package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for ledger operations.
type Metrics struct {
	PaymentsRecorded prometheus.Counter
	AmountRecorded   prometheus.Counter
}

// New registers and returns ledger metrics collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PaymentsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "tuition_ledger_payments_recorded_total",
			Help: "Total number of payments recorded",
		}),
		// Counters cannot go down, so only non-negative amounts are added.
		AmountRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "tuition_ledger_amount_recorded_total",
			Help: "Sum of non-negative payment amounts recorded",
		}),
	}
}
