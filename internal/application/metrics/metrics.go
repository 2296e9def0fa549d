package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks application lifecycle transitions.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Submitted   *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loanbroker_applications_transitions_total",
			Help: "Applications entering each status by loan type",
		}, []string{"status", "loan_type"}),
		Submitted: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loanbroker_applications_submitted_amount",
			Help:    "Requested amount of submitted applications",
			Buckets: prometheus.ExponentialBuckets(100_000, 2, 10),
		}, []string{"loan_type"}),
	}
}

func (m *Metrics) IncrementTransition(status, loanType string) {
	if m != nil {
		m.Transitions.WithLabelValues(status, loanType).Inc()
	}
}

func (m *Metrics) ObserveSubmittedAmount(loanType string, amount float64) {
	if m != nil {
		m.Submitted.WithLabelValues(loanType).Observe(amount)
	}
}
