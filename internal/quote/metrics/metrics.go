package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the calculator surface.
type Metrics struct {
	QuotesComputed *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	ComputeLatency prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuotesComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loanbroker_quotes_total",
			Help: "Quotes served by outcome",
		}, []string{"outcome"}), // outcome: "ok", "zero", "rejected", "overflow"
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loanbroker_quote_cache_lookups_total",
			Help: "Quote cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
		ComputeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanbroker_quote_compute_duration_seconds",
			Help:    "Duration of quote computation including cache access",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncrementQuote(outcome string) {
	if m != nil {
		m.QuotesComputed.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveComputeLatency(start time.Time) {
	if m != nil {
		m.ComputeLatency.Observe(time.Since(start).Seconds())
	}
}
