package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks captured leads by product.
type Metrics struct {
	LeadsCaptured *prometheus.CounterVec
	BotLeads      prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LeadsCaptured: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loanbroker_leads_captured_total",
			Help: "Leads captured by loan type",
		}, []string{"loan_type"}),
		BotLeads: factory.NewCounter(prometheus.CounterOpts{
			Name: "loanbroker_leads_bot_total",
			Help: "Leads submitted by user agents identified as crawlers",
		}),
	}
}

func (m *Metrics) IncrementCaptured(loanType string) {
	if m != nil {
		m.LeadsCaptured.WithLabelValues(loanType).Inc()
	}
}

func (m *Metrics) IncrementBot() {
	if m != nil {
		m.BotLeads.Inc()
	}
}
