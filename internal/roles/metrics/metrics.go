package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts role switch attempts. Safe on a nil receiver.
type Metrics struct {
	Switches *prometheus.CounterVec
	Denials  *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Switches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_role_switches_total",
			Help: "Role switch requests by target role and outcome (switched, noop, conflict, error)",
		}, []string{"role", "outcome"}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_role_switch_denials_total",
			Help: "Role switches refused by target role and reason",
		}, []string{"role", "reason"}),
	}
}

func (m *Metrics) IncrementSwitch(role, outcome string) {
	if m == nil {
		return
	}
	m.Switches.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) IncrementDenial(role, reason string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(role, reason).Inc()
}
