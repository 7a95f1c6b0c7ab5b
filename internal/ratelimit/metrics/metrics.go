package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	BreakerState  prometheus.Gauge
	StoreFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "clockgate_ratelimit_degraded",
			Help: "1 while the shared rate limit store is bypassed for the in-memory fallback",
		}),
		StoreFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "clockgate_ratelimit_store_failures_total",
			Help: "Rate limit store errors",
		}),
	}
}

func (m *Metrics) IncrementDecision(class, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}

func (m *Metrics) IncrementStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}
