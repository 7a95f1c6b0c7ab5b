package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for statistics computation.
type Metrics struct {
	// Computations by scope: identity, organization
	Computations *prometheus.CounterVec

	// Organization requests answered by an in-flight computation
	SharedComputations prometheus.Counter

	ComputeDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Computations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_stats_computations_total",
			Help: "Statistics computations by scope",
		}, []string{"scope"}),
		SharedComputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "clockgate_stats_shared_computations_total",
			Help: "Organization statistics requests served by a concurrent computation",
		}),
		ComputeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clockgate_stats_compute_duration_seconds",
			Help:    "Time spent loading and folding records",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
	}
}

func (m *Metrics) ObserveComputation(scope string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(scope).Inc()
	m.ComputeDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementShared() {
	if m != nil {
		m.SharedComputations.Inc()
	}
}
