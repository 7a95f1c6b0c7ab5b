package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for device trust.
type Metrics struct {
	// Enrollment attempts by outcome: enrolled, capacity, duplicate, error
	Enrollments *prometheus.CounterVec

	// Trust checks by result: trusted, untrusted
	TrustChecks *prometheus.CounterVec

	DevicesMarkedLost prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Enrollments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_device_enrollments_total",
			Help: "Device enrollment attempts by outcome",
		}, []string{"outcome"}),
		TrustChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_device_trust_checks_total",
			Help: "Device trust checks by result",
		}, []string{"result"}),
		DevicesMarkedLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "clockgate_device_marked_lost_total",
			Help: "Devices flagged lost",
		}),
	}
}

func (m *Metrics) IncrementEnrollment(outcome string) {
	if m != nil {
		m.Enrollments.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTrustCheck(trusted bool) {
	if m == nil {
		return
	}
	result := "untrusted"
	if trusted {
		result = "trusted"
	}
	m.TrustChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementMarkedLost() {
	if m != nil {
		m.DevicesMarkedLost.Inc()
	}
}
