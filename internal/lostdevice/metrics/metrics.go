package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lost-device workflow.
type Metrics struct {
	Submissions prometheus.Counter

	// Responses by decision: granted, rejected, already_resolved
	Responses *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "clockgate_lost_device_requests_submitted_total",
			Help: "Lost-device requests accepted for review",
		}),
		Responses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_lost_device_responses_total",
			Help: "Responses to lost-device requests by decision",
		}, []string{"decision"}),
	}
}

func (m *Metrics) IncrementSubmission() {
	if m != nil {
		m.Submissions.Inc()
	}
}

func (m *Metrics) IncrementResponse(decision string) {
	if m != nil {
		m.Responses.WithLabelValues(decision).Inc()
	}
}
