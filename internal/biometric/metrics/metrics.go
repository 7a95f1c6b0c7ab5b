package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for biometric verification.
type Metrics struct {
	ChallengesIssued *prometheus.CounterVec

	// Verifications by ceremony (registration, authentication) and outcome
	Verifications *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_biometric_challenges_issued_total",
			Help: "Biometric challenges issued by purpose",
		}, []string{"purpose"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_biometric_verifications_total",
			Help: "Biometric verifications by ceremony and outcome",
		}, []string{"ceremony", "outcome"}),
	}
}

func (m *Metrics) IncrementIssued(purpose string) {
	if m != nil {
		m.ChallengesIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) IncrementVerification(ceremony, outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(ceremony, outcome).Inc()
	}
}
