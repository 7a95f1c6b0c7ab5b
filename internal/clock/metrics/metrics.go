package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the clock state machine.
type Metrics struct {
	// Clock attempts by direction and outcome (accepted or the rejection code)
	Attempts *prometheus.CounterVec

	// Location checks by result: within, outside
	LocationChecks *prometheus.CounterVec

	GeofenceDistance prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_clock_attempts_total",
			Help: "Clock attempts by direction and outcome",
		}, []string{"direction", "outcome"}),
		LocationChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_clock_location_checks_total",
			Help: "Geofence checks by result",
		}, []string{"result"}),
		GeofenceDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clockgate_clock_geofence_distance_meters",
			Help:    "Distance between reported positions and the selected station",
			Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 5000},
		}),
	}
}

func (m *Metrics) IncrementAttempt(direction, outcome string) {
	if m != nil {
		m.Attempts.WithLabelValues(direction, outcome).Inc()
	}
}

func (m *Metrics) ObserveLocation(within bool, distanceMeters float64) {
	if m == nil {
		return
	}
	result := "outside"
	if within {
		result = "within"
	}
	m.LocationChecks.WithLabelValues(result).Inc()
	m.GeofenceDistance.Observe(distanceMeters)
}
