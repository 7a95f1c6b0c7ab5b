package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"clockgate/internal/attendance/models"
)

// Metrics provides observability for attendance records.
type Metrics struct {
	RecordsOpened prometheus.Counter

	// Sealed records by status and timing
	RecordsSealed *prometheus.CounterVec

	HoursWorked prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "clockgate_attendance_records_opened_total",
			Help: "Attendance records opened by clock-in",
		}),
		RecordsSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clockgate_attendance_records_sealed_total",
			Help: "Attendance records sealed by clock-out",
		}, []string{"status", "timing"}),
		HoursWorked: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clockgate_attendance_hours_worked",
			Help:    "Hours between clock-in and clock-out",
			Buckets: []float64{1, 2, 4, 6, 8, 9, 10, 12, 16},
		}),
	}
}

func (m *Metrics) IncrementOpened() {
	if m != nil {
		m.RecordsOpened.Inc()
	}
}

func (m *Metrics) ObserveSealed(c models.Classification) {
	if m == nil {
		return
	}
	m.RecordsSealed.WithLabelValues(string(c.Status), string(c.Timing)).Inc()
	m.HoursWorked.Observe(c.Hours)
}
