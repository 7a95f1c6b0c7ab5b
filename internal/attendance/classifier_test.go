package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockgate/internal/attendance/models"
	"clockgate/internal/geo"
	dErrors "clockgate/pkg/domain-errors"
)

func TestClassify(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	station := geo.Station{
		Code:          "hq",
		ExpectedStart: 8 * time.Hour,
		LateGrace:     15 * time.Minute,
	}
	c := NewClassifier(7, nairobi)
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 2, hour, minute, 0, 0, nairobi)
	}

	tests := []struct {
		name string
		in   time.Time
		out  time.Time
		want models.Classification
	}{
		{"full early day", at(8, 0), at(17, 0), models.Classification{Status: models.StatusPresent, Timing: models.TimingEarly, Hours: 9}},
		{"exactly at cutoff is early", at(8, 15), at(15, 15), models.Classification{Status: models.StatusPresent, Timing: models.TimingEarly, Hours: 7}},
		{"one minute past cutoff", at(8, 16), at(17, 0), models.Classification{Status: models.StatusPresent, Timing: models.TimingLate, Hours: 8.73}},
		{"short day", at(9, 0), at(12, 20), models.Classification{Status: models.StatusHalfday, Timing: models.TimingLate, Hours: 3.33}},
		{"zero length", at(8, 0), at(8, 0), models.Classification{Status: models.StatusHalfday, Timing: models.TimingEarly, Hours: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.in, tt.out, station)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("cutoff follows the configured zone", func(t *testing.T) {
		// 05:10 UTC is 08:10 in Nairobi.
		got, err := c.Classify(time.Date(2026, 3, 2, 5, 10, 0, 0, time.UTC), time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), station)
		require.NoError(t, err)
		assert.Equal(t, models.TimingEarly, got.Timing)
	})

	t.Run("clock-out before clock-in", func(t *testing.T) {
		_, err := c.Classify(at(17, 0), at(8, 0), station)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRoundHours(t *testing.T) {
	assert.Equal(t, 9.0, RoundHours(9*time.Hour))
	assert.Equal(t, 0.02, RoundHours(time.Minute))
	assert.Equal(t, 1.5, RoundHours(90*time.Minute))
}
