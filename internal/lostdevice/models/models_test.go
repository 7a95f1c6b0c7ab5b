package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

func day(s string) time.Time {
	t, err := id.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateWindow(t *testing.T) {
	today := day("2026-03-02")
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"exactly thirty days", day("2026-03-02"), day("2026-04-01"), false},
		{"thirty one days", day("2026-03-02"), day("2026-04-02"), true},
		{"end equal to start", day("2026-03-05"), day("2026-03-05"), true},
		{"end before start", day("2026-03-05"), day("2026-03-04"), true},
		{"start in the past", day("2026-03-01"), day("2026-03-05"), true},
		{"starts later", day("2026-03-10"), day("2026-03-12"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.start, tt.end, today, 30)
			if tt.wantErr {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidWindow))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateWindowUsesCalendarDay(t *testing.T) {
	lateToday := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	assert.NoError(t, ValidateWindow(day("2026-03-02"), day("2026-03-03"), lateToday, 30))
}

func TestCovers(t *testing.T) {
	req, err := NewRequest(id.LostRequestID(uuid.New()), id.IdentityID(uuid.New()), "fp", "dropped it",
		day("2026-03-02"), day("2026-03-06"), day("2026-03-02"), 30)
	require.NoError(t, err)

	assert.False(t, req.Covers(day("2026-03-03")), "pending requests grant nothing")

	req.ApplyDecision(DecisionGranted, id.IdentityID(uuid.New()), day("2026-03-02"))
	assert.False(t, req.Covers(day("2026-03-01")))
	assert.True(t, req.Covers(day("2026-03-02")))
	assert.True(t, req.Covers(time.Date(2026, 3, 6, 17, 59, 0, 0, time.UTC)))
	assert.False(t, req.Covers(day("2026-03-07")))
}

func TestCanRespond(t *testing.T) {
	req := &Request{Status: StatusPending}
	require.NoError(t, req.CanRespond())

	req.ApplyDecision(DecisionRejected, id.IdentityID(uuid.New()), time.Now())
	assert.Equal(t, StatusRejected, req.Status)
	assert.True(t, dErrors.HasCode(req.CanRespond(), dErrors.CodeAlreadyResolved))
	assert.False(t, req.Covers(time.Now()))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("granted")
	require.NoError(t, err)
	assert.Equal(t, DecisionGranted, d)

	_, err = ParseDecision("maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
