package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clockgate/pkg/domain-errors"
)

// IDs must be valid, non-empty, non-nil UUIDs at every trust boundary.
func TestParseIdentityID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentityID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseIdentityID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIdentityID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseIdentityID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, IdentityID(validUUID), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE identities;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLostRequestID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errIdentity := ParseIdentityID(validUUID)
		_, errDevice := ParseDeviceID(validUUID)
		_, errRequest := ParseLostRequestID(validUUID)
		_, errRecord := ParseRecordID(validUUID)
		_, errCredential := ParseCredentialID(validUUID)

		require.NoError(t, errIdentity)
		require.NoError(t, errDevice)
		require.NoError(t, errRequest)
		require.NoError(t, errRecord)
		require.NoError(t, errCredential)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errIdentity := ParseIdentityID(input)
			_, errDevice := ParseDeviceID(input)
			_, errRequest := ParseLostRequestID(input)
			_, errRecord := ParseRecordID(input)
			_, errCredential := ParseCredentialID(input)

			require.Error(t, errIdentity)
			require.Error(t, errDevice)
			require.Error(t, errRequest)
			require.Error(t, errRecord)
			require.Error(t, errCredential)
		})
	}
}

func TestParseStationCode(t *testing.T) {
	code, err := ParseStationCode("  Mombasa-HQ ")
	require.NoError(t, err)
	assert.Equal(t, StationCode("mombasa-hq"), code)

	_, err = ParseStationCode(" ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("attache")
	require.NoError(t, err)
	assert.True(t, role.RequiresSupervisor())

	role, err = ParseRole("employee")
	require.NoError(t, err)
	assert.False(t, role.RequiresSupervisor())

	_, err = ParseRole("contractor")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestDateOf(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	// 23:30 UTC on the 1st is already the 2nd in Nairobi.
	instant := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC).In(nairobi)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DateOf(instant))
	assert.Equal(t, 30, DaysBetween(DateOf(instant), DateOf(instant.AddDate(0, 0, 30))))
}
