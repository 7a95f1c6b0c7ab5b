package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintViolations(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
	}{
		{"pq unique", &pq.Error{Code: "23505"}, true, false},
		{"pq foreign key", &pq.Error{Code: "23503"}, false, true},
		{"pgx unique wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true, false},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, false, true},
		{"pgx other", &pgconn.PgError{Code: "40001"}, false, false},
		{"plain error", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyViolation(tt.err))
		})
	}
}

func TestDriverName(t *testing.T) {
	name, err := driverName("")
	assert.NoError(t, err)
	assert.Equal(t, "postgres", name)

	name, err = driverName(DriverPgx)
	assert.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = driverName("mysql")
	assert.Error(t, err)
}
