package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"clockgate/internal/attendance/models"
	pgplatform "clockgate/internal/platform/postgres"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	txcontext "clockgate/pkg/platform/tx"
)

// PostgresStore persists attendance records. A partial unique index allows
// one open record per identity.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, identity_id, station_code, clock_in, clock_out, status, timing, hours`

func (s *PostgresStore) Open(ctx context.Context, rec *models.Record) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO attendance_records (id, identity_id, station_code, clock_in)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(rec.ID), uuid.UUID(rec.IdentityID), string(rec.Station), rec.ClockIn)
	if err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return fmt.Errorf("open record exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOpen(ctx context.Context, identityID id.IdentityID) (*models.Record, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE identity_id = $1 AND clock_out IS NULL`,
		uuid.UUID(identityID))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no open record: %w", sentinel.ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) Execute(ctx context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	var result *models.Record
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		rec, err := scanRecord(exec.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM attendance_records WHERE id = $1 FOR UPDATE`, uuid.UUID(recordID)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load attendance record: %w", err)
		}
		if err := validate(rec); err != nil {
			return err
		}
		mutate(rec)

		var status, timing sql.NullString
		var hours sql.NullFloat64
		if c := rec.Classification; c != nil {
			status = sql.NullString{String: string(c.Status), Valid: true}
			timing = sql.NullString{String: string(c.Timing), Valid: true}
			hours = sql.NullFloat64{Float64: c.Hours, Valid: true}
		}
		if _, err := exec.ExecContext(ctx, `
			UPDATE attendance_records SET clock_out = $2, status = $3, timing = $4, hours = $5
			WHERE id = $1
		`, uuid.UUID(rec.ID), rec.ClockOut, status, timing, hours); err != nil {
			return fmt.Errorf("update attendance record: %w", err)
		}
		result = rec
		return nil
	})
	return result, err
}

func (s *PostgresStore) ListByIdentities(ctx context.Context, identityIDs []id.IdentityID, from, to time.Time) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE clock_in >= $1 AND clock_in < $2`
	args := []any{from, to}
	if len(identityIDs) > 0 {
		raw := make([]string, len(identityIDs))
		for i, identityID := range identityIDs {
			raw[i] = identityID.String()
		}
		query += ` AND identity_id = ANY($3::uuid[])`
		args = append(args, pq.Array(raw))
	}
	query += ` ORDER BY clock_in, id`

	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()
	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		rec        models.Record
		rawID      uuid.UUID
		identityID uuid.UUID
		station    string
		clockOut   sql.NullTime
		status     sql.NullString
		timing     sql.NullString
		hours      sql.NullFloat64
	)
	if err := row.Scan(&rawID, &identityID, &station, &rec.ClockIn, &clockOut, &status, &timing, &hours); err != nil {
		return nil, err
	}
	rec.ID = id.RecordID(rawID)
	rec.IdentityID = id.IdentityID(identityID)
	rec.Station = id.StationCode(station)
	if clockOut.Valid {
		rec.ClockOut = &clockOut.Time
		rec.Classification = &models.Classification{
			Status: models.Status(status.String),
			Timing: models.Timing(timing.String),
			Hours:  hours.Float64,
		}
	}
	return &rec, nil
}
