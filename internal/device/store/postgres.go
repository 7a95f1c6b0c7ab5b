package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clockgate/internal/device/models"
	pgplatform "clockgate/internal/platform/postgres"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	txcontext "clockgate/pkg/platform/tx"
)

// PostgresStore persists devices in PostgreSQL. Enrollment takes a
// transaction-scoped advisory lock on the identity so capacity is checked
// and written atomically; the UNIQUE fingerprint constraint covers races
// across identities.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deviceColumns = `id, identity_id, fingerprint, display_name, os, browser, is_primary, lost, enrolled_at, lost_at`

func (s *PostgresStore) Enroll(ctx context.Context, d *models.Device, maxDevices int) error {
	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		if _, err := exec.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, d.IdentityID.String()); err != nil {
			return fmt.Errorf("lock identity devices: %w", err)
		}

		var active int
		var hasPrimary bool
		if err := exec.QueryRowContext(ctx, `
			SELECT COUNT(*) FILTER (WHERE NOT lost), COALESCE(BOOL_OR(is_primary), FALSE)
			FROM devices WHERE identity_id = $1
		`, uuid.UUID(d.IdentityID)).Scan(&active, &hasPrimary); err != nil {
			return fmt.Errorf("count devices: %w", err)
		}
		if active >= maxDevices {
			return fmt.Errorf("identity holds %d devices: %w", active, sentinel.ErrCapacity)
		}
		d.Primary = !hasPrimary

		_, err := exec.ExecContext(ctx, `
			INSERT INTO devices (`+deviceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.UUID(d.ID), uuid.UUID(d.IdentityID), d.Fingerprint, d.DisplayName, d.OS, d.Browser,
			d.Primary, d.Lost, d.EnrolledAt, d.LostAt)
		if err != nil {
			if pgplatform.IsUniqueViolation(err) {
				return fmt.Errorf("fingerprint already enrolled: %w", sentinel.ErrConflict)
			}
			return fmt.Errorf("insert device: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Device, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE fingerprint = $1`, fingerprint)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	return d, err
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Device, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE identity_id = $1 ORDER BY enrolled_at, fingerprint`,
		uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()
	var out []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkLost flags the device lost and clears primary. It runs inside the
// caller's transaction when one is present, so a lost-device grant and the
// flag commit together.
func (s *PostgresStore) MarkLost(ctx context.Context, identityID id.IdentityID, fingerprint string, now time.Time) (*models.Device, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		UPDATE devices
		SET lost = TRUE, is_primary = FALSE, lost_at = COALESCE(lost_at, $3)
		WHERE identity_id = $1 AND fingerprint = $2
		RETURNING `+deviceColumns,
		uuid.UUID(identityID), fingerprint, now)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	return d, err
}

func (s *PostgresStore) Remove(ctx context.Context, identityID id.IdentityID, fingerprint string) error {
	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		var primary bool
		err := exec.QueryRowContext(ctx,
			`SELECT is_primary FROM devices WHERE identity_id = $1 AND fingerprint = $2 FOR UPDATE`,
			uuid.UUID(identityID), fingerprint).Scan(&primary)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load device: %w", err)
		}
		if primary {
			return fmt.Errorf("primary device: %w", sentinel.ErrInvalidState)
		}
		if _, err := exec.ExecContext(ctx,
			`DELETE FROM devices WHERE identity_id = $1 AND fingerprint = $2`,
			uuid.UUID(identityID), fingerprint); err != nil {
			return fmt.Errorf("delete device: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*models.Device, error) {
	var (
		d          models.Device
		rawID      uuid.UUID
		identityID uuid.UUID
		lostAt     sql.NullTime
	)
	if err := row.Scan(&rawID, &identityID, &d.Fingerprint, &d.DisplayName, &d.OS, &d.Browser,
		&d.Primary, &d.Lost, &d.EnrolledAt, &lostAt); err != nil {
		return nil, err
	}
	d.ID = id.DeviceID(rawID)
	d.IdentityID = id.IdentityID(identityID)
	if lostAt.Valid {
		d.LostAt = &lostAt.Time
	}
	return &d, nil
}
