package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clockgate/internal/lostdevice/models"
	pgplatform "clockgate/internal/platform/postgres"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	txcontext "clockgate/pkg/platform/tx"
)

// PostgresStore persists lost-device requests. A partial unique index keeps
// at most one pending request per identity and fingerprint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, identity_id, fingerprint, reason, start_date, end_date, status, responder_id, responded_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO lost_device_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.UUID(req.ID), uuid.UUID(req.IdentityID), req.Fingerprint, req.Reason,
		req.StartDate, req.EndDate, string(req.Status), nullableID(req.ResponderID), req.RespondedAt, req.CreatedAt)
	if err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return fmt.Errorf("pending request exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert lost device request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.LostRequestID) (*models.Request, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM lost_device_requests WHERE id = $1`, uuid.UUID(requestID))
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lost device request not found: %w", sentinel.ErrNotFound)
	}
	return req, err
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Request, error) {
	return s.query(ctx, `SELECT `+requestColumns+` FROM lost_device_requests
		WHERE identity_id = $1 ORDER BY created_at, id`, uuid.UUID(identityID))
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.Request, error) {
	return s.query(ctx, `SELECT `+requestColumns+` FROM lost_device_requests
		WHERE status = $1 ORDER BY created_at, id`, string(models.StatusPending))
}

func (s *PostgresStore) HasActiveGrant(ctx context.Context, identityID id.IdentityID, day time.Time) (bool, error) {
	var exists bool
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lost_device_requests
			WHERE identity_id = $1 AND status = $2 AND start_date <= $3 AND end_date >= $3
		)
	`, uuid.UUID(identityID), string(models.StatusGranted), id.DateOf(day)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active grant: %w", err)
	}
	return exists, nil
}

// Execute locks the row, validates and writes back the mutated status.
func (s *PostgresStore) Execute(ctx context.Context, requestID id.LostRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	var result *models.Request
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		req, err := scanRequest(exec.QueryRowContext(ctx,
			`SELECT `+requestColumns+` FROM lost_device_requests WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lost device request not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load lost device request: %w", err)
		}
		if err := validate(req); err != nil {
			return err
		}
		mutate(req)
		if _, err := exec.ExecContext(ctx, `
			UPDATE lost_device_requests SET status = $2, responder_id = $3, responded_at = $4
			WHERE id = $1
		`, uuid.UUID(req.ID), string(req.Status), nullableID(req.ResponderID), req.RespondedAt); err != nil {
			return fmt.Errorf("update lost device request: %w", err)
		}
		result = req
		return nil
	})
	return result, err
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lost device requests: %w", err)
	}
	defer rows.Close()
	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.Request, error) {
	var (
		req         models.Request
		rawID       uuid.UUID
		identityID  uuid.UUID
		status      string
		responderID uuid.NullUUID
		respondedAt sql.NullTime
	)
	if err := row.Scan(&rawID, &identityID, &req.Fingerprint, &req.Reason, &req.StartDate, &req.EndDate,
		&status, &responderID, &respondedAt, &req.CreatedAt); err != nil {
		return nil, err
	}
	req.ID = id.LostRequestID(rawID)
	req.IdentityID = id.IdentityID(identityID)
	req.Status = models.Status(status)
	req.StartDate = id.DateOf(req.StartDate)
	req.EndDate = id.DateOf(req.EndDate)
	if responderID.Valid {
		responder := id.IdentityID(responderID.UUID)
		req.ResponderID = &responder
	}
	if respondedAt.Valid {
		req.RespondedAt = &respondedAt.Time
	}
	return &req, nil
}

func nullableID(v *id.IdentityID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}
