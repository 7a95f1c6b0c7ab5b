package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clockgate/internal/identity/models"
	pgplatform "clockgate/internal/platform/postgres"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	txcontext "clockgate/pkg/platform/tx"
)

// PostgresStore persists identities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `id, name, role, department, supervisor_id, status, valid_from, valid_until, created_at, approved_by, approved_at`

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(identity.ID), identity.Name, string(identity.Role), identity.Department,
		nullableID(identity.SupervisorID), string(identity.Status), identity.ValidFrom,
		identity.ValidUntil, identity.CreatedAt, nullableID(identity.ApprovedBy), identity.ApprovedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return fmt.Errorf("identity %s: %w", identity.ID, sentinel.ErrConflict)
		}
		if pgplatform.IsForeignKeyViolation(err) {
			return fmt.Errorf("supervisor does not exist: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, uuid.UUID(identityID))
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	return identity, err
}

// Execute locks the row FOR UPDATE, validates, mutates, and writes back.
func (s *PostgresStore) Execute(ctx context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	var result *models.Identity
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		row := exec.QueryRowContext(ctx,
			`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, uuid.UUID(identityID))
		identity, err := scanIdentity(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := validate(identity); err != nil {
			return err
		}
		mutate(identity)
		if _, err := exec.ExecContext(ctx, `
			UPDATE identities SET status = $2, approved_by = $3, approved_at = $4, valid_until = $5
			WHERE id = $1
		`, uuid.UUID(identity.ID), string(identity.Status), nullableID(identity.ApprovedBy),
			identity.ApprovedAt, identity.ValidUntil); err != nil {
			return fmt.Errorf("update identity: %w", err)
		}
		result = identity
		return nil
	})
	return result, err
}

func (s *PostgresStore) ListByDepartment(ctx context.Context, department string) ([]*models.Identity, error) {
	return s.query(ctx, `SELECT `+identityColumns+` FROM identities WHERE department = $1 ORDER BY name, id`, department)
}

func (s *PostgresStore) ListActive(ctx context.Context, now time.Time) ([]*models.Identity, error) {
	return s.query(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE status = 'active' AND valid_from <= $1 AND (valid_until IS NULL OR valid_until >= $1)
		ORDER BY name, id
	`, now)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Identity, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()
	var out []*models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	var (
		identity                 models.Identity
		rawID                    uuid.UUID
		role, status             string
		supervisorID, approvedBy uuid.NullUUID
		validUntil, approvedAt   sql.NullTime
	)
	if err := row.Scan(&rawID, &identity.Name, &role, &identity.Department, &supervisorID, &status,
		&identity.ValidFrom, &validUntil, &identity.CreatedAt, &approvedBy, &approvedAt); err != nil {
		return nil, err
	}
	identity.ID = id.IdentityID(rawID)
	identity.Role = id.Role(role)
	identity.Status = models.Status(status)
	if supervisorID.Valid {
		sup := id.IdentityID(supervisorID.UUID)
		identity.SupervisorID = &sup
	}
	if approvedBy.Valid {
		ap := id.IdentityID(approvedBy.UUID)
		identity.ApprovedBy = &ap
	}
	if validUntil.Valid {
		identity.ValidUntil = &validUntil.Time
	}
	if approvedAt.Valid {
		identity.ApprovedAt = &approvedAt.Time
	}
	return &identity, nil
}

func nullableID(v *id.IdentityID) uuid.NullUUID {
	if v == nil || v.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}
