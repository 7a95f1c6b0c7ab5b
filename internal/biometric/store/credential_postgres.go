package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	txcontext "clockgate/pkg/platform/tx"
)

type CredentialPostgres struct {
	db *sql.DB
}

func NewCredentialPostgres(db *sql.DB) *CredentialPostgres {
	return &CredentialPostgres{db: db}
}

func (s *CredentialPostgres) Save(ctx context.Context, cred *models.Credential, replace bool) error {
	return txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		if replace {
			if _, err := exec.ExecContext(ctx,
				`DELETE FROM biometric_credentials WHERE identity_id = $1`, uuid.UUID(cred.IdentityID)); err != nil {
				return fmt.Errorf("replace credentials: %w", err)
			}
		}
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO biometric_credentials (id, identity_id, credential_ref, public_key, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.UUID(cred.ID), uuid.UUID(cred.IdentityID), cred.CredentialRef, cred.PublicKey, cred.CreatedAt); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		return nil
	})
}

func (s *CredentialPostgres) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Credential, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, identity_id, credential_ref, public_key, created_at
		FROM biometric_credentials WHERE identity_id = $1 ORDER BY created_at
	`, uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	var out []*models.Credential
	for rows.Next() {
		var (
			c        models.Credential
			rawID    uuid.UUID
			identity uuid.UUID
		)
		if err := rows.Scan(&rawID, &identity, &c.CredentialRef, &c.PublicKey, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ID = id.CredentialID(rawID)
		c.IdentityID = id.IdentityID(identity)
		out = append(out, &c)
	}
	return out, rows.Err()
}
