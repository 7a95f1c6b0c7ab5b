package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clockgate/internal/identity/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	Execute(ctx context.Context, identityID id.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error)
	ListByDepartment(ctx context.Context, department string) ([]*models.Identity, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.Identity, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity registry: registration, HR approval and deactivation.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending identity. A named supervisor must exist.
func (s *Service) Register(ctx context.Context, cmd models.RegisterCommand) (*models.Identity, error) {
	now := requestcontext.Now(ctx)
	identity, err := models.NewIdentity(id.IdentityID(uuid.New()), cmd.Name, cmd.Role, cmd.Department,
		cmd.SupervisorID, cmd.ValidFrom, cmd.ValidUntil, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if identity.SupervisorID != nil {
		if _, err := s.store.FindByID(ctx, *identity.SupervisorID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "supervisor not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load supervisor")
		}
	}

	if err := s.store.Create(ctx, identity); err != nil {
		return nil, wrapStoreErr(err, "failed to register identity")
	}
	s.logAudit(ctx, audit.EventIdentityRegistered,
		"identity_id", identity.ID,
		"actor_id", requestcontext.IdentityID(ctx),
	)
	return identity, nil
}

// Approve records HR approval, moving a pending identity to active.
func (s *Service) Approve(ctx context.Context, identityID, approverID id.IdentityID) (*models.Identity, error) {
	now := requestcontext.Now(ctx)
	identity, err := s.store.Execute(ctx, identityID,
		func(i *models.Identity) error { return i.CanApprove() },
		func(i *models.Identity) { i.ApplyApproval(approverID, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to approve identity")
	}
	s.logAudit(ctx, audit.EventIdentityApproved,
		"identity_id", identity.ID,
		"actor_id", approverID,
	)
	return identity, nil
}

// Deactivate ends an identity's ability to clock. The record is kept.
func (s *Service) Deactivate(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	identity, err := s.store.Execute(ctx, identityID,
		func(i *models.Identity) error { return i.CanDeactivate() },
		func(i *models.Identity) { i.ApplyDeactivation() },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to deactivate identity")
	}
	s.logAudit(ctx, audit.EventIdentityDeactivated,
		"identity_id", identity.ID,
		"actor_id", requestcontext.IdentityID(ctx),
	)
	return identity, nil
}

func (s *Service) Get(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	identity, err := s.store.FindByID(ctx, identityID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load identity")
	}
	return identity, nil
}

func (s *Service) ListByDepartment(ctx context.Context, department string) ([]*models.Identity, error) {
	identities, err := s.store.ListByDepartment(ctx, department)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list identities")
	}
	return identities, nil
}

// ListActive returns identities employed at the request time.
func (s *Service) ListActive(ctx context.Context) ([]*models.Identity, error) {
	identities, err := s.store.ListActive(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list identities")
	}
	return identities, nil
}

// RequireEmployed fails with not_employed unless the identity is active and
// inside its validity window at the request time.
func (s *Service) RequireEmployed(ctx context.Context, identityID id.IdentityID) error {
	identity, err := s.store.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotEmployed, "identity is not registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.IsEmployed(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeNotEmployed, "identity is not currently employed")
	}
	return nil
}

func wrapStoreErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "identity not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "identity already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if s.logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit")
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.NewEvent(event, attributes...)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
