package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"clockgate/internal/device/metrics"
	"clockgate/internal/device/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/platform/tracing"
	"clockgate/pkg/requestcontext"
)

type Store interface {
	Enroll(ctx context.Context, device *models.Device, maxDevices int) error
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.Device, error)
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Device, error)
	MarkLost(ctx context.Context, identityID id.IdentityID, fingerprint string, now time.Time) (*models.Device, error)
	Remove(ctx context.Context, identityID id.IdentityID, fingerprint string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the device trust store: enrollment under a per-identity
// capacity, trust checks, lost flags and self-service removal.
type Service struct {
	store          Store
	maxDevices     int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, maxDevices int, opts ...Option) *Service {
	s := &Service{
		store:      store,
		maxDevices: maxDevices,
		tracer:     tracing.Tracer("clockgate/device"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll registers the caller's device. The first device an identity
// enrolls, or the first after its primary was lost, becomes primary.
func (s *Service) Enroll(ctx context.Context, identityID id.IdentityID, cmd models.EnrollCommand) (_ *models.Device, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "device.Enroll", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	if cmd.Fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	device := &models.Device{
		ID:          id.DeviceID(uuid.New()),
		IdentityID:  identityID,
		Fingerprint: cmd.Fingerprint,
		DisplayName: cmd.DisplayName,
		OS:          cmd.OS,
		Browser:     cmd.Browser,
		EnrolledAt:  requestcontext.Now(ctx),
	}

	if err := s.store.Enroll(ctx, device, s.maxDevices); err != nil {
		outcome, reason := "error", "internal"
		switch {
		case errors.Is(err, sentinel.ErrCapacity):
			outcome, reason = "capacity", "device_capacity"
		case errors.Is(err, sentinel.ErrConflict):
			outcome, reason = "duplicate", "duplicate_fingerprint"
		}
		s.metrics.IncrementEnrollment(outcome)
		s.logAudit(ctx, audit.EventDeviceRejected,
			"identity_id", identityID,
			"fingerprint", cmd.Fingerprint,
			"reason", reason,
		)
		return nil, wrapStoreErr(err, "failed to enroll device")
	}

	s.metrics.IncrementEnrollment("enrolled")
	s.logAudit(ctx, audit.EventDeviceEnrolled,
		"identity_id", identityID,
		"fingerprint", device.Fingerprint,
		"primary", device.Primary,
	)
	return device, nil
}

func (s *Service) List(ctx context.Context, identityID id.IdentityID) ([]*models.Device, error) {
	devices, err := s.store.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list devices")
	}
	return devices, nil
}

// IsTrusted reports whether fingerprint is an enrolled, non-lost device of identityID.
func (s *Service) IsTrusted(ctx context.Context, identityID id.IdentityID, fingerprint string) (bool, error) {
	if fingerprint == "" {
		s.metrics.IncrementTrustCheck(false)
		return false, nil
	}
	device, err := s.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementTrustCheck(false)
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device")
	}
	trusted := device.TrustedBy(identityID)
	s.metrics.IncrementTrustCheck(trusted)
	return trusted, nil
}

// Owned returns the identity's device for fingerprint, failing device_not_owned
// when it is missing or belongs to someone else.
func (s *Service) Owned(ctx context.Context, identityID id.IdentityID, fingerprint string) (*models.Device, error) {
	device, err := s.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeDeviceNotOwned, "device is not enrolled by this identity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device")
	}
	if device.IdentityID != identityID {
		return nil, dErrors.New(dErrors.CodeDeviceNotOwned, "device is not enrolled by this identity")
	}
	return device, nil
}

// MarkLost flags the device lost. The record is kept for audit history.
func (s *Service) MarkLost(ctx context.Context, identityID id.IdentityID, fingerprint string) (*models.Device, error) {
	wasLost := false
	if existing, err := s.store.FindByFingerprint(ctx, fingerprint); err == nil {
		wasLost = existing.Lost
	}
	device, err := s.store.MarkLost(ctx, identityID, fingerprint, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to mark device lost")
	}
	if !wasLost {
		s.metrics.IncrementMarkedLost()
		s.logAudit(ctx, audit.EventDeviceMarkedLost,
			"identity_id", identityID,
			"fingerprint", fingerprint,
		)
	}
	return device, nil
}

// Remove deletes a non-primary device.
func (s *Service) Remove(ctx context.Context, identityID id.IdentityID, fingerprint string) error {
	if err := s.store.Remove(ctx, identityID, fingerprint); err != nil {
		return wrapStoreErr(err, "failed to remove device")
	}
	s.logAudit(ctx, audit.EventDeviceRemoved,
		"identity_id", identityID,
		"fingerprint", fingerprint,
	)
	return nil
}

func wrapStoreErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrCapacity):
		return dErrors.New(dErrors.CodeDeviceCapacity, "maximum number of devices already enrolled")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateDevice, "device fingerprint is already enrolled")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeDeviceNotFound, "device not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodePrimaryDevice, "primary device cannot be removed")
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
