package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	devicemodels "clockgate/internal/device/models"
	"clockgate/internal/lostdevice/metrics"
	"clockgate/internal/lostdevice/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/platform/tracing"
	txcontext "clockgate/pkg/platform/tx"
	"clockgate/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.LostRequestID) (*models.Request, error)
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Request, error)
	ListPending(ctx context.Context) ([]*models.Request, error)
	HasActiveGrant(ctx context.Context, identityID id.IdentityID, day time.Time) (bool, error)
	Execute(ctx context.Context, requestID id.LostRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
}

// DeviceService is the slice of device trust the workflow needs.
type DeviceService interface {
	Owned(ctx context.Context, identityID id.IdentityID, fingerprint string) (*devicemodels.Device, error)
	MarkLost(ctx context.Context, identityID id.IdentityID, fingerprint string) (*devicemodels.Device, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs lost-device requests: submission by the identity, a single
// admin response, and grant-window checks for the clock.
type Service struct {
	store          Store
	devices        DeviceService
	maxWindowDays  int
	location       *time.Location
	tx             txcontext.Runner
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

// WithLocation sets the zone that defines "today" for window checks.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTxRunner makes a grant and the device's lost flag commit together.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.tx = runner
		}
	}
}

func New(store Store, devices DeviceService, maxWindowDays int, opts ...Option) *Service {
	s := &Service{
		store:         store,
		devices:       devices,
		maxWindowDays: maxWindowDays,
		location:      time.UTC,
		tx:            txcontext.NopRunner{},
		tracer:        tracing.Tracer("clockgate/lostdevice"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today(ctx context.Context) time.Time {
	return id.DateOf(requestcontext.Now(ctx).In(s.location))
}

// Submit files a request for the identity's own non-lost device.
func (s *Service) Submit(ctx context.Context, identityID id.IdentityID, cmd models.SubmitCommand) (*models.Request, error) {
	now := requestcontext.Now(ctx)
	req, err := models.NewRequest(id.LostRequestID(uuid.New()), identityID, cmd.Fingerprint, cmd.Reason,
		cmd.StartDate, cmd.EndDate, now.In(s.location), s.maxWindowDays)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	req.CreatedAt = now

	device, err := s.devices.Owned(ctx, identityID, cmd.Fingerprint)
	if err != nil {
		return nil, err
	}
	if device.Lost {
		return nil, dErrors.New(dErrors.CodeDeviceNotOwned, "device is already marked lost")
	}

	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyPending, "a request for this device is already pending")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit lost device request")
	}
	s.metrics.IncrementSubmission()
	s.logAudit(ctx, audit.EventLostDeviceSubmitted,
		"identity_id", identityID,
		"fingerprint", req.Fingerprint,
		"subject", req.ID,
	)
	return req, nil
}

// Respond resolves a pending request exactly once. Granting marks the
// target device lost in the same unit of work.
func (s *Service) Respond(ctx context.Context, requestID id.LostRequestID, responderID id.IdentityID, decision models.Decision) (_ *models.Request, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "lostdevice.Respond",
		"lost_request_id", requestID.String(), "decision", string(decision))
	defer func() { tracing.End(span, err) }()

	now := requestcontext.Now(ctx)
	var resolved *models.Request
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.store.Execute(ctx, requestID,
			func(r *models.Request) error { return r.CanRespond() },
			func(r *models.Request) { r.ApplyDecision(decision, responderID, now) },
		)
		if err != nil {
			return err
		}
		if decision == models.DecisionGranted {
			if _, err := s.devices.MarkLost(ctx, req.IdentityID, req.Fingerprint); err != nil {
				if !dErrors.HasCode(err, dErrors.CodeDeviceNotFound) {
					return err
				}
				// The device was removed after submission; the grant stands.
				if s.logger != nil {
					s.logger.WarnContext(ctx, "granted device no longer enrolled",
						"lost_request_id", requestID,
						"fingerprint", req.Fingerprint,
					)
				}
			}
		}
		resolved = req
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyResolved) {
			s.metrics.IncrementResponse("already_resolved")
			return nil, err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lost device request not found")
		}
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to respond to lost device request")
	}

	s.metrics.IncrementResponse(string(decision))
	event := audit.EventLostDeviceRejected
	if decision == models.DecisionGranted {
		event = audit.EventLostDeviceGranted
	}
	s.logAudit(ctx, event,
		"identity_id", resolved.IdentityID,
		"fingerprint", resolved.Fingerprint,
		"subject", resolved.ID,
		"decision", string(decision),
		"actor_id", responderID,
	)
	return resolved, nil
}

// IsActiveGrant reports whether a granted request covers day for identityID.
// Grants lapse on their own once day passes the end date.
func (s *Service) IsActiveGrant(ctx context.Context, identityID id.IdentityID, day time.Time) (bool, error) {
	active, err := s.store.HasActiveGrant(ctx, identityID, id.DateOf(day.In(s.location)))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check lost device grant")
	}
	return active, nil
}

// HasActiveGrantToday is IsActiveGrant for the request's calendar day.
func (s *Service) HasActiveGrantToday(ctx context.Context, identityID id.IdentityID) (bool, error) {
	active, err := s.store.HasActiveGrant(ctx, identityID, s.today(ctx))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check lost device grant")
	}
	return active, nil
}

func (s *Service) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Request, error) {
	requests, err := s.store.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lost device requests")
	}
	return requests, nil
}

func (s *Service) ListPending(ctx context.Context) ([]*models.Request, error) {
	requests, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lost device requests")
	}
	return requests, nil
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
