package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	attendance "clockgate/internal/attendance/models"
	biometric "clockgate/internal/biometric/models"
	"clockgate/internal/clock/metrics"
	"clockgate/internal/clock/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/platform/tracing"
	txcontext "clockgate/pkg/platform/tx"
	"clockgate/pkg/requestcontext"
)

const defaultLocationTTL = 10 * time.Minute

type Store interface {
	Get(ctx context.Context, identityID id.IdentityID) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
}

type Stations interface {
	Lookup(code id.StationCode) (geo.Station, error)
}

type Identities interface {
	RequireEmployed(ctx context.Context, identityID id.IdentityID) error
}

type Devices interface {
	IsTrusted(ctx context.Context, identityID id.IdentityID, fingerprint string) (bool, error)
}

type Grants interface {
	HasActiveGrantToday(ctx context.Context, identityID id.IdentityID) (bool, error)
}

type Biometrics interface {
	HasCredential(ctx context.Context, identityID id.IdentityID) (bool, error)
	VerifyRegistration(ctx context.Context, identityID id.IdentityID, resp biometric.RegistrationResponse) (*biometric.Credential, error)
	VerifyAuthentication(ctx context.Context, identityID id.IdentityID, resp biometric.AssertionResponse) error
}

type Attendance interface {
	OpenRecord(ctx context.Context, identityID id.IdentityID) (*attendance.Record, error)
	ClockIn(ctx context.Context, identityID id.IdentityID, station id.StationCode) (*attendance.Record, error)
	ClockOut(ctx context.Context, identityID id.IdentityID) (*attendance.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Dependencies are the gates and stores the state machine drives.
type Dependencies struct {
	Sessions   Store
	Stations   Stations
	Identities Identities
	Devices    Devices
	Grants     Grants
	Biometrics Biometrics
	Attendance Attendance
}

// Service is the per-identity clock state machine. Every operation that
// reads and writes a session runs under that identity's lock, and no
// session or record is written until every gate has passed.
type Service struct {
	deps           Dependencies
	locks          *txcontext.ShardedMutex
	locationTTL    time.Duration
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

// WithLocationTTL sets how long a verified location satisfies clock attempts.
func WithLocationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.locationTTL = ttl
		}
	}
}

func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.locks = txcontext.NewShardedMutex(timeout)
	}
}

func New(deps Dependencies, opts ...Option) (*Service, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	case deps.Stations == nil:
		return nil, errors.New("station catalogue is required")
	case deps.Identities == nil:
		return nil, errors.New("identity registry is required")
	case deps.Devices == nil:
		return nil, errors.New("device trust store is required")
	case deps.Grants == nil:
		return nil, errors.New("lost device workflow is required")
	case deps.Biometrics == nil:
		return nil, errors.New("biometric verifier is required")
	case deps.Attendance == nil:
		return nil, errors.New("attendance service is required")
	}
	s := &Service{
		deps:        deps,
		locks:       txcontext.NewShardedMutex(0),
		locationTTL: defaultLocationTTL,
		tracer:      tracing.Tracer("clockgate/clock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session returns the identity's current session. An identity that never
// verified a location is LocationUnverified.
func (s *Service) Session(ctx context.Context, identityID id.IdentityID) (*models.Session, error) {
	return s.loadSession(ctx, identityID)
}

// VerifyLocation checks position against station and moves the session to
// the phase its remaining gates allow. Failing the geofence drops any
// earlier verification; success re-derives the phase from scratch, so
// switching station never carries over the old one.
func (s *Service) VerifyLocation(ctx context.Context, identityID id.IdentityID, code id.StationCode, position geo.Position) (_ *models.Session, _ geo.Result, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "clock.VerifyLocation",
		"identity_id", identityID.String(),
		"station", code.String(),
	)
	defer func() { tracing.End(span, err) }()

	station, err := s.deps.Stations.Lookup(code)
	if err != nil {
		return nil, geo.Result{}, err
	}
	result, err := geo.Verify(position, station)
	if err != nil {
		return nil, geo.Result{}, err
	}
	s.metrics.ObserveLocation(result.WithinGeofence, float64(result.DistanceMeters))

	var session *models.Session
	err = s.locks.Do(ctx, identityID.String(), func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		current, err := s.loadSession(ctx, identityID)
		if err != nil {
			return err
		}
		next := *current

		if !result.WithinGeofence {
			next.ApplyLocationFailure(code, position, result.DistanceMeters, now)
			if err := s.saveSession(ctx, &next); err != nil {
				return err
			}
			session = &next
			s.logAudit(ctx, audit.EventLocationRejected,
				"identity_id", identityID,
				"station", code,
				"distance_meters", result.DistanceMeters,
			)
			return dErrors.New(dErrors.CodeOutsideGeofence, "position is outside the station geofence")
		}

		open, err := s.deps.Attendance.OpenRecord(ctx, identityID)
		if err != nil {
			return err
		}
		hasCredential, err := s.deps.Biometrics.HasCredential(ctx, identityID)
		if err != nil {
			return err
		}
		next.ApplyLocationVerified(code, position, result.DistanceMeters, now)
		next.Advance(open != nil, hasCredential, now)
		if err := s.saveSession(ctx, &next); err != nil {
			return err
		}
		session = &next
		s.logAudit(ctx, audit.EventLocationVerified,
			"identity_id", identityID,
			"station", code,
			"distance_meters", result.DistanceMeters,
			"phase", next.Phase,
		)
		return nil
	})
	return session, result, err
}

// CompleteBiometricRegistration registers the identity's credential and, if
// the session was waiting on it, makes it ready to clock in.
func (s *Service) CompleteBiometricRegistration(ctx context.Context, identityID id.IdentityID, resp biometric.RegistrationResponse) (_ *biometric.Credential, _ *models.Session, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "clock.CompleteBiometricRegistration", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	var (
		credential *biometric.Credential
		session    *models.Session
	)
	err = s.locks.Do(ctx, identityID.String(), func(ctx context.Context) error {
		cred, err := s.deps.Biometrics.VerifyRegistration(ctx, identityID, resp)
		if err != nil {
			return err
		}
		credential = cred

		current, err := s.loadSession(ctx, identityID)
		if err != nil {
			return err
		}
		next := *current
		if next.Phase == models.PhaseBiometricPending || next.Phase == models.PhaseLocationVerified {
			open, err := s.deps.Attendance.OpenRecord(ctx, identityID)
			if err != nil {
				return err
			}
			next.Advance(open != nil, true, requestcontext.Now(ctx))
			if err := s.saveSession(ctx, &next); err != nil {
				return err
			}
		}
		session = &next
		return nil
	})
	return credential, session, err
}

// AttemptClock clocks the identity in or out. The gates run in order:
// session phase, location freshness, employment, device trust (or an active
// lost-device grant), the open-record check, then the biometric assertion.
// Only when all pass is the attendance record written and the session
// advanced. The assertion consumes its challenge, so a storage failure after
// that point needs a fresh challenge to retry.
func (s *Service) AttemptClock(ctx context.Context, identityID id.IdentityID, cmd models.AttemptCommand) (_ *models.AttemptResult, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "clock.AttemptClock", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	var result *models.AttemptResult
	err = s.locks.Do(ctx, identityID.String(), func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		current, err := s.loadSession(ctx, identityID)
		if err != nil {
			return err
		}

		direction, ready := current.NextDirection()
		if !ready {
			return s.reject(ctx, identityID, cmd.Direction, phaseError(current.Phase))
		}
		if cmd.Direction != "" && cmd.Direction != direction {
			return s.reject(ctx, identityID, cmd.Direction,
				dErrors.New(dErrors.CodeInvalidState, "session is ready to clock "+string(direction)))
		}
		if !current.LocationFresh(now, s.locationTTL) {
			return s.reject(ctx, identityID, direction,
				dErrors.New(dErrors.CodeLocationExpired, "location verification has expired"))
		}
		if err := s.deps.Identities.RequireEmployed(ctx, identityID); err != nil {
			return s.reject(ctx, identityID, direction, err)
		}
		via, err := s.trustedVia(ctx, identityID, cmd.Fingerprint)
		if err != nil {
			return s.reject(ctx, identityID, direction, err)
		}
		open, err := s.deps.Attendance.OpenRecord(ctx, identityID)
		if err != nil {
			return s.reject(ctx, identityID, direction, err)
		}
		if err := recordStateError(direction, open); err != nil {
			return s.reject(ctx, identityID, direction, err)
		}
		if err := s.deps.Biometrics.VerifyAuthentication(ctx, identityID, cmd.Assertion); err != nil {
			return s.reject(ctx, identityID, direction, err)
		}

		var record *attendance.Record
		if direction == models.DirectionIn {
			record, err = s.deps.Attendance.ClockIn(ctx, identityID, current.Station)
		} else {
			record, err = s.deps.Attendance.ClockOut(ctx, identityID)
		}
		if err != nil {
			return s.reject(ctx, identityID, direction, err)
		}

		next := *current
		next.ApplyClock(direction, now)
		if err := s.deps.Sessions.Save(ctx, &next); err != nil && s.logger != nil {
			// The record is written; the next location check resyncs the phase from it.
			s.logger.ErrorContext(ctx, "failed to save clock session",
				"identity_id", identityID,
				"error", err,
			)
		}

		s.metrics.IncrementAttempt(string(direction), "accepted")
		s.auditClock(ctx, direction, record, cmd.Fingerprint, via)
		result = &models.AttemptResult{Direction: direction, Record: record, Session: &next}
		return nil
	})
	return result, err
}

// trustedVia reports how the device gate was satisfied.
func (s *Service) trustedVia(ctx context.Context, identityID id.IdentityID, fingerprint string) (string, error) {
	trusted, err := s.deps.Devices.IsTrusted(ctx, identityID, fingerprint)
	if err != nil {
		return "", err
	}
	if trusted {
		return "enrolled_device", nil
	}
	granted, err := s.deps.Grants.HasActiveGrantToday(ctx, identityID)
	if err != nil {
		return "", err
	}
	if granted {
		return "lost_device_grant", nil
	}
	return "", dErrors.New(dErrors.CodeUntrustedDevice, "device is not trusted for this identity")
}

func (s *Service) auditClock(ctx context.Context, direction models.Direction, record *attendance.Record, fingerprint, via string) {
	if direction == models.DirectionIn {
		s.logAudit(ctx, audit.EventClockedIn,
			"identity_id", record.IdentityID,
			"record_id", record.ID,
			"station", record.Station,
			"fingerprint", fingerprint,
			"trusted_via", via,
		)
		return
	}
	attrs := []any{
		"identity_id", record.IdentityID,
		"record_id", record.ID,
		"station", record.Station,
		"fingerprint", fingerprint,
		"trusted_via", via,
	}
	if c := record.Classification; c != nil {
		attrs = append(attrs, "status", c.Status, "timing", c.Timing, "hours", c.Hours)
	}
	s.logAudit(ctx, audit.EventClockedOut, attrs...)
}

func (s *Service) reject(ctx context.Context, identityID id.IdentityID, direction models.Direction, err error) error {
	reason := string(dErrors.CodeInternal)
	if de, ok := dErrors.As(err); ok {
		reason = string(de.Code)
	}
	label := string(direction)
	if label == "" {
		label = "unknown"
	}
	s.metrics.IncrementAttempt(label, reason)
	s.logAudit(ctx, audit.EventClockRejected,
		"identity_id", identityID,
		"direction", label,
		"reason", reason,
	)
	return err
}

// recordStateError checks direction against the identity's open record.
func recordStateError(direction models.Direction, open *attendance.Record) error {
	switch {
	case direction == models.DirectionIn && open != nil:
		return dErrors.New(dErrors.CodeInvalidState, "already clocked in")
	case direction == models.DirectionOut && open == nil:
		return dErrors.New(dErrors.CodeInvalidState, "not clocked in")
	}
	return nil
}

func phaseError(phase models.Phase) error {
	switch phase {
	case models.PhaseBiometricPending:
		return dErrors.New(dErrors.CodeInvalidState, "biometric registration required")
	default:
		return dErrors.New(dErrors.CodeInvalidState, "location not verified")
	}
}

func (s *Service) loadSession(ctx context.Context, identityID id.IdentityID) (*models.Session, error) {
	session, err := s.deps.Sessions.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewSession(identityID, requestcontext.Now(ctx)), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load clock session")
	}
	return session, nil
}

func (s *Service) saveSession(ctx context.Context, session *models.Session) error {
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save clock session")
	}
	return nil
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
