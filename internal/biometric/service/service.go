package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"clockgate/internal/biometric"
	"clockgate/internal/biometric/metrics"
	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/platform/tracing"
	"clockgate/pkg/requestcontext"
)

const defaultChallengeTTL = 2 * time.Minute

type ChallengeStore interface {
	Save(ctx context.Context, challenge models.Challenge) error
	Consume(ctx context.Context, identityID id.IdentityID, value string, now time.Time) (*models.Challenge, error)
}

type CredentialStore interface {
	Save(ctx context.Context, cred *models.Credential, replace bool) error
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Credential, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues single-use challenges and verifies authenticator
// responses against them. It knows nothing about location or devices.
type Service struct {
	challenges     ChallengeStore
	credentials    CredentialStore
	authenticator  biometric.Authenticator
	source         biometric.ChallengeSource
	ttl            time.Duration
	allowMultiple  bool
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

func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMultipleCredentials keeps earlier credentials on re-registration
// instead of replacing them.
func WithMultipleCredentials(allow bool) Option {
	return func(s *Service) {
		s.allowMultiple = allow
	}
}

func New(challenges ChallengeStore, credentials CredentialStore, authenticator biometric.Authenticator, source biometric.ChallengeSource, opts ...Option) *Service {
	s := &Service{
		challenges:    challenges,
		credentials:   credentials,
		authenticator: authenticator,
		source:        source,
		ttl:           defaultChallengeTTL,
		tracer:        tracing.Tracer("clockgate/biometric"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueChallenge creates a challenge for identityID valid for the configured TTL.
func (s *Service) IssueChallenge(ctx context.Context, identityID id.IdentityID, purpose models.Purpose) (*models.Challenge, error) {
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown challenge purpose")
	}
	value, err := s.source.Next()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge")
	}
	now := requestcontext.Now(ctx)
	challenge := models.Challenge{
		Value:      value,
		IdentityID: identityID,
		Purpose:    purpose,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}
	s.metrics.IncrementIssued(string(purpose))
	return &challenge, nil
}

// VerifyRegistration consumes a registration challenge and stores the new
// credential. Unless multiple credentials are allowed it replaces any
// earlier one, so repeating registration is safe.
func (s *Service) VerifyRegistration(ctx context.Context, identityID id.IdentityID, resp models.RegistrationResponse) (_ *models.Credential, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "biometric.VerifyRegistration", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	challenge, err := s.consume(ctx, identityID, resp.Challenge, models.PurposeRegistration)
	if err != nil {
		s.recordFailure(ctx, "registration", identityID, err)
		return nil, err
	}
	if err := s.authenticator.VerifyRegistration(*challenge, resp); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInvalidResponse, "authenticator response did not verify")
		s.recordFailure(ctx, "registration", identityID, err)
		return nil, err
	}

	cred := &models.Credential{
		ID:            id.CredentialID(uuid.New()),
		IdentityID:    identityID,
		CredentialRef: resp.CredentialRef,
		PublicKey:     resp.PublicKey,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.credentials.Save(ctx, cred, !s.allowMultiple); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}
	s.metrics.IncrementVerification("registration", "ok")
	s.logAudit(ctx, audit.EventCredentialRegistered,
		"identity_id", identityID,
		"subject", cred.ID,
	)
	return cred, nil
}

// VerifyAuthentication consumes an authentication challenge and checks the
// assertion against the identity's registered credential.
func (s *Service) VerifyAuthentication(ctx context.Context, identityID id.IdentityID, resp models.AssertionResponse) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "biometric.VerifyAuthentication", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	challenge, err := s.consume(ctx, identityID, resp.Challenge, models.PurposeAuthentication)
	if err != nil {
		s.recordFailure(ctx, "authentication", identityID, err)
		return err
	}

	creds, err := s.credentials.ListByIdentity(ctx, identityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credentials")
	}
	var matched *models.Credential
	for _, c := range creds {
		if c.CredentialRef == resp.CredentialRef {
			matched = c
			break
		}
	}
	if matched == nil {
		err = dErrors.New(dErrors.CodeCredentialMismatch, "credential is not registered for this identity")
		s.recordFailure(ctx, "authentication", identityID, err)
		return err
	}

	if err := s.authenticator.VerifyAssertion(*challenge, *matched, resp); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInvalidResponse, "authenticator response did not verify")
		s.recordFailure(ctx, "authentication", identityID, err)
		return err
	}
	s.metrics.IncrementVerification("authentication", "ok")
	return nil
}

// HasCredential reports whether identityID has completed registration.
func (s *Service) HasCredential(ctx context.Context, identityID id.IdentityID) (bool, error) {
	creds, err := s.credentials.ListByIdentity(ctx, identityID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credentials")
	}
	return len(creds) > 0, nil
}

func (s *Service) consume(ctx context.Context, identityID id.IdentityID, value string, purpose models.Purpose) (*models.Challenge, error) {
	if value == "" {
		return nil, dErrors.New(dErrors.CodeInvalidResponse, "challenge is required")
	}
	challenge, err := s.challenges.Consume(ctx, identityID, value, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeInvalidResponse, "challenge was not issued or was already used")
	case errors.Is(err, sentinel.ErrExpired):
		return nil, dErrors.New(dErrors.CodeChallengeExpired, "challenge has expired")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume challenge")
	}
	if challenge.Purpose != purpose {
		return nil, dErrors.New(dErrors.CodeInvalidResponse, "challenge was issued for "+string(challenge.Purpose))
	}
	return challenge, nil
}

func (s *Service) recordFailure(ctx context.Context, ceremony string, identityID id.IdentityID, err error) {
	reason := string(dErrors.CodeInternal)
	if de, ok := dErrors.As(err); ok {
		reason = string(de.Code)
	}
	s.metrics.IncrementVerification(ceremony, reason)
	s.logAudit(ctx, audit.EventBiometricFailed,
		"identity_id", identityID,
		"reason", reason,
		"decision", ceremony,
	)
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
