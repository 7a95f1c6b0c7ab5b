package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/biometric"
	"clockgate/internal/biometric/models"
	"clockgate/internal/biometric/store"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/audit/publisher"
	auditmemory "clockgate/pkg/platform/audit/store/memory"
	"clockgate/pkg/requestcontext"
)

type BiometricServiceSuite struct {
	suite.Suite
	now     time.Time
	ctx     context.Context
	service *Service
	audit   *auditmemory.InMemoryStore
	owner   id.IdentityID
}

func TestBiometricServiceSuite(t *testing.T) {
	suite.Run(t, new(BiometricServiceSuite))
}

func (s *BiometricServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.audit = auditmemory.NewInMemoryStore()
	double := biometric.NewDeterministic()
	s.service = New(store.NewChallengeMemory(), store.NewCredentialMemory(), double, double,
		WithAuditPublisher(publisher.NewPublisher(s.audit)))
	s.owner = id.IdentityID(uuid.New())
}

func (s *BiometricServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *BiometricServiceSuite) register(ref string) *models.Credential {
	ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeRegistration)
	s.Require().NoError(err)
	cred, err := s.service.VerifyRegistration(s.ctx, s.owner, models.RegistrationResponse{
		Challenge:     ch.Value,
		CredentialRef: ref,
		PublicKey:     []byte("pk"),
		Signature:     []byte(biometric.DeterministicSignature(ch.Value, ref)),
	})
	s.Require().NoError(err)
	return cred
}

func (s *BiometricServiceSuite) TestIssueChallenge() {
	ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeAuthentication)
	s.Require().NoError(err)
	s.Equal("challenge-1", ch.Value)
	s.Equal(s.now.Add(2*time.Minute), ch.ExpiresAt)

	_, err = s.service.IssueChallenge(s.ctx, s.owner, models.Purpose("other"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *BiometricServiceSuite) TestVerifyRegistration() {
	s.Run("registration replaces the earlier credential", func() {
		s.register("cred-1")
		s.register("cred-2")
		has, err := s.service.HasCredential(s.ctx, s.owner)
		s.Require().NoError(err)
		s.True(has)

		ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeAuthentication)
		s.Require().NoError(err)
		err = s.service.VerifyAuthentication(s.ctx, s.owner, models.AssertionResponse{
			Challenge: ch.Value, CredentialRef: "cred-1",
			Signature: []byte(biometric.DeterministicSignature(ch.Value, "cred-1")),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeCredentialMismatch))
	})

	s.Run("bad signature", func() {
		ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeRegistration)
		s.Require().NoError(err)
		_, err = s.service.VerifyRegistration(s.ctx, s.owner, models.RegistrationResponse{
			Challenge: ch.Value, CredentialRef: "x", Signature: []byte("forged"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
	})

	s.Run("authentication challenge cannot register", func() {
		ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeAuthentication)
		s.Require().NoError(err)
		_, err = s.service.VerifyRegistration(s.ctx, s.owner, models.RegistrationResponse{
			Challenge: ch.Value, CredentialRef: "x",
			Signature: []byte(biometric.DeterministicSignature(ch.Value, "x")),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
	})
}

func (s *BiometricServiceSuite) TestVerifyAuthentication() {
	s.register("cred-1")
	issue := func() *models.Challenge {
		ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeAuthentication)
		s.Require().NoError(err)
		return ch
	}
	assertion := func(ch *models.Challenge) models.AssertionResponse {
		return models.AssertionResponse{
			Challenge: ch.Value, CredentialRef: "cred-1",
			Signature: []byte(biometric.DeterministicSignature(ch.Value, "cred-1")),
		}
	}

	s.Run("valid assertion", func() {
		s.NoError(s.service.VerifyAuthentication(s.ctx, s.owner, assertion(issue())))
	})

	s.Run("replay is rejected", func() {
		ch := issue()
		s.Require().NoError(s.service.VerifyAuthentication(s.ctx, s.owner, assertion(ch)))
		err := s.service.VerifyAuthentication(s.ctx, s.owner, assertion(ch))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
	})

	s.Run("presented after expiry", func() {
		ch := issue()
		err := s.service.VerifyAuthentication(s.at(2*time.Minute+time.Second), s.owner, assertion(ch))
		s.True(dErrors.HasCode(err, dErrors.CodeChallengeExpired))
	})

	s.Run("presented just before expiry", func() {
		ch := issue()
		s.NoError(s.service.VerifyAuthentication(s.at(2*time.Minute-time.Second), s.owner, assertion(ch)))
	})

	s.Run("bound to the issuing identity", func() {
		ch := issue()
		err := s.service.VerifyAuthentication(s.ctx, id.IdentityID(uuid.New()), assertion(ch))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
	})

	s.Run("wrong signature", func() {
		ch := issue()
		resp := assertion(ch)
		resp.Signature = []byte("nope")
		err := s.service.VerifyAuthentication(s.ctx, s.owner, resp)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
	})

	events, err := s.audit.ListByIdentity(s.ctx, s.owner)
	s.Require().NoError(err)
	var failures int
	for _, e := range events {
		if e.Action == string(audit.EventBiometricFailed) {
			failures++
		}
	}
	s.Equal(3, failures)
}

func (s *BiometricServiceSuite) TestMultipleCredentials() {
	double := biometric.NewDeterministic()
	s.service = New(store.NewChallengeMemory(), store.NewCredentialMemory(), double, double,
		WithMultipleCredentials(true))
	s.register("cred-1")
	s.register("cred-2")

	for _, ref := range []string{"cred-1", "cred-2"} {
		ch, err := s.service.IssueChallenge(s.ctx, s.owner, models.PurposeAuthentication)
		s.Require().NoError(err)
		s.NoError(s.service.VerifyAuthentication(s.ctx, s.owner, models.AssertionResponse{
			Challenge: ch.Value, CredentialRef: ref,
			Signature: []byte(biometric.DeterministicSignature(ch.Value, ref)),
		}))
	}
}
