package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/attendance"
	attmodels "clockgate/internal/attendance/models"
	attservice "clockgate/internal/attendance/service"
	attstore "clockgate/internal/attendance/store"
	"clockgate/internal/biometric"
	biomodels "clockgate/internal/biometric/models"
	bioservice "clockgate/internal/biometric/service"
	biostore "clockgate/internal/biometric/store"
	"clockgate/internal/clock/metrics"
	"clockgate/internal/clock/models"
	"clockgate/internal/clock/store"
	devmodels "clockgate/internal/device/models"
	devservice "clockgate/internal/device/service"
	devstore "clockgate/internal/device/store"
	"clockgate/internal/geo"
	idmodels "clockgate/internal/identity/models"
	idservice "clockgate/internal/identity/service"
	idstore "clockgate/internal/identity/store"
	lostmodels "clockgate/internal/lostdevice/models"
	lostservice "clockgate/internal/lostdevice/service"
	loststore "clockgate/internal/lostdevice/store"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/audit/publisher"
	auditmemory "clockgate/pkg/platform/audit/store/memory"
	"clockgate/pkg/requestcontext"
)

const credentialRef = "cred-1"

var (
	office  = geo.Position{Lat: -1.2921, Lng: 36.8219}
	faraway = geo.Position{Lat: -1.3000, Lng: 36.9000}
)

type ClockServiceSuite struct {
	suite.Suite
	day        time.Time
	service    *Service
	sessions   *store.InMemory
	devices    *devservice.Service
	lost       *lostservice.Service
	biometrics *bioservice.Service
	identities *idservice.Service
	attendance *attservice.Service
	audit      *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	owner      id.IdentityID
}

func TestClockServiceSuite(t *testing.T) {
	suite.Run(t, new(ClockServiceSuite))
}

func (s *ClockServiceSuite) SetupTest() {
	s.day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	catalogue, err := geo.NewCatalogue(
		geo.Station{Code: "hq", Name: "Head office", Position: office, RadiusMeters: 150,
			ExpectedStart: 8 * time.Hour, LateGrace: 15 * time.Minute},
		geo.Station{Code: "depot", Name: "Depot", Position: faraway, RadiusMeters: 150,
			ExpectedStart: 8 * time.Hour},
	)
	s.Require().NoError(err)

	s.audit = auditmemory.NewInMemoryStore()
	auditPublisher := publisher.NewPublisher(s.audit)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.sessions = store.NewInMemory()
	s.devices = devservice.New(devstore.NewInMemory(), 2)
	s.lost = lostservice.New(loststore.NewInMemory(), s.devices, 30)
	double := biometric.NewDeterministic()
	s.biometrics = bioservice.New(biostore.NewChallengeMemory(), biostore.NewCredentialMemory(), double, double)
	s.identities = idservice.New(idstore.NewInMemory())
	s.attendance = attservice.New(attstore.NewInMemory(), catalogue, attendance.NewClassifier(7, time.UTC))

	s.service, err = New(Dependencies{
		Sessions:   s.sessions,
		Stations:   catalogue,
		Identities: s.identities,
		Devices:    s.devices,
		Grants:     s.lost,
		Biometrics: s.biometrics,
		Attendance: s.attendance,
	}, WithAuditPublisher(auditPublisher), WithMetrics(s.metrics))
	s.Require().NoError(err)

	s.owner = s.employ()
}

func (s *ClockServiceSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.day.Add(offset))
}

func (s *ClockServiceSuite) employ() id.IdentityID {
	ctx := s.at(0)
	identity, err := s.identities.Register(ctx, idmodels.RegisterCommand{
		Name:       "Amina Otieno",
		Role:       id.RoleEmployee,
		Department: "operations",
		ValidFrom:  s.day.AddDate(0, -1, 0),
	})
	s.Require().NoError(err)
	_, err = s.identities.Approve(ctx, identity.ID, id.IdentityID(uuid.New()))
	s.Require().NoError(err)
	return identity.ID
}

func (s *ClockServiceSuite) enroll(fingerprint string) {
	_, err := s.devices.Enroll(s.at(0), s.owner, devmodels.EnrollCommand{Fingerprint: fingerprint})
	s.Require().NoError(err)
}

func (s *ClockServiceSuite) registerCredential(ctx context.Context) *models.Session {
	ch, err := s.biometrics.IssueChallenge(ctx, s.owner, biomodels.PurposeRegistration)
	s.Require().NoError(err)
	_, session, err := s.service.CompleteBiometricRegistration(ctx, s.owner, biomodels.RegistrationResponse{
		Challenge:     ch.Value,
		CredentialRef: credentialRef,
		PublicKey:     []byte("pk"),
		Signature:     []byte(biometric.DeterministicSignature(ch.Value, credentialRef)),
	})
	s.Require().NoError(err)
	return session
}

func (s *ClockServiceSuite) attempt(ctx context.Context, fingerprint string, direction models.Direction) (*models.AttemptResult, error) {
	ch, err := s.biometrics.IssueChallenge(ctx, s.owner, biomodels.PurposeAuthentication)
	s.Require().NoError(err)
	return s.service.AttemptClock(ctx, s.owner, models.AttemptCommand{
		Direction:   direction,
		Fingerprint: fingerprint,
		Assertion: biomodels.AssertionResponse{
			Challenge:     ch.Value,
			CredentialRef: credentialRef,
			Signature:     []byte(biometric.DeterministicSignature(ch.Value, credentialRef)),
		},
	})
}

// ready leaves the owner verified at hq with a credential and fp-1 enrolled.
func (s *ClockServiceSuite) ready(ctx context.Context) {
	s.enroll("fp-1")
	s.registerCredential(ctx)
	session, _, err := s.service.VerifyLocation(ctx, s.owner, "hq", office)
	s.Require().NoError(err)
	s.Require().Equal(models.PhaseReadyToClockIn, session.Phase)
}

func (s *ClockServiceSuite) phase() models.Phase {
	session, err := s.service.Session(s.at(0), s.owner)
	s.Require().NoError(err)
	return session.Phase
}

func (s *ClockServiceSuite) actions() []string {
	events, err := s.audit.ListByIdentity(context.Background(), s.owner)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ClockServiceSuite) TestFullDay() {
	s.enroll("fp-1")
	morning := s.at(7*time.Hour + 55*time.Minute)

	session, result, err := s.service.VerifyLocation(morning, s.owner, "hq", office)
	s.Require().NoError(err)
	s.True(result.WithinGeofence)
	s.Equal(0, result.DistanceMeters)
	s.Equal(models.PhaseBiometricPending, session.Phase)

	session = s.registerCredential(morning)
	s.Equal(models.PhaseReadyToClockIn, session.Phase)

	in, err := s.attempt(morning, "fp-1", "")
	s.Require().NoError(err)
	s.Equal(models.DirectionIn, in.Direction)
	s.Equal(models.PhaseReadyToClockOut, in.Session.Phase)
	s.False(in.Record.Sealed())

	evening := s.at(17 * time.Hour)
	session, _, err = s.service.VerifyLocation(evening, s.owner, "hq", office)
	s.Require().NoError(err)
	s.Equal(models.PhaseReadyToClockOut, session.Phase, "open record drives the phase after re-verification")

	out, err := s.attempt(evening, "fp-1", models.DirectionOut)
	s.Require().NoError(err)
	s.Equal(models.PhaseReadyToClockIn, out.Session.Phase)
	s.Require().NotNil(out.Record.Classification)
	s.Equal(attmodels.StatusPresent, out.Record.Classification.Status)
	s.Equal(attmodels.TimingEarly, out.Record.Classification.Timing)

	s.Contains(s.actions(), string(audit.EventClockedIn))
	s.Contains(s.actions(), string(audit.EventClockedOut))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Attempts.WithLabelValues("in", "accepted")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Attempts.WithLabelValues("out", "accepted")))
}

func (s *ClockServiceSuite) TestVerifyLocation() {
	ctx := s.at(8 * time.Hour)

	s.Run("outside the geofence leaves the session unverified", func() {
		session, result, err := s.service.VerifyLocation(ctx, s.owner, "hq", faraway)
		s.True(dErrors.HasCode(err, dErrors.CodeOutsideGeofence))
		s.False(result.WithinGeofence)
		s.Greater(result.DistanceMeters, 150)
		s.Equal(models.PhaseLocationUnverified, session.Phase)
		s.Equal(models.PhaseLocationUnverified, s.phase())
	})

	s.Run("invalid coordinates", func() {
		_, _, err := s.service.VerifyLocation(ctx, s.owner, "hq", geo.Position{Lat: 91, Lng: 0})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCoordinates))
	})

	s.Run("unknown station", func() {
		_, _, err := s.service.VerifyLocation(ctx, s.owner, "nowhere", office)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("repeating a verification is idempotent", func() {
		first, _, err := s.service.VerifyLocation(ctx, s.owner, "hq", office)
		s.Require().NoError(err)
		second, _, err := s.service.VerifyLocation(ctx, s.owner, "hq", office)
		s.Require().NoError(err)
		s.Equal(first.Phase, second.Phase)
		s.Equal(first.Station, second.Station)
	})

	s.Run("failing at a new station drops the earlier verification", func() {
		_, _, err := s.service.VerifyLocation(ctx, s.owner, "depot", office)
		s.True(dErrors.HasCode(err, dErrors.CodeOutsideGeofence))
		session, err := s.service.Session(ctx, s.owner)
		s.Require().NoError(err)
		s.Equal(id.StationCode("depot"), session.Station)
		s.Nil(session.VerifiedAt)
	})
}

func (s *ClockServiceSuite) TestRegistrationWithoutDevices() {
	ctx := s.at(8 * time.Hour)
	session, _, err := s.service.VerifyLocation(ctx, s.owner, "hq", office)
	s.Require().NoError(err)
	s.Equal(models.PhaseBiometricPending, session.Phase)

	session = s.registerCredential(ctx)
	s.Equal(models.PhaseReadyToClockIn, session.Phase)
}

func (s *ClockServiceSuite) TestRegistrationBeforeLocation() {
	session := s.registerCredential(s.at(8 * time.Hour))
	s.Equal(models.PhaseLocationUnverified, session.Phase)
}

func (s *ClockServiceSuite) TestAttemptGates() {
	s.Run("before location verification", func() {
		_, err := s.attempt(s.at(8*time.Hour), "fp-1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	ctx := s.at(8 * time.Hour)
	s.ready(ctx)

	s.Run("untrusted device without a grant", func() {
		_, err := s.attempt(ctx, "fp-unknown", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUntrustedDevice))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
		open, err := s.attendance.OpenRecord(ctx, s.owner)
		s.Require().NoError(err)
		s.Nil(open)
		s.Contains(s.actions(), string(audit.EventClockRejected))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Attempts.WithLabelValues("in", "untrusted_device")))
	})

	s.Run("direction must match the session", func() {
		_, err := s.attempt(ctx, "fp-1", models.DirectionOut)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
	})

	s.Run("record state is checked before the challenge is spent", func() {
		_, err := s.attendance.ClockIn(ctx, s.owner, "hq")
		s.Require().NoError(err)

		ch, err := s.biometrics.IssueChallenge(ctx, s.owner, biomodels.PurposeAuthentication)
		s.Require().NoError(err)
		assertion := biomodels.AssertionResponse{
			Challenge:     ch.Value,
			CredentialRef: credentialRef,
			Signature:     []byte(biometric.DeterministicSignature(ch.Value, credentialRef)),
		}
		_, err = s.service.AttemptClock(ctx, s.owner, models.AttemptCommand{Fingerprint: "fp-1", Assertion: assertion})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
		s.NoError(s.biometrics.VerifyAuthentication(ctx, s.owner, assertion), "challenge is still outstanding")

		_, err = s.attendance.ClockOut(s.at(9*time.Hour), s.owner)
		s.Require().NoError(err)
	})

	s.Run("bad biometric signature", func() {
		ch, err := s.biometrics.IssueChallenge(ctx, s.owner, biomodels.PurposeAuthentication)
		s.Require().NoError(err)
		_, err = s.service.AttemptClock(ctx, s.owner, models.AttemptCommand{
			Fingerprint: "fp-1",
			Assertion: biomodels.AssertionResponse{
				Challenge:     ch.Value,
				CredentialRef: credentialRef,
				Signature:     []byte("forged"),
			},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidResponse))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
	})

	s.Run("stale location", func() {
		_, err := s.attempt(s.at(8*time.Hour+11*time.Minute), "fp-1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeLocationExpired))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
	})

	s.Run("deactivated identity", func() {
		_, err := s.identities.Deactivate(ctx, s.owner)
		s.Require().NoError(err)
		_, err = s.attempt(ctx, "fp-1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotEmployed))
		s.Equal(models.PhaseReadyToClockIn, s.phase())
	})
}

func (s *ClockServiceSuite) TestLostDeviceGrant() {
	ctx := s.at(8 * time.Hour)
	s.ready(ctx)

	req, err := s.lost.Submit(ctx, s.owner, lostmodels.SubmitCommand{
		Fingerprint: "fp-1",
		Reason:      "phone stolen",
		StartDate:   s.day,
		EndDate:     s.day.AddDate(0, 0, 2),
	})
	s.Require().NoError(err)
	_, err = s.lost.Respond(ctx, req.ID, id.IdentityID(uuid.New()), lostmodels.DecisionGranted)
	s.Require().NoError(err)

	s.Run("the lost device itself is no longer trusted but the grant covers any device", func() {
		trusted, err := s.devices.IsTrusted(ctx, s.owner, "fp-1")
		s.Require().NoError(err)
		s.False(trusted)

		result, err := s.attempt(ctx, "borrowed-laptop", "")
		s.Require().NoError(err)
		s.Equal(models.DirectionIn, result.Direction)
	})

	s.Run("the grant lapses after its end date", func() {
		later := s.at(3*24*time.Hour + 17*time.Hour)
		_, _, err := s.service.VerifyLocation(later, s.owner, "hq", office)
		s.Require().NoError(err)
		_, err = s.attempt(later, "borrowed-laptop", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUntrustedDevice))
		s.Equal(models.PhaseReadyToClockOut, s.phase())
	})
}

func (s *ClockServiceSuite) TestConcurrentAttemptsClockInOnce() {
	ctx := s.at(8 * time.Hour)
	s.ready(ctx)

	const workers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := s.biometrics.IssueChallenge(ctx, s.owner, biomodels.PurposeAuthentication)
			if err != nil {
				return
			}
			_, err = s.service.AttemptClock(ctx, s.owner, models.AttemptCommand{
				Direction:   models.DirectionIn,
				Fingerprint: "fp-1",
				Assertion: biomodels.AssertionResponse{
					Challenge:     ch.Value,
					CredentialRef: credentialRef,
					Signature:     []byte(biometric.DeterministicSignature(ch.Value, credentialRef)),
				},
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, accepted)
	s.Equal(models.PhaseReadyToClockOut, s.phase())
}

func (s *ClockServiceSuite) TestNewRequiresDependencies() {
	_, err := New(Dependencies{})
	s.Error(err)
}
