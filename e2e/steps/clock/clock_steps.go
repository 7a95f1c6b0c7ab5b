package clock

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	IdentityID() string
	SetFingerprint(fp string)
}

// RegisterSteps registers location, biometric and clock attempt steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &clockSteps{tc: tc}

	ctx.Step(`^the employee reports position ([-0-9.]+), ([-0-9.]+) at station "([^"]*)"$`, steps.reportPosition)
	ctx.Step(`^the employee registers a biometric credential$`, steps.registerCredential)
	ctx.Step(`^the employee clocks (in|out)$`, steps.clock)
	ctx.Step(`^the employee switches to an unknown device$`, steps.switchDevice)
	ctx.Step(`^the session phase should be "([^"]*)"$`, steps.phaseShouldBe)
}

type clockSteps struct {
	tc            TestContext
	key           *ecdsa.PrivateKey
	credentialRef string
}

func (s *clockSteps) reportPosition(ctx context.Context, lat, lng, station string) error {
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return err
	}
	longitude, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/clock/location", map[string]any{
		"station":   station,
		"latitude":  latitude,
		"longitude": longitude,
	})
}

func (s *clockSteps) registerCredential(ctx context.Context) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}
	s.key = key
	s.credentialRef = "e2e-credential"

	challenge, err := s.challenge("registration")
	if err != nil {
		return err
	}
	signature, err := s.sign(challenge, "registration")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/biometric/registrations", map[string]string{
		"challenge":     challenge,
		"credential_id": s.credentialRef,
		"public_key":    encode(der),
		"signature":     signature,
	})
}

func (s *clockSteps) clock(ctx context.Context, direction string) error {
	if s.key == nil {
		return errors.New("no biometric credential registered in this scenario")
	}
	challenge, err := s.challenge("authentication")
	if err != nil {
		return err
	}
	signature, err := s.sign(challenge, "authentication")
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/clock/attempts", map[string]string{
		"direction":     direction,
		"challenge":     challenge,
		"credential_id": s.credentialRef,
		"signature":     signature,
	})
}

func (s *clockSteps) switchDevice(ctx context.Context) error {
	s.tc.SetFingerprint("e2e-unknown-device")
	return nil
}

func (s *clockSteps) phaseShouldBe(ctx context.Context, phase string) error {
	got, err := s.tc.GetResponseField("session.phase")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != phase {
		return fmt.Errorf("expected phase %q, got %q", phase, got)
	}
	return nil
}

func (s *clockSteps) challenge(purpose string) (string, error) {
	if err := s.tc.POST("/v1/biometric/challenges", map[string]string{"purpose": purpose}); err != nil {
		return "", err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusCreated {
		return "", fmt.Errorf("issue %s challenge: status %d", purpose, status)
	}
	value, err := s.tc.GetResponseField("challenge")
	if err != nil {
		return "", err
	}
	return fmt.Sprint(value), nil
}

// sign produces what a platform authenticator returns: an ASN.1 ECDSA
// signature over the challenge bound to the identity and purpose.
func (s *clockSteps) sign(challenge, purpose string) (string, error) {
	digest := sha256.Sum256([]byte(challenge + "\x1f" + s.tc.IdentityID() + "\x1f" + purpose))
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return "", err
	}
	return encode(sig), nil
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
