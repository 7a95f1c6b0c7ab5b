// Package biometric verifies platform-authenticator responses. The
// challenge lifecycle lives in the service subpackage; this package only
// checks signatures.
package biometric

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"clockgate/internal/biometric/models"
)

var (
	ErrInvalidSignature = errors.New("signature does not verify")
	ErrUnsupportedKey   = errors.New("unsupported public key")
)

// Authenticator checks authenticator responses against issued challenges.
type Authenticator interface {
	VerifyRegistration(challenge models.Challenge, resp models.RegistrationResponse) error
	VerifyAssertion(challenge models.Challenge, credential models.Credential, resp models.AssertionResponse) error
}

// ChallengeSource produces challenge values.
type ChallengeSource interface {
	Next() (string, error)
}

// RandomSource returns 32 random bytes, base64url encoded.
type RandomSource struct{}

func (RandomSource) Next() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random challenge: %w", err)
	}
	return models.EncodeBinary(b), nil
}

// SignedDigest is what the authenticator signs: the challenge bound to its
// identity and purpose.
func SignedDigest(challenge models.Challenge) []byte {
	sum := sha256.Sum256([]byte(challenge.Value + "\x1f" + challenge.IdentityID.String() + "\x1f" + string(challenge.Purpose)))
	return sum[:]
}

// ECDSAAuthenticator verifies P-256 ECDSA signatures over SignedDigest,
// with public keys in PKIX DER form.
type ECDSAAuthenticator struct{}

func (ECDSAAuthenticator) VerifyRegistration(challenge models.Challenge, resp models.RegistrationResponse) error {
	pub, err := parseP256(resp.PublicKey)
	if err != nil {
		return err
	}
	if !ecdsa.VerifyASN1(pub, SignedDigest(challenge), resp.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

func (ECDSAAuthenticator) VerifyAssertion(challenge models.Challenge, credential models.Credential, resp models.AssertionResponse) error {
	pub, err := parseP256(credential.PublicKey)
	if err != nil {
		return err
	}
	if !ecdsa.VerifyASN1(pub, SignedDigest(challenge), resp.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

func parseP256(der []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, ErrUnsupportedKey
	}
	return pub, nil
}

// Deterministic is a test double. It issues numbered challenges and accepts
// DeterministicSignature as the only valid signature.
type Deterministic struct {
	mu   sync.Mutex
	next int
}

func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (d *Deterministic) Next() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	return fmt.Sprintf("challenge-%d", d.next), nil
}

func (d *Deterministic) VerifyRegistration(challenge models.Challenge, resp models.RegistrationResponse) error {
	if string(resp.Signature) != DeterministicSignature(challenge.Value, resp.CredentialRef) {
		return ErrInvalidSignature
	}
	return nil
}

func (d *Deterministic) VerifyAssertion(challenge models.Challenge, credential models.Credential, resp models.AssertionResponse) error {
	if string(resp.Signature) != DeterministicSignature(challenge.Value, credential.CredentialRef) {
		return ErrInvalidSignature
	}
	return nil
}

func DeterministicSignature(challenge, credentialRef string) string {
	return "signed:" + challenge + ":" + credentialRef
}
