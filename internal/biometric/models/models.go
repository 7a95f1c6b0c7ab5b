package models

import (
	"time"

	id "clockgate/pkg/domain"
)

// Purpose binds a challenge to the ceremony it was issued for.
type Purpose string

const (
	PurposeRegistration   Purpose = "registration"
	PurposeAuthentication Purpose = "authentication"
)

func (p Purpose) IsValid() bool {
	return p == PurposeRegistration || p == PurposeAuthentication
}

// Challenge is an opaque single-use nonce bound to one identity.
type Challenge struct {
	Value      string        `json:"value"`
	IdentityID id.IdentityID `json:"identity_id"`
	Purpose    Purpose       `json:"purpose"`
	IssuedAt   time.Time     `json:"issued_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

func (c *Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Credential is a registered platform-authenticator public key.
type Credential struct {
	ID            id.CredentialID `json:"id"`
	IdentityID    id.IdentityID   `json:"identity_id"`
	CredentialRef string          `json:"credential_ref"`
	PublicKey     []byte          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RegistrationResponse is what the authenticator returns for a
// registration challenge: a new credential plus proof of key possession.
type RegistrationResponse struct {
	Challenge     string
	CredentialRef string
	PublicKey     []byte
	Signature     []byte
}

// AssertionResponse is the authenticator's answer to an authentication challenge.
type AssertionResponse struct {
	Challenge     string
	CredentialRef string
	Signature     []byte
}
