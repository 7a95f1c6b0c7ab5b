package models

import (
	"encoding/base64"
	"strings"

	dErrors "clockgate/pkg/domain-errors"
)

// ChallengeRequest is the HTTP payload for POST /v1/biometric/challenges.
type ChallengeRequest struct {
	Purpose string `json:"purpose"`
}

func (r *ChallengeRequest) Validate() error {
	r.Purpose = strings.ToLower(strings.TrimSpace(r.Purpose))
	if r.Purpose == "" {
		r.Purpose = string(PurposeAuthentication)
	}
	if !Purpose(r.Purpose).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "purpose must be registration or authentication")
	}
	return nil
}

// RegistrationRequest is the HTTP payload for POST /v1/biometric/registrations.
// Binary fields are base64url without padding.
type RegistrationRequest struct {
	Challenge     string `json:"challenge"`
	CredentialRef string `json:"credential_id"`
	PublicKey     string `json:"public_key"`
	Signature     string `json:"signature"`

	publicKey []byte
	signature []byte
}

func (r *RegistrationRequest) Validate() error {
	r.Challenge = strings.TrimSpace(r.Challenge)
	r.CredentialRef = strings.TrimSpace(r.CredentialRef)
	if r.Challenge == "" || r.CredentialRef == "" {
		return dErrors.New(dErrors.CodeValidation, "challenge and credential_id are required")
	}
	var err error
	if r.publicKey, err = DecodeBinary(r.PublicKey); err != nil || len(r.publicKey) == 0 {
		return dErrors.New(dErrors.CodeValidation, "public_key must be base64url")
	}
	if r.signature, err = DecodeBinary(r.Signature); err != nil || len(r.signature) == 0 {
		return dErrors.New(dErrors.CodeValidation, "signature must be base64url")
	}
	return nil
}

func (r *RegistrationRequest) Response() RegistrationResponse {
	return RegistrationResponse{
		Challenge:     r.Challenge,
		CredentialRef: r.CredentialRef,
		PublicKey:     r.publicKey,
		Signature:     r.signature,
	}
}

// DecodeBinary accepts base64url with or without padding.
func DecodeBinary(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(s), "="))
}

func EncodeBinary(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
