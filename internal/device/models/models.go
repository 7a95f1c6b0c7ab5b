package models

import (
	"strings"
	"time"

	"clockgate/internal/device"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

// Device is a browser/phone an identity has enrolled for clocking.
//
// Invariants:
//   - Fingerprint is enrolled by at most one identity, ever
//   - At most one device per identity is primary
//   - A lost device is never trusted again; only a lost-device grant covers it
//   - Devices are never hard-deleted except through Remove
type Device struct {
	ID          id.DeviceID   `json:"id"`
	IdentityID  id.IdentityID `json:"identity_id"`
	Fingerprint string        `json:"fingerprint"`
	DisplayName string        `json:"display_name"`
	OS          string        `json:"os"`
	Browser     string        `json:"browser"`
	Primary     bool          `json:"primary"`
	Lost        bool          `json:"lost"`
	EnrolledAt  time.Time     `json:"enrolled_at"`
	LostAt      *time.Time    `json:"lost_at,omitempty"`
}

// TrustedBy reports whether the device satisfies trust for identityID.
func (d *Device) TrustedBy(identityID id.IdentityID) bool {
	return d.IdentityID == identityID && !d.Lost
}

// ApplyLost flags the device lost and clears primary so the identity's next
// enrollment becomes primary. Repeated calls keep the first LostAt.
func (d *Device) ApplyLost(now time.Time) {
	if d.Lost {
		return
	}
	d.Lost = true
	d.Primary = false
	d.LostAt = &now
}

// EnrollCommand is what the client reports about the device it is using.
type EnrollCommand struct {
	Fingerprint string
	DisplayName string
	OS          string
	Browser     string
}

// EnrollRequest is the HTTP payload for POST /v1/devices. A client that
// cannot compute its own fingerprint sends raw signals instead.
type EnrollRequest struct {
	Fingerprint string   `json:"fingerprint,omitempty"`
	Signals     []string `json:"signals,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	OS          string   `json:"os,omitempty"`
	Browser     string   `json:"browser,omitempty"`
}

const maxFingerprintLen = 128

func (r *EnrollRequest) Validate() error {
	r.Fingerprint = strings.ToLower(strings.TrimSpace(r.Fingerprint))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.Fingerprint == "" && len(r.Signals) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fingerprint or signals required")
	}
	if len(r.Fingerprint) > maxFingerprintLen {
		return dErrors.New(dErrors.CodeValidation, "fingerprint too long")
	}
	if len(r.DisplayName) > 64 {
		return dErrors.New(dErrors.CodeValidation, "display_name must be 64 characters or less")
	}
	return nil
}

// Command resolves the fingerprint and fills missing labels from the user agent.
func (r *EnrollRequest) Command(userAgent string) EnrollCommand {
	cmd := EnrollCommand{
		Fingerprint: r.Fingerprint,
		DisplayName: r.DisplayName,
		OS:          strings.TrimSpace(r.OS),
		Browser:     strings.TrimSpace(r.Browser),
	}
	if cmd.Fingerprint == "" {
		cmd.Fingerprint = device.ComputeFingerprint(userAgent, r.Signals...)
	}
	if cmd.OS == "" || cmd.Browser == "" {
		os, browser := device.DescribeUserAgent(userAgent)
		if cmd.OS == "" {
			cmd.OS = os
		}
		if cmd.Browser == "" {
			cmd.Browser = browser
		}
	}
	if cmd.DisplayName == "" {
		cmd.DisplayName = device.ParseUserAgent(userAgent)
	}
	return cmd
}

