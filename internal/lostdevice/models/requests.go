package models

import (
	"strings"
	"time"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

const maxReasonLen = 500

// SubmitRequest is the HTTP payload for POST /v1/lost-device-requests.
type SubmitRequest struct {
	Fingerprint string `json:"fingerprint"`
	Reason      string `json:"reason"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`

	start time.Time
	end   time.Time
}

func (r *SubmitRequest) Validate() error {
	r.Fingerprint = strings.ToLower(strings.TrimSpace(r.Fingerprint))
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Fingerprint == "" {
		return dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	if len(r.Reason) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	var err error
	if r.start, err = id.ParseDate(strings.TrimSpace(r.StartDate)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "start_date must be YYYY-MM-DD")
	}
	if r.end, err = id.ParseDate(strings.TrimSpace(r.EndDate)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "end_date must be YYYY-MM-DD")
	}
	return nil
}

func (r *SubmitRequest) Command() SubmitCommand {
	return SubmitCommand{
		Fingerprint: r.Fingerprint,
		Reason:      r.Reason,
		StartDate:   r.start,
		EndDate:     r.end,
	}
}

type SubmitCommand struct {
	Fingerprint string
	Reason      string
	StartDate   time.Time
	EndDate     time.Time
}

// RespondRequest is the HTTP payload for the admin respond endpoint.
type RespondRequest struct {
	Decision string `json:"decision"`

	decision Decision
}

func (r *RespondRequest) Validate() error {
	d, err := ParseDecision(strings.ToLower(strings.TrimSpace(r.Decision)))
	if err != nil {
		return err
	}
	r.decision = d
	return nil
}

func (r *RespondRequest) ParsedDecision() Decision {
	return r.decision
}
