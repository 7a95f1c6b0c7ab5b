package handler

import (
	"time"

	"clockgate/internal/lostdevice/models"
)

type RequestResponse struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identity_id"`
	Fingerprint string     `json:"fingerprint"`
	Reason      string     `json:"reason"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	Status      string     `json:"status"`
	ResponderID string     `json:"responder_id,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ListResponse struct {
	Requests []RequestResponse `json:"requests"`
}

func toResponse(r *models.Request) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID.String(),
		IdentityID:  r.IdentityID.String(),
		Fingerprint: r.Fingerprint,
		Reason:      r.Reason,
		StartDate:   r.StartDate.Format(time.DateOnly),
		EndDate:     r.EndDate.Format(time.DateOnly),
		Status:      string(r.Status),
		RespondedAt: r.RespondedAt,
		CreatedAt:   r.CreatedAt,
	}
	if r.ResponderID != nil {
		resp.ResponderID = r.ResponderID.String()
	}
	return resp
}
