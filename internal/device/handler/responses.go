package handler

import (
	"time"

	"clockgate/internal/device/models"
)

type DeviceResponse struct {
	ID          string     `json:"id"`
	Fingerprint string     `json:"fingerprint"`
	DisplayName string     `json:"display_name"`
	OS          string     `json:"os"`
	Browser     string     `json:"browser"`
	Primary     bool       `json:"primary"`
	Lost        bool       `json:"lost"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	LostAt      *time.Time `json:"lost_at,omitempty"`
}

type ListResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

func toResponse(d *models.Device) DeviceResponse {
	return DeviceResponse{
		ID:          d.ID.String(),
		Fingerprint: d.Fingerprint,
		DisplayName: d.DisplayName,
		OS:          d.OS,
		Browser:     d.Browser,
		Primary:     d.Primary,
		Lost:        d.Lost,
		EnrolledAt:  d.EnrolledAt,
		LostAt:      d.LostAt,
	}
}
