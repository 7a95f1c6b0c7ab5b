package handler

import (
	"time"

	"clockgate/internal/attendance/models"
)

type RecordResponse struct {
	ID       string     `json:"id"`
	Station  string     `json:"station"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
	Status   string     `json:"status,omitempty"`
	Timing   string     `json:"timing,omitempty"`
	Hours    *float64   `json:"hours,omitempty"`
}

type HistoryResponse struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Records []RecordResponse `json:"records"`
}

func toResponse(rec *models.Record) RecordResponse {
	resp := RecordResponse{
		ID:       rec.ID.String(),
		Station:  rec.Station.String(),
		ClockIn:  rec.ClockIn,
		ClockOut: rec.ClockOut,
	}
	if c := rec.Classification; c != nil {
		resp.Status = string(c.Status)
		resp.Timing = string(c.Timing)
		hours := c.Hours
		resp.Hours = &hours
	}
	return resp
}
