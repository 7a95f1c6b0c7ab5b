package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/attendance/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// defaultHistoryDays is the window served when the caller omits from/to.
const defaultHistoryDays = 30

// Service defines the attendance operations exposed over HTTP.
type Service interface {
	History(ctx context.Context, identityID id.IdentityID, from, to time.Time) ([]*models.Record, error)
}

type Handler struct {
	service  Service
	location *time.Location
	logger   *slog.Logger
}

// New builds the handler. Query dates are calendar days in loc.
func New(service Service, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, location: loc, logger: logger}
}

// Register mounts attendance endpoints. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/attendance", h.HandleHistory)
}

// HandleHistory handles GET /attendance?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both days are inclusive.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	from, to, err := h.parseRange(ctx, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.History(ctx, identityID, from, to)
	if err != nil {
		h.logger.WarnContext(ctx, "attendance history failed",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := HistoryResponse{
		From:    from.Format(time.DateOnly),
		To:      to.AddDate(0, 0, -1).Format(time.DateOnly),
		Records: make([]RecordResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, toResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// parseRange returns [from, to) as local midnights.
func (h *Handler) parseRange(ctx context.Context, r *http.Request) (time.Time, time.Time, error) {
	now := requestcontext.Now(ctx).In(h.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)

	to := today
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, h.location)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeBadRequest, "to must be YYYY-MM-DD")
		}
		to = t
	}
	from := to.AddDate(0, 0, -(defaultHistoryDays - 1))
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, h.location)
		if err != nil {
			return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeBadRequest, "from must be YYYY-MM-DD")
		}
		from = t
	}
	return from, to.AddDate(0, 0, 1), nil
}
