package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/stats"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the statistics operations exposed over HTTP.
type Service interface {
	ForIdentity(ctx context.Context, identityID id.IdentityID, period stats.Period, day time.Time) (*stats.IdentityStats, error)
	ForOrganization(ctx context.Context, period stats.Period, day time.Time) (*stats.OrganizationStats, error)
}

type Handler struct {
	service  Service
	location *time.Location
	logger   *slog.Logger
}

// New builds the handler. The date query parameter is a calendar day in loc.
func New(service Service, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, location: loc, logger: logger}
}

// Register mounts the caller's own statistics. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.HandleIdentityStats)
}

// RegisterAdmin mounts organization statistics. Routes expect RequireAdmin upstream.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/stats/organization", h.HandleOrganizationStats)
}

// HandleIdentityStats handles GET /stats?period=week|month&date=YYYY-MM-DD.
func (h *Handler) HandleIdentityStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	period, day, err := h.parseQuery(ctx, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ForIdentity(ctx, identityID, period, day)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute statistics",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleOrganizationStats handles GET /stats/organization.
func (h *Handler) HandleOrganizationStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, day, err := h.parseQuery(ctx, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ForOrganization(ctx, period, day)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute organization statistics",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) parseQuery(ctx context.Context, r *http.Request) (stats.Period, time.Time, error) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", time.Time{}, err
	}
	day := requestcontext.Now(ctx).In(h.location)
	if v := r.URL.Query().Get("date"); v != "" {
		day, err = time.ParseInLocation(time.DateOnly, v, h.location)
		if err != nil {
			return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD")
		}
	}
	return period, day, nil
}
