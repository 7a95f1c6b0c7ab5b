package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/device/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the device operations exposed over HTTP.
type Service interface {
	Enroll(ctx context.Context, identityID id.IdentityID, cmd models.EnrollCommand) (*models.Device, error)
	List(ctx context.Context, identityID id.IdentityID) ([]*models.Device, error)
	Remove(ctx context.Context, identityID id.IdentityID, fingerprint string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts device endpoints. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/devices", h.HandleEnroll)
	r.Get("/devices", h.HandleList)
	r.Delete("/devices/{fingerprint}", h.HandleRemove)
}

// HandleEnroll handles POST /devices.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	device, err := h.service.Enroll(ctx, identityID, req.Command(r.UserAgent()))
	if err != nil {
		h.logger.WarnContext(ctx, "device enrollment failed",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(device))
}

// HandleList handles GET /devices.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	devices, err := h.service.List(ctx, identityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list devices",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Devices: make([]DeviceResponse, 0, len(devices))}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, toResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRemove handles DELETE /devices/{fingerprint}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	fingerprint := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "fingerprint")))
	if fingerprint == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "fingerprint is required"))
		return
	}
	if err := h.service.Remove(ctx, identityID, fingerprint); err != nil {
		h.logger.WarnContext(ctx, "device removal failed",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireIdentity(w http.ResponseWriter, ctx context.Context) (id.IdentityID, bool) {
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return identityID, false
	}
	return identityID, true
}
