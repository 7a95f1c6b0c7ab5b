package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/lostdevice/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the lost-device operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, identityID id.IdentityID, cmd models.SubmitCommand) (*models.Request, error)
	Respond(ctx context.Context, requestID id.LostRequestID, responderID id.IdentityID, decision models.Decision) (*models.Request, error)
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.Request, error)
	ListPending(ctx context.Context) ([]*models.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the identity-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/lost-device-requests", h.HandleSubmit)
	r.Get("/lost-device-requests", h.HandleListOwn)
}

// RegisterAdmin mounts the responder endpoints. Routes expect RequireAdmin upstream.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/lost-device-requests", h.HandleListPending)
	r.Post("/lost-device-requests/{id}/respond", h.HandleRespond)
}

// HandleSubmit handles POST /lost-device-requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.service.Submit(ctx, identityID, req.Command())
	if err != nil {
		h.logger.WarnContext(ctx, "lost device request rejected",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(created))
}

// HandleListOwn handles GET /lost-device-requests.
func (h *Handler) HandleListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	requests, err := h.service.ListByIdentity(ctx, identityID)
	h.writeList(w, r, requests, err)
}

// HandleListPending handles GET /admin/lost-device-requests.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListPending(r.Context())
	h.writeList(w, r, requests, err)
}

// HandleRespond handles POST /admin/lost-device-requests/{id}/respond.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	lostRequestID, err := id.ParseLostRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.RespondRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	responderID := requestcontext.IdentityID(ctx)
	resolved, err := h.service.Respond(ctx, lostRequestID, responderID, req.ParsedDecision())
	if err != nil {
		h.logger.WarnContext(ctx, "lost device response failed",
			"request_id", requestID,
			"lost_request_id", lostRequestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(resolved))
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, requests []*models.Request, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list lost device requests",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Requests: make([]RequestResponse, 0, len(requests))}
	for _, req := range requests {
		resp.Requests = append(resp.Requests, toResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
