package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/identity/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	audit "clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the identity registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, cmd models.RegisterCommand) (*models.Identity, error)
	Approve(ctx context.Context, identityID, approverID id.IdentityID) (*models.Identity, error)
	Deactivate(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	Get(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	ListByDepartment(ctx context.Context, department string) ([]*models.Identity, error)
}

// AuditTrail reads back the audit events recorded for an identity.
type AuditTrail interface {
	List(ctx context.Context, identityID id.IdentityID) ([]audit.Event, error)
}

type Handler struct {
	service Service
	trail   AuditTrail
	logger  *slog.Logger
}

type Option func(*Handler)

// WithAuditTrail mounts GET /admin/identities/{id}/audit.
func WithAuditTrail(trail AuditTrail) Option {
	return func(h *Handler) {
		h.trail = trail
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the caller's own profile.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

// RegisterAdmin mounts HR endpoints. Routes expect RequireAdmin upstream.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/identities", h.HandleRegister)
	r.Get("/identities", h.HandleList)
	r.Get("/identities/{id}", h.HandleGet)
	r.Post("/identities/{id}/approve", h.HandleApprove)
	r.Post("/identities/{id}/deactivate", h.HandleDeactivate)
	if h.trail != nil {
		r.Get("/identities/{id}/audit", h.HandleAudit)
	}
}

// HandleMe handles GET /me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identityID := requestcontext.IdentityID(r.Context())
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	identity, err := h.service.Get(r.Context(), identityID)
	h.writeIdentity(w, r, http.StatusOK, identity, err)
}

// HandleRegister handles POST /admin/identities.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	identity, err := h.service.Register(ctx, req.Command())
	h.writeIdentity(w, r, http.StatusCreated, identity, err)
}

// HandleList handles GET /admin/identities?department=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	department := r.URL.Query().Get("department")
	if department == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "department is required"))
		return
	}
	identities, err := h.service.ListByDepartment(ctx, department)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list identities",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if identities == nil {
		identities = []*models.Identity{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Identities: identities})
}

// HandleGet handles GET /admin/identities/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	identity, err := h.service.Get(r.Context(), identityID)
	h.writeIdentity(w, r, http.StatusOK, identity, err)
}

// HandleApprove handles POST /admin/identities/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	identity, err := h.service.Approve(r.Context(), identityID, requestcontext.IdentityID(r.Context()))
	h.writeIdentity(w, r, http.StatusOK, identity, err)
}

// HandleDeactivate handles POST /admin/identities/{id}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	identity, err := h.service.Deactivate(r.Context(), identityID)
	h.writeIdentity(w, r, http.StatusOK, identity, err)
}

// HandleAudit handles GET /admin/identities/{id}/audit.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.trail.List(ctx, identityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	resp := AuditResponse{Events: make([]AuditEntry, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, AuditEntry{
			Timestamp:   e.Timestamp,
			Category:    string(e.Category),
			Action:      e.Action,
			Decision:    e.Decision,
			Reason:      e.Reason,
			Fingerprint: e.Fingerprint,
			Station:     e.Station,
			ActorID:     e.ActorID,
			RequestID:   e.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeIdentity(w http.ResponseWriter, r *http.Request, status int, identity *models.Identity, err error) {
	if err != nil {
		h.logger.WarnContext(r.Context(), "identity request failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, identity)
}

type ListResponse struct {
	Identities []*models.Identity `json:"identities"`
}

type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Category    string    `json:"category"`
	Action      string    `json:"action"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Station     string    `json:"station,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

type AuditResponse struct {
	Events []AuditEntry `json:"events"`
}
