package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	biometric "clockgate/internal/biometric/models"
	"clockgate/internal/clock/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the clock operations exposed over HTTP.
type Service interface {
	Session(ctx context.Context, identityID id.IdentityID) (*models.Session, error)
	VerifyLocation(ctx context.Context, identityID id.IdentityID, code id.StationCode, position geo.Position) (*models.Session, geo.Result, error)
	CompleteBiometricRegistration(ctx context.Context, identityID id.IdentityID, resp biometric.RegistrationResponse) (*biometric.Credential, *models.Session, error)
	AttemptClock(ctx context.Context, identityID id.IdentityID, cmd models.AttemptCommand) (*models.AttemptResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts clock endpoints. Routes expect RequireAuth and the device
// fingerprint middleware upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clock/location", h.HandleVerifyLocation)
	r.Get("/clock/session", h.HandleSession)
	r.Post("/clock/attempts", h.HandleAttempt)
	r.Post("/biometric/registrations", h.HandleRegistration)
}

// HandleVerifyLocation handles POST /clock/location.
func (h *Handler) HandleVerifyLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.LocationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, result, err := h.service.VerifyLocation(ctx, identityID, req.StationCode(), req.Position())
	if err != nil {
		h.logger.WarnContext(ctx, "location verification failed",
			"request_id", requestID,
			"identity_id", identityID,
			"station", req.Station,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LocationResponse{
		WithinGeofence: result.WithinGeofence,
		DistanceMeters: result.DistanceMeters,
		Session:        toSessionResponse(session),
	})
}

// HandleSession handles GET /clock/session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	session, err := h.service.Session(ctx, identityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load clock session",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleAttempt handles POST /clock/attempts. The device is the one named by
// the fingerprint header.
func (h *Handler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.AttemptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.AttemptClock(ctx, identityID, req.Command(requestcontext.DeviceFingerprint(ctx)))
	if err != nil {
		h.logger.WarnContext(ctx, "clock attempt rejected",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Direction == models.DirectionOut {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, AttemptResponse{
		Direction: string(result.Direction),
		Record:    toRecordResponse(result),
		Session:   toSessionResponse(result.Session),
	})
}

// HandleRegistration handles POST /biometric/registrations.
func (h *Handler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID, ok := requireIdentity(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[biometric.RegistrationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credential, session, err := h.service.CompleteBiometricRegistration(ctx, identityID, req.Response())
	if err != nil {
		h.logger.WarnContext(ctx, "biometric registration failed",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegistrationResponse{
		CredentialID: credential.CredentialRef,
		CreatedAt:    credential.CreatedAt,
		Session:      toSessionResponse(session),
	})
}

func requireIdentity(w http.ResponseWriter, ctx context.Context) (id.IdentityID, bool) {
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return identityID, false
	}
	return identityID, true
}
