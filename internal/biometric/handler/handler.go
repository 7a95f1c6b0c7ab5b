package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Service defines the challenge operations exposed over HTTP. Registration
// completes through the clock endpoints since it advances the session.
type Service interface {
	IssueChallenge(ctx context.Context, identityID id.IdentityID, purpose models.Purpose) (*models.Challenge, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/biometric/challenges", h.HandleIssueChallenge)
}

type ChallengeResponse struct {
	Challenge string    `json:"challenge"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleIssueChallenge handles POST /biometric/challenges.
func (h *Handler) HandleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identityID := requestcontext.IdentityID(ctx)
	if identityID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.ChallengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	challenge, err := h.service.IssueChallenge(ctx, identityID, models.Purpose(req.Purpose))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue challenge",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ChallengeResponse{
		Challenge: challenge.Value,
		Purpose:   string(challenge.Purpose),
		ExpiresAt: challenge.ExpiresAt,
	})
}
