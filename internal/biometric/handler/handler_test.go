package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/requestcontext"
)

type stubService struct {
	issue func(ctx context.Context, identityID id.IdentityID, purpose models.Purpose) (*models.Challenge, error)
}

func (s stubService) IssueChallenge(ctx context.Context, identityID id.IdentityID, purpose models.Purpose) (*models.Challenge, error) {
	return s.issue(ctx, identityID, purpose)
}

func TestHandleIssueChallenge(t *testing.T) {
	owner := id.IdentityID(uuid.New())
	expires := time.Date(2026, 3, 2, 9, 2, 0, 0, time.UTC)
	svc := stubService{issue: func(_ context.Context, identityID id.IdentityID, purpose models.Purpose) (*models.Challenge, error) {
		if identityID != owner {
			return nil, errors.New("unexpected identity")
		}
		return &models.Challenge{Value: "nonce", Purpose: purpose, ExpiresAt: expires}, nil
	}}
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	send := func(body string, authenticated bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/biometric/challenges", strings.NewReader(body))
		if authenticated {
			req = req.WithContext(requestcontext.WithIdentityID(req.Context(), owner))
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("defaults to authentication", func(t *testing.T) {
		w := send(`{}`, true)
		require.Equal(t, http.StatusCreated, w.Code)
		var resp ChallengeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "nonce", resp.Challenge)
		assert.Equal(t, "authentication", resp.Purpose)
		assert.True(t, resp.ExpiresAt.Equal(expires))
	})

	t.Run("registration purpose", func(t *testing.T) {
		w := send(`{"purpose":"Registration"}`, true)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"purpose":"registration"`)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		w := send(`{"purpose":"login"}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		w := send(`{}`, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
