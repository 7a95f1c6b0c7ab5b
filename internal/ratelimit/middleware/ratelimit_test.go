package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/ratelimit/metrics"
	"clockgate/internal/ratelimit/models"
	"clockgate/internal/ratelimit/store/bucket"
	"clockgate/pkg/platform/circuit"
	id "clockgate/pkg/domain"
	"clockgate/pkg/requestcontext"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Result{Allowed: true, Limit: 100, Remaining: 99, ResetAt: time.Now().Add(time.Minute)}, nil
}

type RateLimitSuite struct {
	suite.Suite
	identityID id.IdentityID
	logger     *slog.Logger
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.identityID = id.IdentityID(uuid.New())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RateLimitSuite) serve(m *Middleware, method, path string) *httptest.ResponseRecorder {
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(requestcontext.WithIdentityID(req.Context(), s.identityID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func (s *RateLimitSuite) TestClockAttemptsAreBudgeted() {
	m := New(bucket.New(), s.logger,
		WithLimits(map[models.EndpointClass]models.Limit{models.ClassClock: {Requests: 2, Window: time.Minute}}),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)

	s.Equal(http.StatusOK, s.serve(m, http.MethodPost, "/v1/clock/attempts").Code)
	w := s.serve(m, http.MethodPost, "/v1/clock/location")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("0", w.Header().Get("X-RateLimit-Remaining"))

	w = s.serve(m, http.MethodPost, "/v1/clock/attempts")
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))
	s.Contains(w.Body.String(), "rate_limit_exceeded")

	s.Run("other classes keep their own budget", func() {
		s.Equal(http.StatusOK, s.serve(m, http.MethodGet, "/v1/clock/session").Code)
	})
}

func (s *RateLimitSuite) TestStoreFailures() {
	s.Run("fails open without a fallback", func() {
		store := &flakyStore{err: errors.New("redis down")}
		m := New(store, s.logger)
		w := s.serve(m, http.MethodPost, "/v1/clock/attempts")
		s.Equal(http.StatusOK, w.Code)
		s.Empty(w.Header().Get("X-RateLimit-Limit"))
	})

	s.Run("switches to the fallback once the breaker opens", func() {
		store := &flakyStore{err: errors.New("redis down")}
		m := New(store, s.logger,
			WithFallback(bucket.New()),
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
			WithLimits(map[models.EndpointClass]models.Limit{models.ClassClock: {Requests: 1, Window: time.Minute}}),
		)

		w := s.serve(m, http.MethodPost, "/v1/clock/attempts")
		s.Equal(http.StatusOK, w.Code)
		s.Empty(w.Header().Get("X-RateLimit-Status"))

		w = s.serve(m, http.MethodPost, "/v1/clock/attempts")
		s.Equal(http.StatusOK, w.Code)
		s.Equal("degraded", w.Header().Get("X-RateLimit-Status"))

		w = s.serve(m, http.MethodPost, "/v1/clock/attempts")
		s.Equal(http.StatusTooManyRequests, w.Code)
		s.Equal(2, store.calls, "open breaker within cooldown skips the primary store")
	})
}

func (s *RateLimitSuite) TestDisabled() {
	store := &flakyStore{}
	m := New(store, s.logger, WithDisabled(true))
	s.Equal(http.StatusOK, s.serve(m, http.MethodPost, "/v1/clock/attempts").Code)
	s.Zero(store.calls)
}
