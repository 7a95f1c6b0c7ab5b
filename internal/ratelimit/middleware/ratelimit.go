// Package middleware enforces per-identity request budgets on the /v1 API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"clockgate/internal/ratelimit/metrics"
	"clockgate/internal/ratelimit/models"
	"clockgate/pkg/platform/circuit"
	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/requestcontext"
)

// Store admits or rejects one request against a bucket.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

// Middleware checks the shared store first. After repeated store errors the
// breaker opens and the in-memory fallback takes over until a probe succeeds.
// Without a fallback, store errors let the request through.
type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

func WithFallback(store Store) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		if b != nil {
			m.breaker = b
		}
	}
}

// WithLimits overrides the default budget of the classes present in limits.
func WithLimits(limits map[models.EndpointClass]models.Limit) Option {
	return func(m *Middleware) {
		for class, limit := range limits {
			if class.IsValid() && limit.Requests > 0 && limit.Window > 0 {
				m.limits[class] = limit
			}
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: circuit.New("ratelimit-store", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3)),
		limits:  models.DefaultLimits(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Handler must run after RequireAuth so the identity is known; anonymous
// requests are keyed by client IP.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		class := models.Classify(r.Method, r.URL.Path)
		key := models.Key(class, subject(ctx))

		result, degraded := m.check(ctx, key, m.limits[class])
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if result == nil {
			m.metrics.IncrementDecision(string(class), "error")
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.metrics.IncrementDecision(string(class), "limited")
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"class", class,
				"identity_id", requestcontext.IdentityID(ctx).String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			writeRateLimitExceeded(w, result)
			return
		}
		m.metrics.IncrementDecision(string(class), "allowed")
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool) {
	if m.breaker.IsOpen() && !m.breaker.Allow() {
		return m.checkFallback(ctx, key, limit), true
	}

	result, err := m.primary.Allow(ctx, key, limit)
	if err != nil {
		m.metrics.IncrementStoreFailure()
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.metrics.SetDegraded(true)
			m.logger.WarnContext(ctx, "rate limit store unhealthy, using in-memory fallback", "error", err)
		}
		if useFallback {
			return m.checkFallback(ctx, key, limit), true
		}
		m.logger.WarnContext(ctx, "rate limit check failed", "error", err)
		return nil, false
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.metrics.SetDegraded(false)
		m.logger.InfoContext(ctx, "rate limit store recovered")
	}
	return result, false
}

func (m *Middleware) checkFallback(ctx context.Context, key string, limit models.Limit) *models.Result {
	if m.fallback == nil {
		return nil
	}
	result, err := m.fallback.Allow(ctx, key, limit)
	if err != nil {
		return nil
	}
	return result
}

func subject(ctx context.Context) string {
	if identityID := requestcontext.IdentityID(ctx); !identityID.IsNil() {
		return identityID.String()
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Category:   "rate_limited",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
