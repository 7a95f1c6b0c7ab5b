// Package httptransport composes the per-domain handlers into one router.
// Handlers own their routes; this package only decides where they mount and
// which middleware guards them.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clockgate/pkg/platform/httputil"
	"clockgate/pkg/platform/middleware/admin"
	"clockgate/pkg/platform/middleware/auth"
	"clockgate/pkg/platform/middleware/device"
	"clockgate/pkg/platform/middleware/metadata"
	"clockgate/pkg/platform/middleware/request"
	"clockgate/pkg/platform/middleware/requesttime"
)

// Registrar mounts identity-facing routes.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts routes that require the admin role.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger    *slog.Logger
	Validator auth.JWTValidator
	Handlers  []Registrar
	Admin     []AdminRegistrar
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// ObserveStatus is called once per request with the route pattern.
	ObserveStatus request.StatusObserver
	Checks        map[string]HealthCheck
	// RateLimit runs after authentication so budgets are per identity.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter builds the /v1 API plus the unauthenticated /health and /metrics.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger, cfg.ObserveStatus))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/health", healthHandler(cfg.Checks))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))
		v1.Use(device.Fingerprint)
		if cfg.RateLimit != nil {
			v1.Use(cfg.RateLimit)
		}
		for _, h := range cfg.Handlers {
			h.Register(v1)
		}
		v1.Route("/admin", func(ar chi.Router) {
			ar.Use(admin.RequireAdmin(cfg.Logger))
			for _, h := range cfg.Admin {
				h.RegisterAdmin(ar)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "category": "not_found"})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

// StatusCounter adapts a route/status counter to request.StatusObserver.
func StatusCounter(inc func(route, status string)) request.StatusObserver {
	return func(route string, status int) {
		inc(route, strconv.Itoa(status))
	}
}
