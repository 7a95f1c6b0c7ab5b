// Package requesttime pins one "now" per request so a clock attempt, its
// record and its audit event all carry the same timestamp.
package requesttime

import (
	"net/http"
	"time"

	"clockgate/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock stamps requests with now() truncated to the millisecond, the
// precision attendance records are stored at.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().Truncate(time.Millisecond))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
