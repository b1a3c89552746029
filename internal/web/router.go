// Package web exposes the small operational HTTP surface next to the
// bot: liveness, readiness and a rate-limited stats endpoint.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innercirclehq/innercircle/internal/apperrors"
	"github.com/innercirclehq/innercircle/internal/members"
)

// NewRouter creates the chi router for the admin surface.
func NewRouter(pool *pgxpool.Pool, store members.Store) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			60,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				apperrors.WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "Too many requests. Try again later.")
			}),
		))
		r.Get("/api/v1/stats", handleStats(store))
	})

	return r
}
