package web

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innercirclehq/innercircle/internal/apperrors"
	"github.com/innercirclehq/innercircle/internal/members"
)

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "database unreachable")
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleStats(store members.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			apperrors.WriteInternalError(w, r, "failed to aggregate stats")
			return
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, stats)
	}
}
