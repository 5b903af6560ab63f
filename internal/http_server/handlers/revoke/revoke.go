package revoke

import (
	"context"
	"log/slog"
	"net/http"

	"meal_planner/internal/lib/api/cookie"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/middleware/authenticate"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Revoker interface {
	Revoke(ctx context.Context, refreshToken string) error
}

// New revokes the presented refresh token and clears the cookie. It answers
// 204 in every case so logout cannot fail on the client.
func New(log *slog.Logger, revoker Revoker, cookieCfg cookie.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.revoke.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := cookie.Read(r, cookieCfg)
		if token == "" {
			token, _ = authenticate.BearerToken(r)
		}

		if err := revoker.Revoke(r.Context(), token); err != nil {
			log.Error("failed to revoke refresh token", sl.Err(err))
		}

		cookie.Clear(w, cookieCfg)

		render.NoContent(w, r)
	}
}
