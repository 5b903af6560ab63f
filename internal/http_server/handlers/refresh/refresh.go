package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"meal_planner/internal/auth"
	"meal_planner/internal/lib/api/cookie"
	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/middleware/authenticate"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	AccessToken string `json:"accessToken"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.RefreshResult, error)
}

// New exchanges the refresh cookie for a new access token. A bearer header
// is accepted when the cookie is absent.
func New(log *slog.Logger, refresher Refresher, cookieCfg cookie.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := cookie.Read(r, cookieCfg)
		if token == "" {
			token, _ = authenticate.BearerToken(r)
		}

		res, err := refresher.Refresh(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthorized):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
			case errors.Is(err, auth.ErrInvalidToken):
				cookie.Clear(w, cookieCfg)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid refresh token"))
			case errors.Is(err, auth.ErrTokenExpired):
				cookie.Clear(w, cookieCfg)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Refresh token expired"))
			default:
				log.Error("failed to refresh token", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		if res.RefreshToken != "" {
			cookie.Set(w, cookieCfg, res.RefreshToken, res.RefreshExpiresAt)
		}

		log.Info("access token refreshed")

		render.JSON(w, r, Response{
			AccessToken: res.AccessToken,
		})
	}
}
