package authenticate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type Verifier interface {
	Authenticate(accessToken string) (int64, error)
}

// New rejects requests without a valid bearer access token. The response is
// the same whatever the reason.
func New(log *slog.Logger, verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authenticate"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := BearerToken(r)
			if !ok {
				log.Debug("missing bearer token")
				unauthorized(w, r)
				return
			}

			userID, err := verifier.Authenticate(token)
			if err != nil {
				log.Debug("access token rejected", sl.Err(err))
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the id stored by New.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// BearerToken extracts the credential of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("Unauthorized"))
}
