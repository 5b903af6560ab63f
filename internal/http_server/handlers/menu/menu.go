package menu

import (
	"context"
	"log/slog"
	"net/http"

	"meal_planner/internal/http_server/handlers/respond"
	"meal_planner/internal/middleware/authenticate"
	"meal_planner/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type MenuProvider interface {
	Menu(ctx context.Context, userID, mealID int64) ([]models.MenuItem, error)
}

// New serves GET /meals/{mealID}/menu, best-ranked dishes first.
func New(log *slog.Logger, provider MenuProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.menu.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		mealID, ok := respond.ID(r, "mealID")
		if !ok {
			respond.BadRequest(w, r, "Invalid meal id")
			return
		}

		items, err := provider.Menu(r.Context(), userID, mealID)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, items)
	}
}
