package dishes

import (
	"context"
	"log/slog"
	"net/http"

	"meal_planner/internal/http_server/handlers/respond"
	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/middleware/authenticate"
	"meal_planner/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1024"`
	Category    string `json:"category" validate:"max=64"`
}

type DishManager interface {
	CreateDish(ctx context.Context, userID int64, name, description, category string) (models.Dish, error)
	ListDishes(ctx context.Context, userID int64) ([]models.Dish, error)
}

func NewCreate(log *slog.Logger, manager DishManager) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dishes.NewCreate"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			respond.BadRequest(w, r, "Failed to decode request")
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(err.(validator.ValidationErrors)))
			return
		}

		dish, err := manager.CreateDish(r.Context(), userID, req.Name, req.Description, req.Category)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("dish created", slog.Int64("dish_id", dish.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, dish)
	}
}

func NewList(log *slog.Logger, manager DishManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dishes.NewList"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		dishes, err := manager.ListDishes(r.Context(), userID)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, dishes)
	}
}
