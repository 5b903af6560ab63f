package meals

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"meal_planner/internal/http_server/handlers/respond"
	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/middleware/authenticate"
	"meal_planner/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type Request struct {
	Name        string `json:"name" validate:"required,max=128"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=1024"`
}

type MealManager interface {
	CreateMeal(ctx context.Context, userID int64, name string, date time.Time, description string) (models.Meal, error)
	ListMeals(ctx context.Context, userID int64) ([]models.Meal, error)
	InviteGuest(ctx context.Context, userID, mealID, guestID int64) error
}

func NewCreate(log *slog.Logger, manager MealManager) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.meals.NewCreate"

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

		// validated above
		date, _ := time.Parse(dateLayout, req.Date)

		meal, err := manager.CreateMeal(r.Context(), userID, req.Name, date, req.Description)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("meal created", slog.Int64("meal_id", meal.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, meal)
	}
}

func NewList(log *slog.Logger, manager MealManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.meals.NewList"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		meals, err := manager.ListMeals(r.Context(), userID)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, meals)
	}
}

// NewInvite serves PUT /meals/{mealID}/guests/{guestID}.
func NewInvite(log *slog.Logger, manager MealManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.meals.NewInvite"

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

		guestID, ok := respond.ID(r, "guestID")
		if !ok {
			respond.BadRequest(w, r, "Invalid guest id")
			return
		}

		if err := manager.InviteGuest(r.Context(), userID, mealID, guestID); err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.NoContent(w, r)
	}
}
