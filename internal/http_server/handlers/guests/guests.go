package guests

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
	Name string `json:"name" validate:"required,max=128"`
}

type GuestManager interface {
	CreateGuest(ctx context.Context, userID int64, name string) (models.Guest, error)
	ListGuests(ctx context.Context, userID int64) ([]models.Guest, error)
}

func NewCreate(log *slog.Logger, manager GuestManager) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.guests.NewCreate"

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

		guest, err := manager.CreateGuest(r.Context(), userID, req.Name)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("guest created", slog.Int64("guest_id", guest.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, guest)
	}
}

func NewList(log *slog.Logger, manager GuestManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.guests.NewList"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		guests, err := manager.ListGuests(r.Context(), userID)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, guests)
	}
}
