package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"meal_planner/internal/auth"
	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=128"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type Response struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type UserRegistrar interface {
	Signup(ctx context.Context, username, password, name, email string) (models.User, error)
}

func New(log *slog.Logger, registrar UserRegistrar) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, err := registrar.Signup(r.Context(), req.Username, req.Password, req.Name, req.Email)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidInput):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid input"))
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Username already exists"))
			default:
				log.Error("failed to register user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("user registered", slog.Int64("uid", user.ID))

		render.JSON(w, r, Response{
			ID:       user.ID,
			Username: user.Username,
			Name:     user.Name,
		})
	}
}
