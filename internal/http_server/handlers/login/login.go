package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"meal_planner/internal/auth"
	"meal_planner/internal/lib/api/cookie"
	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Response struct {
	UserID      int64  `json:"userID"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
}

func New(log *slog.Logger, authenticator Authenticator, cookieCfg cookie.Config) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		res, err := authenticator.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Username does not exist"))
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Password is incorrect"))
			default:
				log.Error("failed to login user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		cookie.Set(w, cookieCfg, res.RefreshToken, res.RefreshExpiresAt)

		log.Info("user logged in successfully", slog.Int64("uid", res.User.ID))

		render.JSON(w, r, Response{
			UserID:      res.User.ID,
			Username:    res.User.Username,
			Name:        res.User.Name,
			AccessToken: res.AccessToken,
		})
	}
}
