// Package respond holds the error translation shared by the planner handlers.
package respond

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	resp "meal_planner/internal/lib/api/response"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/menu"
	"meal_planner/internal/planner"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// Error writes the status and message for a planner or menu error.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, planner.ErrInvalidInput):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Invalid input"))
	case errors.Is(err, planner.ErrForbidden), errors.Is(err, menu.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, resp.Error("Forbidden"))
	case errors.Is(err, planner.ErrNotFound), errors.Is(err, menu.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Not found"))
	default:
		log.Error("request failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))
	}
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp.Error(msg))
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("Unauthorized"))
}

// ID parses a positive numeric chi URL parameter.
func ID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}
