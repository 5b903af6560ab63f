package ranks

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

// Request carries a rank from 1 (least liked) to 3 (favourite).
type Request struct {
	Rank int `json:"rank" validate:"required,min=1,max=3"`
}

type Ranker interface {
	RankDish(ctx context.Context, userID, guestID, dishID int64, rank int) (models.DishRank, error)
}

// New serves PUT /guests/{guestID}/ranks/{dishID}.
func New(log *slog.Logger, ranker Ranker) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ranks.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authenticate.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w, r)
			return
		}

		guestID, ok := respond.ID(r, "guestID")
		if !ok {
			respond.BadRequest(w, r, "Invalid guest id")
			return
		}

		dishID, ok := respond.ID(r, "dishID")
		if !ok {
			respond.BadRequest(w, r, "Invalid dish id")
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

		rank, err := ranker.RankDish(r.Context(), userID, guestID, dishID, req.Rank)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, rank)
	}
}
