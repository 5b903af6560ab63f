// Package menu suggests what to cook for a meal from the ranks its guests
// gave to the host's dishes.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/models"
	"meal_planner/internal/storage"
)

var (
	ErrNotFound  = errors.New("meal not found")
	ErrForbidden = errors.New("forbidden")
)

type Repository interface {
	Meal(ctx context.Context, id int64) (models.Meal, error)
	// MealMenu returns one item per dish ranked by at least one invited
	// guest, ordered by average rank descending, then dish name.
	MealMenu(ctx context.Context, mealID int64) ([]models.MenuItem, error)
}

type Service struct {
	log  *slog.Logger
	repo Repository
}

func New(log *slog.Logger, repo Repository) *Service {
	return &Service{
		log:  log,
		repo: repo,
	}
}

// Menu aggregates the ranks for a meal owned by userID.
func (s *Service) Menu(ctx context.Context, userID, mealID int64) ([]models.MenuItem, error) {
	const op = "menu.Menu"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("meal_id", mealID),
	)

	meal, err := s.repo.Meal(ctx, mealID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.Error("failed to load meal", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if meal.UserID != userID {
		log.Warn("meal belongs to another user", slog.Int64("uid", userID))
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	items, err := s.repo.MealMenu(ctx, mealID)
	if err != nil {
		log.Error("failed to aggregate ranks", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if items == nil {
		items = []models.MenuItem{}
	}

	log.Debug("menu computed", slog.Int("dishes", len(items)))

	return items, nil
}
