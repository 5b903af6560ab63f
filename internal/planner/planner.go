package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/models"
	"meal_planner/internal/storage"
)

const (
	MinRank = 1
	MaxRank = 3
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

type GuestRepository interface {
	SaveGuest(ctx context.Context, userID int64, name string) (models.Guest, error)
	Guest(ctx context.Context, id int64) (models.Guest, error)
	Guests(ctx context.Context, userID int64) ([]models.Guest, error)
}

type DishRepository interface {
	SaveDish(ctx context.Context, d models.Dish) (models.Dish, error)
	Dish(ctx context.Context, id int64) (models.Dish, error)
	Dishes(ctx context.Context, userID int64) ([]models.Dish, error)
}

type MealRepository interface {
	SaveMeal(ctx context.Context, m models.Meal) (models.Meal, error)
	Meal(ctx context.Context, id int64) (models.Meal, error)
	Meals(ctx context.Context, userID int64) ([]models.Meal, error)
	// AddMealGuest is a no-op when the guest is already invited.
	AddMealGuest(ctx context.Context, mealID, guestID int64) error
}

type RankRepository interface {
	// UpsertDishRank keeps a single row per (guest, dish).
	UpsertDishRank(ctx context.Context, guestID, dishID int64, rank int) (models.DishRank, error)
}

type Repository interface {
	GuestRepository
	DishRepository
	MealRepository
	RankRepository
}

// Planner manages the guests, dishes and meals owned by a user.
type Planner struct {
	log  *slog.Logger
	repo Repository
}

func New(log *slog.Logger, repo Repository) *Planner {
	return &Planner{
		log:  log,
		repo: repo,
	}
}

func (p *Planner) CreateGuest(ctx context.Context, userID int64, name string) (models.Guest, error) {
	const op = "planner.CreateGuest"

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Guest{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	g, err := p.repo.SaveGuest(ctx, userID, name)
	if err != nil {
		p.log.Error("failed to save guest", slog.String("op", op), sl.Err(err))
		return models.Guest{}, fmt.Errorf("%s: %w", op, err)
	}

	return g, nil
}

func (p *Planner) ListGuests(ctx context.Context, userID int64) ([]models.Guest, error) {
	const op = "planner.ListGuests"

	guests, err := p.repo.Guests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if guests == nil {
		guests = []models.Guest{}
	}

	return guests, nil
}

func (p *Planner) CreateDish(ctx context.Context, userID int64, name, description, category string) (models.Dish, error) {
	const op = "planner.CreateDish"

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Dish{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	d, err := p.repo.SaveDish(ctx, models.Dish{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
	})
	if err != nil {
		p.log.Error("failed to save dish", slog.String("op", op), sl.Err(err))
		return models.Dish{}, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (p *Planner) ListDishes(ctx context.Context, userID int64) ([]models.Dish, error) {
	const op = "planner.ListDishes"

	dishes, err := p.repo.Dishes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dishes == nil {
		dishes = []models.Dish{}
	}

	return dishes, nil
}

func (p *Planner) CreateMeal(
	ctx context.Context,
	userID int64,
	name string,
	date time.Time,
	description string,
) (models.Meal, error) {
	const op = "planner.CreateMeal"

	name = strings.TrimSpace(name)
	if name == "" || date.IsZero() {
		return models.Meal{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	m, err := p.repo.SaveMeal(ctx, models.Meal{
		UserID:      userID,
		Name:        name,
		Date:        date,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		p.log.Error("failed to save meal", slog.String("op", op), sl.Err(err))
		return models.Meal{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (p *Planner) ListMeals(ctx context.Context, userID int64) ([]models.Meal, error) {
	const op = "planner.ListMeals"

	meals, err := p.repo.Meals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if meals == nil {
		meals = []models.Meal{}
	}

	return meals, nil
}

// InviteGuest adds a guest to a meal. Both must belong to userID.
func (p *Planner) InviteGuest(ctx context.Context, userID, mealID, guestID int64) error {
	const op = "planner.InviteGuest"

	log := p.log.With(
		slog.String("op", op),
		slog.Int64("meal_id", mealID),
		slog.Int64("guest_id", guestID),
	)

	meal, err := p.repo.Meal(ctx, mealID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}
	if meal.UserID != userID {
		log.Warn("meal belongs to another user")
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	guest, err := p.repo.Guest(ctx, guestID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}
	if guest.UserID != userID {
		log.Warn("guest belongs to another user")
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := p.repo.AddMealGuest(ctx, mealID, guestID); err != nil {
		log.Error("failed to invite guest", sl.Err(err))
		return fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}

	return nil
}

// RankDish records how much a guest likes a dish, replacing any earlier rank.
func (p *Planner) RankDish(ctx context.Context, userID, guestID, dishID int64, rank int) (models.DishRank, error) {
	const op = "planner.RankDish"

	log := p.log.With(
		slog.String("op", op),
		slog.Int64("guest_id", guestID),
		slog.Int64("dish_id", dishID),
	)

	if rank < MinRank || rank > MaxRank {
		return models.DishRank{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	guest, err := p.repo.Guest(ctx, guestID)
	if err != nil {
		return models.DishRank{}, fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}
	if guest.UserID != userID {
		log.Warn("guest belongs to another user")
		return models.DishRank{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	dish, err := p.repo.Dish(ctx, dishID)
	if err != nil {
		return models.DishRank{}, fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}
	if dish.UserID != userID {
		log.Warn("dish belongs to another user")
		return models.DishRank{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	r, err := p.repo.UpsertDishRank(ctx, guestID, dishID, rank)
	if err != nil {
		log.Error("failed to save rank", sl.Err(err))
		return models.DishRank{}, fmt.Errorf("%s: %w", op, mapLookupErr(err))
	}

	return r, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrReferenceNotFound) {
		return ErrNotFound
	}
	return err
}
