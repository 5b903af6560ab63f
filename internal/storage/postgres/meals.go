package postgres

import (
	"context"
	"errors"
	"fmt"

	"meal_planner/internal/models"
	"meal_planner/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) SaveGuest(ctx context.Context, userID int64, name string) (models.Guest, error) {
	const op = "storage.postgres.SaveGuest"

	const query = `
		INSERT INTO guests (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name, created_at, updated_at;
	`

	var g models.Guest
	err := r.pool.QueryRow(ctx, query, userID, name).Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return models.Guest{}, storage.ErrReferenceNotFound
		}

		return models.Guest{}, fmt.Errorf("%s: %w", op, err)
	}

	return g, nil
}

func (r *PostgresRepo) Guest(ctx context.Context, id int64) (models.Guest, error) {
	const op = "storage.postgres.Guest"

	const query = `
		SELECT id, user_id, name, created_at, updated_at
		FROM guests
		WHERE id = $1;
	`

	var g models.Guest
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Guest{}, storage.ErrNotFound
		}

		return models.Guest{}, fmt.Errorf("%s: %w", op, err)
	}

	return g, nil
}

func (r *PostgresRepo) Guests(ctx context.Context, userID int64) ([]models.Guest, error) {
	const op = "storage.postgres.Guests"

	const query = `
		SELECT id, user_id, name, created_at, updated_at
		FROM guests
		WHERE user_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	guests, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Guest, error) {
		var g models.Guest
		err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return guests, nil
}

func (r *PostgresRepo) SaveDish(ctx context.Context, d models.Dish) (models.Dish, error) {
	const op = "storage.postgres.SaveDish"

	const query = `
		INSERT INTO dishes (user_id, name, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	err := r.pool.QueryRow(ctx, query, d.UserID, d.Name, d.Description, d.Category).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return models.Dish{}, storage.ErrReferenceNotFound
		}

		return models.Dish{}, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (r *PostgresRepo) Dish(ctx context.Context, id int64) (models.Dish, error) {
	const op = "storage.postgres.Dish"

	const query = `
		SELECT id, user_id, name, description, category, created_at, updated_at
		FROM dishes
		WHERE id = $1;
	`

	d, err := scanDish(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Dish{}, storage.ErrNotFound
		}

		return models.Dish{}, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (r *PostgresRepo) Dishes(ctx context.Context, userID int64) ([]models.Dish, error) {
	const op = "storage.postgres.Dishes"

	const query = `
		SELECT id, user_id, name, description, category, created_at, updated_at
		FROM dishes
		WHERE user_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dishes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Dish, error) {
		return scanDish(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return dishes, nil
}

func scanDish(row pgx.Row) (models.Dish, error) {
	var d models.Dish
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.Category, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *PostgresRepo) SaveMeal(ctx context.Context, m models.Meal) (models.Meal, error) {
	const op = "storage.postgres.SaveMeal"

	const query = `
		INSERT INTO meals (user_id, name, date, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	err := r.pool.QueryRow(ctx, query, m.UserID, m.Name, m.Date, m.Description).Scan(&m.ID)
	if err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return models.Meal{}, storage.ErrReferenceNotFound
		}

		return models.Meal{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (r *PostgresRepo) Meal(ctx context.Context, id int64) (models.Meal, error) {
	const op = "storage.postgres.Meal"

	const query = `
		SELECT id, user_id, name, date, description
		FROM meals
		WHERE id = $1;
	`

	var m models.Meal
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.UserID, &m.Name, &m.Date, &m.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Meal{}, storage.ErrNotFound
		}

		return models.Meal{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (r *PostgresRepo) Meals(ctx context.Context, userID int64) ([]models.Meal, error) {
	const op = "storage.postgres.Meals"

	const query = `
		SELECT id, user_id, name, date, description
		FROM meals
		WHERE user_id = $1
		ORDER BY date, id;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	meals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Meal, error) {
		var m models.Meal
		err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Date, &m.Description)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return meals, nil
}

func (r *PostgresRepo) AddMealGuest(ctx context.Context, mealID, guestID int64) error {
	const op = "storage.postgres.AddMealGuest"

	const query = `
		INSERT INTO meal_guests (meal_id, guest_id)
		VALUES ($1, $2)
		ON CONFLICT (meal_id, guest_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, mealID, guestID); err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return storage.ErrReferenceNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpsertDishRank(ctx context.Context, guestID, dishID int64, rank int) (models.DishRank, error) {
	const op = "storage.postgres.UpsertDishRank"

	const query = `
		INSERT INTO dish_ranks (guest_id, dish_id, rank)
		VALUES ($1, $2, $3)
		ON CONFLICT (guest_id, dish_id)
		DO UPDATE SET rank = EXCLUDED.rank, updated_at = NOW()
		RETURNING id, guest_id, dish_id, rank, created_at, updated_at;
	`

	var dr models.DishRank
	err := r.pool.QueryRow(ctx, query, guestID, dishID, rank).Scan(
		&dr.ID,
		&dr.GuestID,
		&dr.DishID,
		&dr.Rank,
		&dr.CreatedAt,
		&dr.UpdatedAt,
	)
	if err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return models.DishRank{}, storage.ErrReferenceNotFound
		}

		return models.DishRank{}, fmt.Errorf("%s: %w", op, err)
	}

	return dr, nil
}

// MealMenu averages ranks over the meal's guests only. Dishes nobody invited
// has ranked never reach the GROUP BY.
func (r *PostgresRepo) MealMenu(ctx context.Context, mealID int64) ([]models.MenuItem, error) {
	const op = "storage.postgres.MealMenu"

	const query = `
		SELECT d.id, d.name, d.description, AVG(dr.rank)::float8 AS average_rank
		FROM meal_guests mg
		JOIN dish_ranks dr ON dr.guest_id = mg.guest_id
		JOIN dishes d ON d.id = dr.dish_id
		WHERE mg.meal_id = $1
		GROUP BY d.id, d.name, d.description
		ORDER BY average_rank DESC, d.name ASC, d.id ASC;
	`

	rows, err := r.pool.Query(ctx, query, mealID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MenuItem, error) {
		var it models.MenuItem
		err := row.Scan(&it.DishID, &it.Name, &it.Description, &it.AverageRank)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}
