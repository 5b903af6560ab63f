package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"meal_planner/internal/config"
	"meal_planner/internal/models"
	"meal_planner/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = cfg.Postgres.MaxConns
	poolConfig.MinConns = cfg.Postgres.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// Migrate applies the embedded goose migrations.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, username, name, email string, passHash []byte) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	const query = `
		INSERT INTO users (username, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	u := models.User{
		Username: username,
		Name:     name,
		Email:    email,
		PassHash: passHash,
	}

	err := r.pool.QueryRow(ctx, query, username, name, email, passHash).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isCode(err, codeUniqueViolation) {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) User(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.User"

	const query = `
		SELECT id, username, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1;
	`

	var u models.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.PassHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, token models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (token_hash, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, token.TokenHash, token.UserID, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		if isCode(err, codeForeignKeyViolation) {
			return storage.ErrReferenceNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RefreshToken(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	const op = "storage.postgres.RefreshToken"

	const query = `
		SELECT token_hash, user_id, issued_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1;
	`

	var rt models.RefreshToken
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&rt.TokenHash,
		&rt.UserID,
		&rt.IssuedAt,
		&rt.ExpiresAt,
		&rt.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return rt, nil
}

func (r *PostgresRepo) RevokeRefreshToken(ctx context.Context, tokenHash string, at time.Time) error {
	const op = "storage.postgres.RevokeRefreshToken"

	const query = `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`

	if _, err := r.pool.Exec(ctx, query, tokenHash, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RotateRefreshToken(
	ctx context.Context,
	oldHash string,
	next models.RefreshToken,
	at time.Time,
) (err error) {
	const op = "storage.postgres.RotateRefreshToken"

	const revokeQuery = `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at >= $2
	`

	const insertQuery = `
		INSERT INTO refresh_tokens (token_hash, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, revokeQuery, oldHash, at)
	if err != nil {
		return fmt.Errorf("%s: revoke: %w", op, err)
	}

	if tag.RowsAffected() != 1 {
		return storage.ErrRefreshTokenNotFound
	}

	if _, err = tx.Exec(ctx, insertQuery, next.TokenHash, next.UserID, next.IssuedAt, next.ExpiresAt); err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
