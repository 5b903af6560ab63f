package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "refresh:revoked:"

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// MarkRevoked remembers a revoked refresh token hash until ttl elapses.
// Marking an already marked hash keeps the first expiry.
func (r *RedisRepo) MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error {
	const op = "storage.redis.MarkRevoked"

	if err := r.client.SetNX(ctx, revokedKeyPrefix+tokenHash, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	const op = "storage.redis.IsRevoked"

	err := r.client.Get(ctx, revokedKeyPrefix+tokenHash).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (r *RedisRepo) Close() {
	_ = r.client.Close()
}
