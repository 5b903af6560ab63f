package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal_planner/internal/auth"
	"meal_planner/internal/config"
	httpserver "meal_planner/internal/http_server"
	"meal_planner/internal/lib/api/cookie"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/menu"
	"meal_planner/internal/planner"
	"meal_planner/internal/rabbitmq"
	"meal_planner/internal/storage/memory"
	"meal_planner/internal/storage/postgres"
	"meal_planner/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type repository interface {
	auth.UserSaver
	auth.UserProvider
	auth.TokenStorage
	planner.Repository
	menu.Repository
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting meal planner", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := setupStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeRepo()

	opts := []auth.Option{}

	if cfg.Redis.Address != "" {
		cache, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
		defer cache.Close()

		opts = append(opts, auth.WithRevocationCache(cache))
	}

	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		opts = append(opts, auth.WithPublisher(msgBroker))
	}

	authService := auth.New(log, repo, repo, repo, auth.TokenConfig{
		Secret:     []byte(cfg.Tokens.AccessTokenSecret),
		Issuer:     cfg.Tokens.Issuer,
		AccessTTL:  cfg.Tokens.AccessTokenTTL,
		RefreshTTL: cfg.Tokens.RefreshTokenTTL,
		Rotate:     cfg.Tokens.RotateRefreshToken,
	}, opts...)

	router := httpserver.NewRouter(log, httpserver.Services{
		Auth:    authService,
		Planner: planner.New(log, repo),
		Menu:    menu.New(log, repo),
		Cookie: cookie.Config{
			Name:   cfg.Cookie.Name,
			Path:   cfg.Cookie.Path,
			Secure: cfg.SecureCookies(),
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
	} else {
		log.Info("server stopped gracefully")
	}
}

func setupStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pg, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	return pg, pg.Close, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
