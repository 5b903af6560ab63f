package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meal_planner/internal/lib/jwt"
	sl "meal_planner/internal/lib/logger"
	"meal_planner/internal/lib/notification"
	"meal_planner/internal/models"
	"meal_planner/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrTokenExpired       = errors.New("refresh token expired")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      TokenStorage
	revoked     RevocationCache
	publisher   notification.Publisher
	cfg         TokenConfig
	now         func() time.Time
}

type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Rotate makes every successful refresh revoke the presented refresh
	// token and issue a replacement.
	Rotate bool
}

type UserSaver interface {
	SaveUser(ctx context.Context, username, name, email string, passHash []byte) (models.User, error)
}

type UserProvider interface {
	User(ctx context.Context, username string) (models.User, error)
}

type TokenStorage interface {
	SaveRefreshToken(ctx context.Context, token models.RefreshToken) error
	RefreshToken(ctx context.Context, tokenHash string) (models.RefreshToken, error)
	// RevokeRefreshToken sets revoked_at if it is still NULL. Unknown tokens
	// are not an error.
	RevokeRefreshToken(ctx context.Context, tokenHash string, at time.Time) error
	// RotateRefreshToken revokes oldHash and stores next in one transaction.
	// It fails with storage.ErrRefreshTokenNotFound when oldHash is no longer
	// valid at the given instant.
	RotateRefreshToken(ctx context.Context, oldHash string, next models.RefreshToken, at time.Time) error
}

// RevocationCache remembers revoked refresh tokens so refresh can reject them
// without a database round trip.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

type Option func(*Auth)

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func WithRevocationCache(c RevocationCache) Option {
	return func(a *Auth) {
		a.revoked = c
	}
}

func WithPublisher(p notification.Publisher) Option {
	return func(a *Auth) {
		a.publisher = p
	}
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens TokenStorage,
	cfg TokenConfig,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		cfg:         cfg,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type LoginResult struct {
	User             models.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type RefreshResult struct {
	AccessToken string
	// RefreshToken is empty unless rotation is enabled.
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Signup registers a user. The unique username constraint in storage decides
// conflicts; there is no existence pre-check.
func (a *Auth) Signup(
	ctx context.Context,
	username, password, name, email string,
) (models.User, error) {
	const op = "auth.Signup"

	log := a.log.With(
		slog.String("op", op),
	)

	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if username == "" || password == "" || name == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
		}

		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.SaveUser(ctx, username, name, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("uid", user.ID))

	if a.publisher != nil && email != "" {
		if err := a.publisher.SendMessage(ctx, notification.Welcome(email, name)); err != nil {
			log.Warn("failed to publish welcome message", sl.Err(err))
		}
	}

	return user, nil
}

// Login checks credentials and issues a refresh token and an access token.
func (a *Auth) Login(
	ctx context.Context,
	username, password string,
) (LoginResult, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return LoginResult{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.Error("failed to get user", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", slog.Int64("uid", user.ID))
		return LoginResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := a.now()

	refresh, err := a.newRefreshToken(user.ID, now)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.tokens.SaveRefreshToken(ctx, refresh.stored); err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := jwt.NewAccessToken(user.ID, a.cfg.Secret, a.cfg.Issuer, a.cfg.AccessTTL, now)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return LoginResult{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refresh.raw,
		RefreshExpiresAt: refresh.stored.ExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. A token
// presented after its expiry is revoked on the way out.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (RefreshResult, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	if refreshToken == "" {
		return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	hash := jwt.HashRefreshToken(refreshToken)

	if a.isCachedRevoked(ctx, log, hash) {
		log.Warn("refresh token is revoked (cache)")
		return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	rt, err := a.tokens.RefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token not found")
			return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		log.Error("failed to load refresh token", sl.Err(err))
		return RefreshResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if rt.IsRevoked() {
		log.Warn("refresh token is revoked", slog.Int64("uid", rt.UserID))
		return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	now := a.now()

	if rt.IsExpired(now) {
		log.Warn("refresh token expired", slog.Int64("uid", rt.UserID))

		if err := a.tokens.RevokeRefreshToken(ctx, hash, now); err != nil {
			log.Error("failed to revoke expired refresh token", sl.Err(err))
		}

		return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	accessToken, err := jwt.NewAccessToken(rt.UserID, a.cfg.Secret, a.cfg.Issuer, a.cfg.AccessTTL, now)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return RefreshResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := RefreshResult{
		AccessToken:      accessToken,
		RefreshExpiresAt: rt.ExpiresAt,
	}

	if a.cfg.Rotate {
		next, err := a.newRefreshToken(rt.UserID, now)
		if err != nil {
			log.Error("failed to generate refresh token", sl.Err(err))
			return RefreshResult{}, fmt.Errorf("%s: %w", op, err)
		}

		if err := a.tokens.RotateRefreshToken(ctx, hash, next.stored, now); err != nil {
			if errors.Is(err, storage.ErrRefreshTokenNotFound) {
				log.Warn("refresh token already used", slog.Int64("uid", rt.UserID))
				return RefreshResult{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			log.Error("failed to rotate refresh token", sl.Err(err))
			return RefreshResult{}, fmt.Errorf("%s: %w", op, err)
		}

		a.cacheRevoked(ctx, log, hash, rt.ExpiresAt.Sub(now))

		res.RefreshToken = next.raw
		res.RefreshExpiresAt = next.stored.ExpiresAt
	}

	log.Info("refresh successful", slog.Int64("uid", rt.UserID))

	return res, nil
}

// Revoke marks a refresh token revoked. Unknown, empty and already revoked
// tokens are accepted silently.
func (a *Auth) Revoke(
	ctx context.Context,
	refreshToken string,
) error {
	const op = "auth.Revoke"

	log := a.log.With(
		slog.String("op", op),
	)

	if refreshToken == "" {
		return nil
	}

	hash := jwt.HashRefreshToken(refreshToken)
	now := a.now()

	if err := a.tokens.RevokeRefreshToken(ctx, hash, now); err != nil {
		log.Error("failed to revoke refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.cacheRevoked(ctx, log, hash, a.cfg.RefreshTTL)

	log.Info("refresh token revoked")

	return nil
}

// Authenticate verifies an access token and returns its subject. Every
// failure is reported as ErrUnauthorized.
func (a *Auth) Authenticate(accessToken string) (int64, error) {
	const op = "auth.Authenticate"

	claims, err := jwt.ParseAccessToken(accessToken, a.cfg.Secret, a.cfg.Issuer, a.now())
	if err != nil {
		a.log.Debug("access token rejected", slog.String("op", op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return claims.UserID, nil
}

type issuedRefreshToken struct {
	raw    string
	stored models.RefreshToken
}

func (a *Auth) newRefreshToken(userID int64, now time.Time) (issuedRefreshToken, error) {
	raw, err := jwt.NewRefreshToken()
	if err != nil {
		return issuedRefreshToken{}, err
	}

	return issuedRefreshToken{
		raw: raw,
		stored: models.RefreshToken{
			TokenHash: jwt.HashRefreshToken(raw),
			UserID:    userID,
			IssuedAt:  now,
			ExpiresAt: now.Add(a.cfg.RefreshTTL),
		},
	}, nil
}

func (a *Auth) isCachedRevoked(ctx context.Context, log *slog.Logger, hash string) bool {
	if a.revoked == nil {
		return false
	}

	revoked, err := a.revoked.IsRevoked(ctx, hash)
	if err != nil {
		log.Warn("revocation cache lookup failed", sl.Err(err))
		return false
	}

	return revoked
}

func (a *Auth) cacheRevoked(ctx context.Context, log *slog.Logger, hash string, ttl time.Duration) {
	if a.revoked == nil || ttl <= 0 {
		return
	}

	if err := a.revoked.MarkRevoked(ctx, hash, ttl); err != nil {
		log.Warn("failed to cache revoked token", sl.Err(err))
	}
}
