package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal_planner/internal/auth"
	"meal_planner/internal/lib/api/cookie"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresherFunc func(ctx context.Context, token string) (auth.RefreshResult, error)

func (f refresherFunc) Refresh(ctx context.Context, token string) (auth.RefreshResult, error) {
	return f(ctx, token)
}

var cookieCfg = cookie.Config{Name: "refreshToken", Path: "/auth"}

func TestNew_TokenSources(t *testing.T) {
	var seen string
	h := New(slog.New(slog.DiscardHandler), refresherFunc(func(_ context.Context, token string) (auth.RefreshResult, error) {
		seen = token
		return auth.RefreshResult{AccessToken: "access"}, nil
	}), cookieCfg)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "from-cookie"})
		req.Header.Set("Authorization", "Bearer from-header")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "from-cookie", seen)
		assert.JSONEq(t, `{"accessToken":"access"}`, rec.Body.String())
		assert.Empty(t, rec.Result().Cookies(), "no rotation, no new cookie")
	})

	t.Run("bearer fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "from-header", seen)
	})
}

func TestNew_Rotation(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	h := New(slog.New(slog.DiscardHandler), refresherFunc(func(context.Context, string) (auth.RefreshResult, error) {
		return auth.RefreshResult{AccessToken: "access", RefreshToken: "next", RefreshExpiresAt: expires}, nil
	}), cookieCfg)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "next", cookies[0].Value)
	assert.Equal(t, "/auth", cookies[0].Path)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{name: "missing", err: auth.ErrUnauthorized, status: http.StatusUnauthorized, msg: "Unauthorized"},
		{name: "invalid", err: auth.ErrInvalidToken, status: http.StatusUnauthorized, msg: "Invalid refresh token"},
		{name: "expired", err: auth.ErrTokenExpired, status: http.StatusUnauthorized, msg: "Refresh token expired"},
		{name: "internal", err: errors.New("db down"), status: http.StatusInternalServerError, msg: "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(slog.New(slog.DiscardHandler), refresherFunc(func(context.Context, string) (auth.RefreshResult, error) {
				return auth.RefreshResult{}, fmt.Errorf("auth.Refresh: %w", tt.err)
			}), cookieCfg)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, tt.msg), rec.Body.String())
		})
	}
}
