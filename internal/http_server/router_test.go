package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"meal_planner/internal/auth"
	"meal_planner/internal/lib/api/cookie"
	"meal_planner/internal/menu"
	"meal_planner/internal/models"
	"meal_planner/internal/planner"
	"meal_planner/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	t      *testing.T
	router http.Handler
	clock  *testClock
	store  *memory.Storage
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	store := memory.New()
	clk := &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}

	authService := auth.New(log, store, store, store, auth.TokenConfig{
		Secret:     []byte("router-secret"),
		Issuer:     "meal_planner",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Rotate:     true,
	}, auth.WithClock(clk.Now))

	router := NewRouter(log, Services{
		Auth:    authService,
		Planner: planner.New(log, store),
		Menu:    menu.New(log, store),
		Cookie:  cookie.Config{Name: "refreshToken", Path: "/auth"},
	})

	return &env{t: t, router: router, clock: clk, store: store}
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (e *env) do(c call) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(c.body))
	}

	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type loginResponse struct {
	UserID      int64  `json:"userID"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
}

func (e *env) signupAndLogin(username string) (loginResponse, *http.Cookie) {
	e.t.Helper()

	rec := e.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{
		"username": username, "password": "secret123", "name": username,
	}})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"username": username, "password": "secret123",
	}})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(e.t, cookies, 1)

	return decode[loginResponse](e.t, rec), cookies[0]
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSignup(t *testing.T) {
	e := newEnv(t)

	rec := e.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{
		"username": "alice", "password": "secret123", "name": "Alice",
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "Alice", body["name"])
	assert.NotContains(t, body, "password")

	rec = e.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{
		"username": "alice", "password": "other", "name": "Alice",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, e.store.UserCount())

	rec = e.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{
		"username": "bob",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	login, refreshCookie := e.signupAndLogin("alice")
	assert.Equal(t, "alice", login.Username)
	assert.NotEmpty(t, login.AccessToken)

	assert.Equal(t, "refreshToken", refreshCookie.Name)
	assert.Equal(t, "/auth", refreshCookie.Path)
	assert.True(t, refreshCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, refreshCookie.SameSite)
	assert.False(t, refreshCookie.Secure)

	rec := e.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"username": "alice", "password": "nope",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Password is incorrect"}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	rec = e.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"username": "nobody", "password": "secret123",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Username does not exist"}`, rec.Body.String())
}

func TestRefreshAndRevoke(t *testing.T) {
	e := newEnv(t)

	_, refreshCookie := e.signupAndLogin("alice")

	rec := e.do(call{method: http.MethodPost, path: "/auth/refresh"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

	rec = e.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{refreshCookie}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["accessToken"])

	rotated := rec.Result().Cookies()
	require.Len(t, rotated, 1)

	rec = e.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{refreshCookie}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid refresh token"}`, rec.Body.String())

	rec = e.do(call{method: http.MethodPost, path: "/auth/revoke", cookies: []*http.Cookie{rotated[0]}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(call{method: http.MethodPost, path: "/auth/revoke", cookies: []*http.Cookie{rotated[0]}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{rotated[0]}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_Expired(t *testing.T) {
	e := newEnv(t)

	_, refreshCookie := e.signupAndLogin("alice")

	e.clock.Advance(7*24*time.Hour + time.Second)

	rec := e.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{refreshCookie}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Refresh token expired"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEnv(t)

	login, _ := e.signupAndLogin("alice")

	for _, path := range []string{"/guests", "/dishes", "/meals", "/meals/1/menu"} {
		rec := e.do(call{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

		rec = e.do(call{method: http.MethodGet, path: path, token: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	e.clock.Advance(16 * time.Minute)

	rec := e.do(call{method: http.MethodGet, path: "/guests", token: login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired access token")
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
}

func TestMenuFlow(t *testing.T) {
	e := newEnv(t)

	host, _ := e.signupAndLogin("host")
	other, _ := e.signupAndLogin("other")

	create := func(token, path string, body any) int64 {
		t.Helper()

		rec := e.do(call{method: http.MethodPost, path: path, body: body, token: token})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		return int64(decode[map[string]any](t, rec)["id"].(float64))
	}

	meal := create(host.AccessToken, "/meals", map[string]string{"name": "Dinner", "date": "2026-05-01"})
	ann := create(host.AccessToken, "/guests", map[string]string{"name": "Ann"})
	ben := create(host.AccessToken, "/guests", map[string]string{"name": "Ben"})
	outsider := create(host.AccessToken, "/guests", map[string]string{"name": "Outsider"})
	stew := create(host.AccessToken, "/dishes", map[string]string{"name": "Stew", "description": "slow cooked"})
	tart := create(host.AccessToken, "/dishes", map[string]string{"name": "Tart"})
	create(host.AccessToken, "/dishes", map[string]string{"name": "Unranked"})

	for _, g := range []int64{ann, ben} {
		rec := e.do(call{method: http.MethodPut, path: fmt.Sprintf("/meals/%d/guests/%d", meal, g), token: host.AccessToken})
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rank := func(guest, dish int64, value int) *httptest.ResponseRecorder {
		return e.do(call{
			method: http.MethodPut,
			path:   fmt.Sprintf("/guests/%d/ranks/%d", guest, dish),
			body:   map[string]int{"rank": value},
			token:  host.AccessToken,
		})
	}

	require.Equal(t, http.StatusOK, rank(ann, stew, 3).Code)
	require.Equal(t, http.StatusOK, rank(ben, stew, 1).Code)
	require.Equal(t, http.StatusOK, rank(ann, tart, 1).Code)
	require.Equal(t, http.StatusOK, rank(ann, tart, 3).Code)
	require.Equal(t, http.StatusOK, rank(outsider, tart, 1).Code)

	assert.Equal(t, http.StatusBadRequest, rank(ann, stew, 4).Code)
	assert.Equal(t, http.StatusBadRequest, rank(ann, stew, 0).Code)
	assert.Equal(t, http.StatusNotFound, rank(ann, 9999, 2).Code)

	rec := e.do(call{method: http.MethodGet, path: fmt.Sprintf("/meals/%d/menu", meal), token: host.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)

	items := decode[[]models.MenuItem](t, rec)
	require.Len(t, items, 2)
	assert.Equal(t, models.MenuItem{DishID: tart, Name: "Tart", AverageRank: 3}, items[0])
	assert.Equal(t, models.MenuItem{DishID: stew, Name: "Stew", Description: "slow cooked", AverageRank: 2}, items[1])

	rec = e.do(call{method: http.MethodGet, path: fmt.Sprintf("/meals/%d/menu", meal), token: other.AccessToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(call{
		method: http.MethodPut,
		path:   fmt.Sprintf("/guests/%d/ranks/%d", ann, stew),
		body:   map[string]int{"rank": 2},
		token:  other.AccessToken,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(call{method: http.MethodGet, path: "/meals/9999/menu", token: host.AccessToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(call{method: http.MethodGet, path: "/meals/abc/menu", token: host.AccessToken})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(call{method: http.MethodGet, path: "/guests", token: host.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Guest](t, rec), 3)

	rec = e.do(call{method: http.MethodGet, path: "/guests", token: other.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateMeal_InvalidDate(t *testing.T) {
	e := newEnv(t)

	host, _ := e.signupAndLogin("host")

	rec := e.do(call{method: http.MethodPost, path: "/meals", token: host.AccessToken, body: map[string]string{
		"name": "Dinner", "date": "01/05/2026",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}
