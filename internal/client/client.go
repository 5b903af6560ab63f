// Package client is a typed HTTP client for the meal planner API. It keeps
// the access token in a Session and the refresh token in a cookie jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"meal_planner/internal/models"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 answer.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type LoginResult struct {
	UserID      int64  `json:"userID"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
}

type Client struct {
	baseURL string
	session *Session
	http    *http.Client
}

// New builds a client for baseURL. base is the underlying transport;
// nil means http.DefaultTransport.
func New(baseURL string, session *Session, base http.RoundTripper) (*Client, error) {
	const op = "client.New"

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
	}

	c.http = &http.Client{
		Jar: jar,
		Transport: &Transport{
			Base:    base,
			Session: session,
			Refresh: c.Refresh,
		},
	}

	return c, nil
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Signup(ctx context.Context, username, password, name string) (User, error) {
	var u User
	err := c.do(WithoutAuth(ctx), http.MethodPost, "/auth/signup", map[string]string{
		"username": username,
		"password": password,
		"name":     name,
	}, &u)

	return u, err
}

// Login stores the access token in the session; the refresh cookie lands in
// the jar.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(WithoutAuth(ctx), http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return LoginResult{}, err
	}

	c.session.SetAccessToken(res.AccessToken)

	return res, nil
}

// Refresh exchanges the refresh cookie for a new access token and stores it
// in the session.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var res struct {
		AccessToken string `json:"accessToken"`
	}

	if err := c.do(WithoutAuth(ctx), http.MethodPost, "/auth/refresh", nil, &res); err != nil {
		return "", err
	}

	c.session.SetAccessToken(res.AccessToken)

	return res.AccessToken, nil
}

// Logout revokes the refresh token and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()

	return c.do(WithoutAuth(ctx), http.MethodPost, "/auth/revoke", nil, nil)
}

func (c *Client) CreateGuest(ctx context.Context, name string) (models.Guest, error) {
	var g models.Guest
	err := c.do(ctx, http.MethodPost, "/guests", map[string]string{"name": name}, &g)

	return g, err
}

func (c *Client) CreateDish(ctx context.Context, name, description, category string) (models.Dish, error) {
	var d models.Dish
	err := c.do(ctx, http.MethodPost, "/dishes", map[string]string{
		"name":        name,
		"description": description,
		"category":    category,
	}, &d)

	return d, err
}

// CreateMeal takes the date as YYYY-MM-DD.
func (c *Client) CreateMeal(ctx context.Context, name, date, description string) (models.Meal, error) {
	var m models.Meal
	err := c.do(ctx, http.MethodPost, "/meals", map[string]string{
		"name":        name,
		"date":        date,
		"description": description,
	}, &m)

	return m, err
}

func (c *Client) InviteGuest(ctx context.Context, mealID, guestID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/meals/%d/guests/%d", mealID, guestID), nil, nil)
}

func (c *Client) RankDish(ctx context.Context, guestID, dishID int64, rank int) (models.DishRank, error) {
	var r models.DishRank
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/guests/%d/ranks/%d", guestID, dishID), map[string]int{
		"rank": rank,
	}, &r)

	return r, err
}

func (c *Client) Menu(ctx context.Context, mealID int64) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/meals/%d/menu", mealID), nil, &items)

	return items, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil {
			apiErr.Message = msg.Message
		}

		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
