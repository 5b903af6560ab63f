// Package cookie writes and reads the refresh token cookie.
package cookie

import (
	"net/http"
	"time"
)

type Config struct {
	Name   string
	Path   string
	Secure bool
}

func Set(w http.ResponseWriter, cfg Config, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   cfg.Secure,
	})
}

// Clear expires the cookie on the client.
func Clear(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   cfg.Secure,
	})
}

func Read(r *http.Request, cfg Config) string {
	c, err := r.Cookie(cfg.Name)
	if err != nil {
		return ""
	}

	return c.Value
}
