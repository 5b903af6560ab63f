package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestMustLoadPath_Defaults(t *testing.T) {
	path := writeConfig(t, `
tokens:
  access_token_secret: "s3cret"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 15*time.Minute, cfg.Tokens.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Tokens.RefreshTokenTTL)
	assert.Equal(t, "meal_planner", cfg.Tokens.Issuer)
	assert.True(t, cfg.Tokens.RotateRefreshToken)
	assert.Equal(t, "refreshToken", cfg.Cookie.Name)
	assert.Equal(t, "/auth", cfg.Cookie.Path)
	assert.Empty(t, cfg.Redis.Address)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.False(t, cfg.SecureCookies())
}

func TestMustLoadPath_FileValues(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
storage: "memory"
http_server:
  address: ":9090"
  timeout: 2s
tokens:
  access_token_ttl: 5m
  refresh_token_ttl: 24h
  access_token_secret: "from-file"
  rotate_refresh_token: false
postgres:
  host: "db"
  port: 6543
`)

	cfg := MustLoadPath(path)

	assert.True(t, cfg.IsProd())
	assert.True(t, cfg.SecureCookies())
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":9090", cfg.HTTPServer.Address)
	assert.Equal(t, 2*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Tokens.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.RefreshTokenTTL)
	assert.Equal(t, "from-file", cfg.Tokens.AccessTokenSecret)
	assert.False(t, cfg.Tokens.RotateRefreshToken)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
}

func TestMustLoadPath_EnvOverridesFile(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "from-env")
	t.Setenv("POSTGRES_PASSWORD", "pg-pass")

	path := writeConfig(t, `
tokens:
  access_token_secret: "from-file"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "from-env", cfg.Tokens.AccessTokenSecret)
	assert.Equal(t, "pg-pass", cfg.Postgres.Password)
}

func TestMustLoadPath_Panics(t *testing.T) {
	require.Panics(t, func() { MustLoadPath("") })
	require.Panics(t, func() { MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml")) })

	path := writeConfig(t, `env: "local"`)
	require.Panics(t, func() { MustLoadPath(path) }, "secret is required")
}
