package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	Tokens     `yaml:"tokens"`
	Cookie     `yaml:"cookie"`
	RabbitMQ   `yaml:"rabbitmq"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	HTTPServer `yaml:"http_server"`
	SMTP       `yaml:"smtp"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env-default:"2"`
}

// Redis is optional; an empty address disables the revocation cache.
type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	Issuer             string        `yaml:"issuer" env-default:"meal_planner"`
	RotateRefreshToken bool          `yaml:"rotate_refresh_token" env-default:"true"`
}

type Cookie struct {
	Name string `yaml:"name" env-default:"refreshToken"`
	Path string `yaml:"path" env-default:"/auth"`
	// Secure is forced on in prod regardless of this value.
	Secure bool `yaml:"secure" env-default:"false"`
}

// RabbitMQ is optional; an empty URL disables welcome messages.
type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"welcome_emails"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// SecureCookies reports whether the refresh cookie must carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.IsProd() || c.Cookie.Secure
}

// MustLoad reads the config file named by the -config flag or CONFIG_PATH.
func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(configPath string) *Config {
	if configPath == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
