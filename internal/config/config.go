package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"./app.db"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Empty disables bearer tokens, leaving session login only
	JWTSecret       string        `env:"JWT_SECRET"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`

	// Empty disables the redis event sink
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Shared with the payment gateway; empty disables the payment callback
	PaymentGatewaySecret string `env:"PAYMENT_GATEWAY_SECRET"`

	EventBuffer int      `env:"EVENT_BUFFER" envDefault:"256"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Enables the development login endpoint
	DevLogin bool `env:"DEV_LOGIN" envDefault:"false"`
}

// ParseEnv reads environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive, got %d", c.EventBuffer)
	}
	if c.SessionLifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME must be positive, got %s", c.SessionLifetime)
	}
	return nil
}
