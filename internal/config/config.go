package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret      string `env:"JWT_SECRET"`
	Port           string `env:"PORT" envDefault:"8080"`
	PrometheusPort string `env:"PROMETHEUS_PORT" envDefault:"9090"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramAPI    string `env:"TELEGRAM_API_ENDPOINT"`

	AutosaveDelay        time.Duration `env:"AUTOSAVE_DELAY" envDefault:"1200ms"`
	SearchHouseholdLimit int           `env:"SEARCH_HOUSEHOLD_LIMIT" envDefault:"50"`
	SearchGuestLimit     int           `env:"SEARCH_GUEST_LIMIT" envDefault:"100"`
	ListenerMinReconnect time.Duration `env:"LISTENER_MIN_RECONNECT" envDefault:"10s"`
	ListenerMaxReconnect time.Duration `env:"LISTENER_MAX_RECONNECT" envDefault:"1m"`

	Pool Pool
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.ListenerMaxReconnect < cfg.ListenerMinReconnect {
		return nil, fmt.Errorf("LISTENER_MAX_RECONNECT (%s) is shorter than LISTENER_MIN_RECONNECT (%s)",
			cfg.ListenerMaxReconnect, cfg.ListenerMinReconnect)
	}

	return &cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}
