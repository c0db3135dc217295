package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the draft server.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	CatalogPath     string        `env:"CATALOG_PATH" envDefault:"Individual_Rankings.csv"`
	Rounds          int           `env:"DRAFT_ROUNDS" envDefault:"7"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Websocket
	ClientBuffer  int           `env:"CLIENT_BUFFER" envDefault:"16"`
	PingInterval  time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	WriteTimeout  time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
	MessageRate   float64       `env:"WS_MESSAGE_RATE" envDefault:"10"`
	MessageBurst  int           `env:"WS_MESSAGE_BURST" envDefault:"20"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	AllowedOrigin []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional dotenv file into the environment, then parses it.
// A missing dotenv file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("DRAFT_ROUNDS must be positive, got %d", c.Rounds)
	}
	if c.CatalogPath == "" {
		return errors.New("CATALOG_PATH is required")
	}
	if c.ClientBuffer <= 0 {
		return fmt.Errorf("CLIENT_BUFFER must be positive, got %d", c.ClientBuffer)
	}
	if c.PingInterval <= 0 || c.WriteTimeout <= 0 {
		return errors.New("WS_PING_INTERVAL and WS_WRITE_TIMEOUT must be positive")
	}
	if c.MessageRate <= 0 || c.MessageBurst <= 0 {
		return errors.New("WS_MESSAGE_RATE and WS_MESSAGE_BURST must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
