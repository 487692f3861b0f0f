package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the process configuration, read from the environment.
// DatabaseURL selects the Postgres backend; when empty, SQLitePath is
// used instead (empty SQLitePath means in-memory).
type Config struct {
	DatabaseURL string `validate:"omitempty,uri"`
	SQLitePath  string

	StaticURL    string   `validate:"omitempty,url"`
	RealtimeURLs []string `validate:"dive,url"`

	Strict bool

	LogLevel string `validate:"omitempty,oneof=trace debug info warn error"`
	LogFile  string
}

// FromEnv reads configuration from the environment, loading a .env
// file first if one is present.
func FromEnv() (*Config, error) {
	// Missing .env is fine; the real environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		StaticURL:   os.Getenv("STATIC_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFile:     os.Getenv("LOG_FILE"),
	}

	if urls := os.Getenv("REALTIME_URLS"); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.RealtimeURLs = append(cfg.RealtimeURLs, u)
			}
		}
	}

	if s := os.Getenv("STRICT"); s != "" {
		strict, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing STRICT=%q", s)
		}
		cfg.Strict = strict
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return cfg, nil
}
