package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the public Dune API base.
const DefaultBaseURL = "https://api.dune.com/api"

// DefaultHTTPTimeout leaves headroom for execute-and-poll round trips.
const DefaultHTTPTimeout = 90 * time.Second

// Config carries everything the server needs from the environment. It is
// built once at startup and never re-read per call.
type Config struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment. A missing DUNE_API_KEY is
// the one fatal condition; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		APIKey:      strings.TrimSpace(os.Getenv("DUNE_API_KEY")),
		BaseURL:     strings.TrimSpace(envOr("DUNE_API_BASE_URL", DefaultBaseURL)),
		HTTPTimeout: DefaultHTTPTimeout,
	}
	if cfg.APIKey == "" {
		return Config{}, errors.New("DUNE_API_KEY environment variable is required")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if raw := strings.TrimSpace(os.Getenv("DUNE_HTTP_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid DUNE_HTTP_TIMEOUT %q", raw)
		}
		cfg.HTTPTimeout = d
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
