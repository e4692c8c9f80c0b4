// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds everything the server needs at startup.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// GeminiAPIKey authenticates text-generation calls. Required.
	GeminiAPIKey string

	// GeminiModel overrides the default model when set.
	GeminiModel string

	// DatabasePath is the SQLite file holding chat history.
	DatabasePath string

	// MarketAPIURL overrides the agmarket endpoint; empty keeps the
	// public one.
	MarketAPIURL string

	// AllowedOrigins restricts CORS; empty allows all.
	AllowedOrigins []string

	// Debug enables verbose router output.
	Debug bool
}

// Load reads the configuration from the environment, applying defaults.
// A missing required value is a startup error.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         envOr("PORT", "8080"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),
		DatabasePath: envOr("DATABASE_PATH", "./cropchat.db"),
		MarketAPIURL: os.Getenv("MARKET_API_URL"),
		Debug:        os.Getenv("DEBUG") == "true",
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (cfg *Config) Addr() string {
	return ":" + cfg.Port
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
