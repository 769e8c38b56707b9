// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// Rephrase provider names.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// knownWeakKeys contains example encryption keys that must be rejected in production.
var knownWeakKeys = []string{
	"change-me",
	"REPLACE_WITH_YOUR_OWN_ENCRYPTION_KEY",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"POLITE_DB_PATH" envDefault:"./data/usage.db"`
	DBDriver   string `env:"POLITE_DB_DRIVER" envDefault:"sqlite"`
	ServerHost string `env:"POLITE_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"POLITE_SERVER_PORT" envDefault:"5000"`
	Env        string `env:"POLITE_ENV" envDefault:"development"`
	LogLevel   string `env:"POLITE_LOG_LEVEL" envDefault:"info"`

	// Rephrasing provider
	RephraseProvider   string        `env:"POLITE_REPHRASE_PROVIDER" envDefault:"http"`
	RephraseURL        string        `env:"POLITE_REPHRASE_URL" envDefault:"http://localhost:8000/rephrase"`
	RephraseTimeout    time.Duration `env:"POLITE_REPHRASE_TIMEOUT"` // zero keeps the transport default
	OpenAIAPIKey       string        `env:"POLITE_OPENAI_API_KEY"`
	OpenAIModel        string        `env:"POLITE_OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIRewriteModel string        `env:"POLITE_OPENAI_REWRITE_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL      string        `env:"POLITE_OPENAI_BASE_URL"` // optional, for compatible gateways

	// Message encryption
	EncryptionKey string `env:"POLITE_ENCRYPTION_KEY"`

	// Rate limiting of /rephrase per client IP
	RateLimitRPS   float64 `env:"POLITE_RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"POLITE_RATE_LIMIT_BURST" envDefault:"10"`

	// Nightly usage digest
	DigestEnabled  bool   `env:"POLITE_DIGEST_ENABLED" envDefault:"true"`
	DigestSchedule string `env:"POLITE_DIGEST_SCHEDULE" envDefault:"5 0 * * *"`

	// Allowed CORS origins
	CORSOrigins []string `env:"POLITE_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// EncryptionEnabled returns true if an encryption key is configured.
func (c Config) EncryptionEnabled() bool {
	return c.EncryptionKey != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !cfg.EncryptionEnabled() {
		slog.Warn("POLITE_ENCRYPTION_KEY is not set; /encrypt will answer 500")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("POLITE_DB_DRIVER must be sqlite or sqlite3, got %q", c.DBDriver)
	}

	switch c.RephraseProvider {
	case ProviderHTTP:
		if c.RephraseURL == "" {
			return fmt.Errorf("POLITE_REPHRASE_URL is required for the http provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("POLITE_OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("POLITE_REPHRASE_PROVIDER must be %q or %q, got %q",
			ProviderHTTP, ProviderOpenAI, c.RephraseProvider)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("POLITE_RATE_LIMIT_RPS and POLITE_RATE_LIMIT_BURST must be positive")
	}

	if c.DigestEnabled {
		if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
			return fmt.Errorf("POLITE_DIGEST_SCHEDULE is not a valid cron expression: %w", err)
		}
	}

	if !c.IsDevelopment() {
		for _, weak := range knownWeakKeys {
			if c.EncryptionKey == weak {
				return fmt.Errorf("POLITE_ENCRYPTION_KEY is a known example value and must not be used in production")
			}
		}
	}

	return nil
}
