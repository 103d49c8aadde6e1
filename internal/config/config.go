// Package config loads and validates all environment variables at startup.
// Every other package receives typed values — nothing reads os.Getenv directly.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port string // default "8080"
	Env  string // "development" | "staging" | "production"

	// ── Site ──────────────────────────────────────────────────────────────────
	// SiteURL is used to build the "re-run the calculator" links in emails.
	SiteURL string // default "https://cardvaluelab.com"

	// ── Brevo ─────────────────────────────────────────────────────────────────
	BrevoAPIKey      string
	BrevoSenderEmail string // e.g. "results@cardvaluelab.com"
	BrevoSenderName  string // e.g. "CardValueLab"

	// ── Turnstile ─────────────────────────────────────────────────────────────
	// Optional. When empty, bot verification is bypassed entirely — the
	// local/dev mode. Production deployments must set it.
	TurnstileSecretKey string
}

// Load reads all environment variables and returns a validated Config.
// It automatically loads a .env file from the working directory when present,
// so plain `go run ./cmd/api` works in development without any wrapper.
// Real environment variables always take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv(".env")

	c := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		SiteURL:            getEnv("SITE_URL", "https://cardvaluelab.com"),
		BrevoAPIKey:        os.Getenv("BREVO_API_KEY"),
		BrevoSenderEmail:   getEnv("BREVO_SENDER_EMAIL", "results@cardvaluelab.com"),
		BrevoSenderName:    getEnv("BREVO_SENDER_NAME", "CardValueLab"),
		TurnstileSecretKey: os.Getenv("TURNSTILE_SECRET_KEY"),
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	var errs []error

	if c.BrevoAPIKey == "" {
		errs = append(errs, fmt.Errorf("missing required env var: BREVO_API_KEY"))
	}

	// The Turnstile bypass is a deliberate dev convenience; refuse to run a
	// production build without it.
	if c.Env == "production" && c.TurnstileSecretKey == "" {
		errs = append(errs, fmt.Errorf("TURNSTILE_SECRET_KEY must be set when ENV=production"))
	}

	return errors.Join(errs...)
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set. This means real env vars (e.g.
// from Docker / your shell) always win over the file.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // file absent — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		// Only set if the key isn't already present in the environment.
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
