package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string

	BotToken string
	DBDSN    string

	LogLevel string

	AssetsDir string

	PhotoTimeoutMS int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("IC_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("IC_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("IC_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("IC_HTTP_ADDR", ":8080")

	cfg.BotToken = strings.TrimSpace(os.Getenv("IC_BOT_TOKEN"))
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("IC_BOT_TOKEN is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("IC_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("IC_DB_DSN is required")
	}

	cfg.LogLevel = getEnvOrDefault("IC_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("IC_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	cfg.AssetsDir = getEnvOrDefault("IC_ASSETS_DIR", "assets")

	var err error
	cfg.PhotoTimeoutMS, err = getEnvIntOrDefault("IC_PHOTO_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	if cfg.PhotoTimeoutMS <= 0 || cfg.PhotoTimeoutMS > 30000 {
		return nil, fmt.Errorf("IC_PHOTO_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.PhotoTimeoutMS)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"IC_ENV":              c.Env,
		"IC_HTTP_ADDR":        c.HTTPAddr,
		"IC_BOT_TOKEN":        "[REDACTED]",
		"IC_DB_DSN":           redactDSN(c.DBDSN),
		"IC_LOG_LEVEL":        c.LogLevel,
		"IC_ASSETS_DIR":       c.AssetsDir,
		"IC_PHOTO_TIMEOUT_MS": fmt.Sprintf("%d", c.PhotoTimeoutMS),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
