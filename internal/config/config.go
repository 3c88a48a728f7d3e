// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is loaded once at process
// start and passed by reference to every component that needs it.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	GitHubToken string

	AgentAPIKey string
	AgentAPIURL string

	Polling PollingConfig

	// PostScopeComment enables posting a summary comment on the issue after
	// a completed scope run.
	PostScopeComment bool
}

// PollingConfig controls the session polling engine.
type PollingConfig struct {
	Interval       time.Duration // initial delay between polls
	MaxInterval    time.Duration // backoff cap
	ScopeTimeout   time.Duration // overall bound for scoping sessions
	ExecuteTimeout time.Duration // overall bound for execution sessions
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/issuepilot.db"),

		GitHubToken: getEnv("GITHUB_TOKEN", ""),

		AgentAPIKey: getEnv("AGENT_API_KEY", ""),
		AgentAPIURL: strings.TrimRight(getEnv("AGENT_API_URL", "https://api.devin.ai/v1"), "/"),

		Polling: PollingConfig{
			Interval:       getEnvSeconds("POLL_INTERVAL", 15*time.Second),
			MaxInterval:    getEnvSeconds("POLL_MAX_INTERVAL", 60*time.Second),
			ScopeTimeout:   getEnvSeconds("SCOPE_TIMEOUT", 1800*time.Second),
			ExecuteTimeout: getEnvSeconds("EXECUTE_TIMEOUT", 6000*time.Second),
		},

		PostScopeComment: getEnvBool("POST_SCOPE_COMMENT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is not configured")
	}
	if c.AgentAPIKey == "" {
		return fmt.Errorf("AGENT_API_KEY is not configured")
	}
	if c.AgentAPIURL == "" {
		return fmt.Errorf("AGENT_API_URL cannot be empty")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	if c.Polling.ScopeTimeout <= 0 || c.Polling.ExecuteTimeout <= 0 {
		return fmt.Errorf("polling timeouts must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvSeconds reads a duration expressed as a whole number of seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
