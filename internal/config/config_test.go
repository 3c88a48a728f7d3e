package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("AGENT_API_KEY", "agent-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/issuepilot.db", cfg.DBPath)
	assert.Equal(t, "https://api.devin.ai/v1", cfg.AgentAPIURL)
	assert.Equal(t, 15*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 60*time.Second, cfg.Polling.MaxInterval)
	assert.Equal(t, 1800*time.Second, cfg.Polling.ScopeTimeout)
	assert.Equal(t, 6000*time.Second, cfg.Polling.ExecuteTimeout)
	assert.False(t, cfg.PostScopeComment)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("AGENT_API_URL", "https://agent.internal/v1/")
	t.Setenv("POLL_INTERVAL", "5")
	t.Setenv("SCOPE_TIMEOUT", "600")
	t.Setenv("POST_SCOPE_COMMENT", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	// Trailing slash is stripped so endpoint paths concatenate cleanly.
	assert.Equal(t, "https://agent.internal/v1", cfg.AgentAPIURL)
	assert.Equal(t, 5*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 600*time.Second, cfg.Polling.ScopeTimeout)
	assert.True(t, cfg.PostScopeComment)
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("AGENT_API_KEY", "key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")

	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("AGENT_API_KEY", "")

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_API_KEY")
}

func TestLoadMalformedNumbersFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "not-a-number")
	t.Setenv("SCOPE_TIMEOUT", "-5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 1800*time.Second, cfg.Polling.ScopeTimeout)
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://issuepilot.example.com", false},
	}

	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		assert.Equal(t, tt.want, cfg.IsDevelopment(), "frontend URL %q", tt.frontendURL)
	}
}
