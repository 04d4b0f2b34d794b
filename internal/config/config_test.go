package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultRiskAPIURL, cfg.RiskAPIURL)
	assert.Equal(t, DefaultRiskModel, cfg.RiskModel)
	assert.Equal(t, DefaultRiskTimeout, cfg.RiskTimeout)
	assert.Equal(t, int64(DefaultRequestSize), cfg.RequestSizeLimit)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ENV", "staging")
	t.Setenv("RISK_MODEL", "gpt-4o")
	t.Setenv("RISK_TIMEOUT", "3s")
	t.Setenv("DEV_USERS", "t:u")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "gpt-4o", cfg.RiskModel)
	assert.Equal(t, 3*time.Second, cfg.RiskTimeout)
	assert.Equal(t, "t:u", cfg.DevUsers)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidateProductionRequiresRiskKey(t *testing.T) {
	cfg := &Config{
		Port:        "8080",
		Env:         "production",
		RiskAPIURL:  DefaultRiskAPIURL,
		RiskTimeout: DefaultRiskTimeout,
	}
	assert.Error(t, cfg.Validate())

	cfg.RiskAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{Env: "development", RiskAPIURL: DefaultRiskAPIURL, RiskTimeout: DefaultRiskTimeout}
	assert.Error(t, cfg.Validate(), "empty port")

	cfg = &Config{Port: "8080", Env: "development", RiskAPIKey: "k", RiskAPIURL: "not-a-url", RiskTimeout: DefaultRiskTimeout}
	assert.Error(t, cfg.Validate(), "bad risk url")

	cfg = &Config{Port: "8080", Env: "development", RiskAPIURL: DefaultRiskAPIURL, RiskTimeout: -1}
	assert.Error(t, cfg.Validate(), "negative timeout")
}
