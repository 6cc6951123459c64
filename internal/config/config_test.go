package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FINSIGHT_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.FreshnessWindow)
	assert.Equal(t, 10*time.Second, cfg.QuoteTimeout)
	assert.False(t, cfg.DevMode)
}

func TestLoad_FreshnessWindowOverride(t *testing.T) {
	t.Setenv("FINSIGHT_DATA_DIR", t.TempDir())
	t.Setenv("FINSIGHT_FRESHNESS_WINDOW", "12h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.FreshnessWindow)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("FINSIGHT_DATA_DIR", t.TempDir())
	t.Setenv("FINSIGHT_FRESHNESS_WINDOW", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.FreshnessWindow)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		shouldErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero freshness window", mutate: func(c *Config) { c.FreshnessWindow = 0 }, shouldErr: true},
		{name: "negative quote timeout", mutate: func(c *Config) { c.QuoteTimeout = -time.Second }, shouldErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, shouldErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Port:            8080,
				FreshnessWindow: time.Hour,
				QuoteTimeout:    10 * time.Second,
			}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
