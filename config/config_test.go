package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		AuthToken:         "secret",
		QuoteDebounce:     400 * time.Millisecond,
		RequestsPerMinute: 200,
		Storage:           StorageConfig{Backend: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bolt backend", func(c *Config) { c.Storage.Backend = "bolt" }, false},
		{"missing token", func(c *Config) { c.AuthToken = "" }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, true},
		{"zero debounce", func(c *Config) { c.QuoteDebounce = 0 }, true},
		{"zero quota", func(c *Config) { c.RequestsPerMinute = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COIN_SWAP_AUTH_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AuthToken)
	assert.Equal(t, "https://api.lbry.com", cfg.BaseURL)
	assert.Equal(t, 400*time.Millisecond, cfg.QuoteDebounce)
	assert.Equal(t, 60*time.Second, cfg.HistoryRefreshInterval)
	assert.Equal(t, 200, cfg.RequestsPerMinute)
	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, int64(1), cfg.AutoDeposit.EVM.ChainID)
	assert.Equal(t, int32(6), cfg.AutoDeposit.EVM.Tokens["usdc"].Decimals)
}
