package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/handler"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		Currency:    "USD",
		TaxRate:     "0.08",
		DefaultCart: []string{"1:1", "2:2", "3:1"},
		Session:     SessionConfig{TTL: 30 * time.Minute},
		RateLimit:   RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestConfig_Parsed(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	unit, err := cfg.CurrencyUnit()
	require.NoError(t, err)
	assert.Equal(t, currency.USD, unit)

	rate, err := cfg.Tax()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.08").Equal(rate))

	lines, err := cfg.Cart()
	require.NoError(t, err)
	assert.Equal(t, []handler.CartLine{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 2, Quantity: 2},
		{MenuItemID: 3, Quantity: 1},
	}, lines)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "bad currency", mutate: func(c *Config) { c.Currency = "DOLLARS" }, wantErr: "currency"},
		{name: "bad tax", mutate: func(c *Config) { c.TaxRate = "eight" }, wantErr: "tax rate"},
		{name: "negative tax", mutate: func(c *Config) { c.TaxRate = "-0.1" }, wantErr: "out of range"},
		{name: "tax of one", mutate: func(c *Config) { c.TaxRate = "1" }, wantErr: "out of range"},
		{name: "cart without colon", mutate: func(c *Config) { c.DefaultCart = []string{"1"} }, wantErr: "want id:quantity"},
		{name: "cart bad id", mutate: func(c *Config) { c.DefaultCart = []string{"x:1"} }, wantErr: "invalid menu item id"},
		{name: "cart zero qty", mutate: func(c *Config) { c.DefaultCart = []string{"1:0"} }, wantErr: "quantity must be at least 1"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "session TTL"},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.Max = 0 }, wantErr: "rate limit"},
		{name: "auth without keys", mutate: func(c *Config) { c.Auth.Required = true }, wantErr: "no API keys"},
		{name: "auth with keys", mutate: func(c *Config) {
			c.Auth.Required = true
			c.Auth.Keys = []string{"secret"}
		}},
		{name: "auth with database", mutate: func(c *Config) {
			c.Auth.Required = true
			c.DatabaseURL = "postgres://localhost/kitchen"
		}},
		{name: "empty cart", mutate: func(c *Config) { c.DefaultCart = nil }},
		{name: "gbp", mutate: func(c *Config) { c.Currency = "gbp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg := validConfig()
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = validConfig()
	cfg.DatabaseURL = "postgres://explicit/db"
	cfg.Addr = "127.0.0.1:8000"
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr)
}
