package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Checkout.TaxDisplayRate.Equal(decimal.RequireFromString("0.08")))
	assert.Equal(t, 20, cfg.Checkout.DefaultPageSize)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.Contains(t, cfg.GetDatabaseDSN(), "dbname=storefront_db")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TAX_DISPLAY_RATE", "0.1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Checkout.TaxDisplayRate.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing redis host", func(c *Config) { c.Redis.Host = "" }},
		{"tax rate of one", func(c *Config) { c.Checkout.TaxDisplayRate = decimal.NewFromInt(1) }},
		{"negative tax rate", func(c *Config) { c.Checkout.TaxDisplayRate = decimal.NewFromInt(-1) }},
		{"page sizes inverted", func(c *Config) { c.Checkout.MaxPageSize = 1 }},
		{"unknown exporter", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "zipkin" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
