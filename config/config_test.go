package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := &Config{Environment: EnvDevelopment}
	cfg.API.Port = 3001
	cfg.CSRF.Store = CSRFStoreMemory
	return cfg
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := validTestConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }},
		{"zero port", func(c *Config) { c.API.Port = 0 }},
		{"port out of range", func(c *Config) { c.API.Port = 70000 }},
		{"tls without certs", func(c *Config) { c.API.TLS = true }},
		{"unknown csrf store", func(c *Config) { c.CSRF.Store = "memcached" }},
		{"redis store without addr", func(c *Config) {
			c.CSRF.Store = CSRFStoreRedis
			c.CSRF.Redis.Addr = ""
		}},
		{"production without cors origin", func(c *Config) {
			c.Environment = EnvProduction
			c.API.CORSOrigin = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedOrigins_ProductionIsSingleOrigin(t *testing.T) {
	cfg := validTestConfig()
	cfg.Environment = EnvProduction
	cfg.API.CORSOrigin = "https://app.dokq.example"

	origins := cfg.AllowedOrigins()
	require.Len(t, origins, 1)
	assert.Equal(t, "https://app.dokq.example", origins[0])
}

func TestAllowedOrigins_DevelopmentUsesLocalSet(t *testing.T) {
	cfg := validTestConfig()

	origins := cfg.AllowedOrigins()
	assert.Contains(t, origins, "http://localhost:5173")
	assert.Contains(t, origins, "http://127.0.0.1:3000")
	// The production origin setting plays no part in development.
	assert.NotContains(t, origins, cfg.API.CORSOrigin)
}

func TestIsProduction(t *testing.T) {
	cfg := validTestConfig()
	assert.False(t, cfg.IsProduction())
	cfg.Environment = EnvProduction
	assert.True(t, cfg.IsProduction())
}
