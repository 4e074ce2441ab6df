package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty", "", true},
		{"known placeholder", "fallback-secret", true},
		{"placeholder case insensitive", "CHANGEME", true},
		{"too short", "only-twenty-chars!!!", true},
		{"strong", strings.Repeat("a1b2c3d4", 4), false},
		{"long random", "kXjP9mQ2wE5rT8yU1iO4pA7sD0fG3hJ6", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJWTSecret(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvSecretManager_JWTSecretResolution(t *testing.T) {
	t.Setenv("DOKQ_AUTH_JWT_SECRET", "from-environment-0123456789abcdef")

	mgr := &EnvSecretManager{Fallback: "from-config-file-0123456789abcdef"}
	secret, err := mgr.GetJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, "from-environment-0123456789abcdef", secret,
		"environment variable should win over the config fallback")
}

func TestEnvSecretManager_FallbackWhenEnvUnset(t *testing.T) {
	t.Setenv("DOKQ_AUTH_JWT_SECRET", "")

	mgr := &EnvSecretManager{Fallback: "from-config-file-0123456789abcdef"}
	secret, err := mgr.GetJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, "from-config-file-0123456789abcdef", secret)

	empty := &EnvSecretManager{}
	_, err = empty.GetJWTSecret()
	assert.Error(t, err, "no env var and no fallback should fail")
}

func TestNewSecretManager_ProviderSelection(t *testing.T) {
	cfg := validTestConfig()

	cfg.Secrets.Provider = "env"
	mgr, err := NewSecretManager(cfg)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, mgr)

	cfg.Secrets.Provider = ""
	mgr, err = NewSecretManager(cfg)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, mgr, "empty provider defaults to env")

	cfg.Secrets.Provider = "gcp"
	_, err = NewSecretManager(cfg)
	assert.Error(t, err)
}
