package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dokq/config"
	"dokq/core"
)

func testConfig() *config.Config {
	cfg := &config.Config{Environment: config.EnvDevelopment}
	cfg.Auth.LocalHelper = true
	cfg.Auth.Issuer = testIssuer
	cfg.Auth.Audience = testAudience
	cfg.Auth.JWTExpiry = time.Hour
	return cfg
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	resolver, err := NewResolver(context.Background(), testConfig(), testSecret, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return resolver
}

func TestNewResolver_SelectsLocalStrategy(t *testing.T) {
	resolver := newTestResolver(t)
	assert.Equal(t, "local-jwt", resolver.Strategy())
}

func TestNewResolver_SharedSecretWhenLocalHelperOff(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.LocalHelper = false

	resolver, err := NewResolver(context.Background(), cfg, testSecret, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, "shared-secret", resolver.Strategy())
}

func TestNewResolver_CacheWrapsKeepStrategyName(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.CacheSize = 16
	cfg.Auth.CacheTTL = time.Minute

	resolver, err := NewResolver(context.Background(), cfg, testSecret, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, "local-jwt", resolver.Strategy(),
		"the cache is transparent, the strategy name is the inner verifier's")
}

func TestResolve_HeaderParsing(t *testing.T) {
	resolver := newTestResolver(t)

	for _, header := range []string{
		"",
		"Bearer",
		"Bearer ",
		"Basic dXNlcjpwYXNz",
		"just-a-raw-token",
	} {
		_, err := resolver.Resolve(context.Background(), header)
		require.Error(t, err, "header %q", header)

		appErr, ok := core.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeUnauthorized, appErr.Code)
		assert.Equal(t, "No valid authorization token provided", appErr.Message)
	}
}

func TestResolve_ValidBearer(t *testing.T) {
	resolver := newTestResolver(t)

	issuer, err := NewIssuer(testSecret, testIssuer, testAudience, time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.IssueToken("user-7", core.RoleNurse)
	require.NoError(t, err)

	identity, err := resolver.Resolve(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", identity.Subject)
	assert.Equal(t, core.RoleNurse, identity.Role)

	// Scheme matching is case-insensitive per RFC 7235.
	identity, err = resolver.Resolve(context.Background(), "bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", identity.Subject)
}

func TestResolve_InvalidTokenIsOpaque(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), "Bearer not.a.token")
	require.Error(t, err)

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid or expired token", appErr.Message,
		"the provider error must not leak to the caller")
}

func TestResolve_ServerConfigErrorPassesThrough(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.LocalHelper = false

	// Shared-secret strategy with an unusable secret: every verification
	// surfaces the configuration error, not an auth failure.
	resolver, err := NewResolver(context.Background(), cfg, "short", zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "Bearer whatever")
	require.Error(t, err)

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, core.CodeServerConfig, appErr.Code)
}

// stubVerifier counts inner verifications for cache behavior tests.
type stubVerifier struct {
	calls    int
	identity *Identity
	err      error
}

func (s *stubVerifier) Name() string { return "stub" }

func (s *stubVerifier) Verify(context.Context, string) (*Identity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestCachingVerifier_CachesSuccesses(t *testing.T) {
	stub := &stubVerifier{identity: &Identity{Subject: "user-1", Role: core.RoleAdmin}}
	cached := NewCachingVerifier(stub, 8, time.Minute)

	for i := 0; i < 5; i++ {
		identity, err := cached.Verify(context.Background(), "token-a")
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.Subject)
	}
	assert.Equal(t, 1, stub.calls, "repeat verifications should hit the cache")

	_, err := cached.Verify(context.Background(), "token-b")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls, "distinct tokens verify separately")
}

func TestCachingVerifier_NeverCachesFailures(t *testing.T) {
	stub := &stubVerifier{err: errors.New("expired")}
	cached := NewCachingVerifier(stub, 8, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := cached.Verify(context.Background(), "token-a")
		assert.Error(t, err)
	}
	assert.Equal(t, 3, stub.calls, "failures must reach the inner verifier every time")
}
