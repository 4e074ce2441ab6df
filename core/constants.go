// Package core holds shared types and constants for the DokQ gateway:
// the error taxonomy used across the middleware pipeline, the role
// enumeration, and the tuning constants for the security components.
package core

import "time"

// Request sanitization limits.
const (
	// MaxRequestBodySize is the declared content-length ceiling. Requests
	// announcing more than this are rejected with 413 before any parsing.
	MaxRequestBodySize = 10 << 20 // 10 MiB

	// MaxErrorMessageLength caps externally visible error text to prevent
	// information disclosure through verbose errors.
	MaxErrorMessageLength = 200

	// ScanMatchTimeout bounds a single injection-signature regex match so
	// crafted input cannot stall the request path (ReDoS protection).
	ScanMatchTimeout = 100 * time.Millisecond
)

// CSRF protocol tuning. These mirror the double-submit token protocol:
// tokens live 30 minutes, become rotation-due at 15, and each session may
// hold at most 3 outstanding tokens.
const (
	CSRFTokenBytes          = 32
	CSRFTokenTTL            = 30 * time.Minute
	CSRFRotationInterval    = 15 * time.Minute
	CSRFMaxTokensPerSession = 3
	CSRFSweepInterval       = 5 * time.Minute
)

// Authentication tuning.
const (
	// VerifyTimeout bounds a single identity-provider verification call so
	// a slow upstream cannot hold a request indefinitely.
	VerifyTimeout = 5 * time.Second

	// MinJWTSecretLength is the minimum accepted signing-secret length.
	// Anything shorter is a fatal misconfiguration, not a per-request error.
	MinJWTSecretLength = 32

	// DefaultJWTExpiry is the lifetime of locally issued tokens.
	DefaultJWTExpiry = 24 * time.Hour

	// MaxTokenLifetime rejects tokens with unreasonably distant expiry
	// claims, which usually indicate a forged or misissued token.
	MaxTokenLifetime = 30 * 24 * time.Hour

	// AuthCacheTTL is how long a verified bearer token is trusted without
	// re-verification. Kept well below token lifetime.
	AuthCacheTTL = 5 * time.Minute

	// AuthCacheSize bounds the verification cache.
	AuthCacheSize = 4096
)

// Rate limiter housekeeping.
const (
	RateLimiterIdleTimeout     = 1 * time.Hour
	RateLimiterCleanupInterval = 1 * time.Hour
)
