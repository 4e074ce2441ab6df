package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"dokq/config"
	"dokq/core"
	"dokq/sanitize"
)

// Verifier turns a raw bearer token into an Identity or fails.
type Verifier interface {
	// Verify must honor ctx cancellation; implementations talking to an
	// identity provider bound the call with their own timeout as well.
	Verify(ctx context.Context, token string) (*Identity, error)
	Name() string
}

// Resolver owns the verifier selected at startup and the Bearer-header
// parsing shared by all strategies.
type Resolver struct {
	verifier Verifier
	logger   *zap.SugaredLogger
}

// NewResolver selects the verification strategy in fixed priority order:
// the managed identity-platform verifier when a Firebase project is
// configured, else the local signed-token verifier, else the raw
// shared-secret scheme. The choice is made once here; there is no
// per-request fallthrough between strategies.
func NewResolver(ctx context.Context, cfg *config.Config, secret string, logger *zap.SugaredLogger) (*Resolver, error) {
	var verifier Verifier
	switch {
	case cfg.Auth.FirebaseProjectID != "":
		v, err := NewOIDCVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.VerifyTimeout)
		if err != nil {
			return nil, err
		}
		verifier = v
	case cfg.Auth.LocalHelper:
		v, err := NewLocalVerifier(secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.IsProduction())
		if err != nil {
			return nil, err
		}
		verifier = v
	default:
		verifier = NewSharedSecretVerifier(secret)
	}

	if cfg.Auth.CacheSize > 0 {
		verifier = NewCachingVerifier(verifier, cfg.Auth.CacheSize, cfg.Auth.CacheTTL)
	}

	logger.Infow("Authentication resolver initialized", "strategy", verifier.Name())
	return &Resolver{verifier: verifier, logger: logger}, nil
}

// Strategy returns the name of the active verification strategy.
func (r *Resolver) Strategy() string { return r.verifier.Name() }

// Resolve verifies the Authorization header value and returns the caller
// identity. Verification failures surface as a bare Unauthorized: the
// underlying provider error is logged, never returned to the caller.
func (r *Resolver) Resolve(ctx context.Context, authHeader string) (*Identity, error) {
	if authHeader == "" {
		return nil, core.NewUnauthorized("No valid authorization token provided")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, core.NewUnauthorized("No valid authorization token provided")
	}

	identity, err := r.verifier.Verify(ctx, parts[1])
	if err != nil {
		var appErr *core.AppError
		if errors.As(err, &appErr) && appErr.Code == core.CodeServerConfig {
			// Fatal misconfiguration, not a credential problem.
			r.logger.Errorw("Authentication service misconfigured", "error", err.Error())
			return nil, appErr
		}
		r.logger.Warnw("Token verification failed",
			"strategy", r.verifier.Name(),
			"error", sanitize.RedactError(err))
		return nil, core.NewUnauthorized("Invalid or expired token")
	}
	return identity, nil
}
