package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"dokq/core"
)

// firebaseIssuerBase is the secure-token issuer prefix for Firebase
// Authentication projects.
const firebaseIssuerBase = "https://securetoken.google.com/"

// OIDCVerifier verifies Firebase ID tokens against the project's
// secure-token issuer. Signing keys are fetched and cached by the OIDC
// provider.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewOIDCVerifier discovers the issuer for projectID and prepares a
// verifier. Discovery happens once at startup; per-request verification
// is local apart from key refreshes.
func NewOIDCVerifier(ctx context.Context, projectID string, timeout time.Duration) (*OIDCVerifier, error) {
	if timeout <= 0 {
		timeout = core.VerifyTimeout
	}
	issuer := firebaseIssuerBase + projectID

	discoverCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	provider, err := oidc.NewProvider(discoverCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider for %s: %w", issuer, err)
	}

	return &OIDCVerifier{
		// Firebase ID tokens use the project id as audience.
		verifier: provider.Verifier(&oidc.Config{ClientID: projectID}),
		timeout:  timeout,
	}, nil
}

func (v *OIDCVerifier) Name() string { return "firebase-oidc" }

// Verify validates the ID token and maps its claims to an Identity. The
// role comes from the "role" custom claim, defaulting when absent or
// unknown.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}

	role := core.DefaultRole
	if raw, ok := claims["role"].(string); ok {
		role = core.ParseRole(raw)
	}

	return &Identity{
		Subject: idToken.Subject,
		Role:    role,
		Claims:  claims,
	}, nil
}
