package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dokq/config"
	"dokq/core"
)

// Claims is the payload of locally issued and verified tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// LocalVerifier verifies HS256 tokens minted by this deployment, with
// issuer and audience pinned. It is the middle strategy: used when the
// managed verifier is not configured, and its failures are terminal.
type LocalVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewLocalVerifier validates the signing secret up front. In production a
// weak secret is fatal; in development a random throwaway secret is
// generated so the gateway still starts (tokens then only verify within
// the one process that issued them).
func NewLocalVerifier(secret, issuer, audience string, production bool) (*LocalVerifier, error) {
	if err := config.ValidateJWTSecret(secret); err != nil {
		if production {
			return nil, fmt.Errorf("local token verifier unavailable: %w", err)
		}
		generated, genErr := generateFallbackSecret()
		if genErr != nil {
			return nil, genErr
		}
		secret = generated
	}
	return &LocalVerifier{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

func (v *LocalVerifier) Name() string { return "local-jwt" }

// Verify parses and validates a local token. Beyond signature and
// registered-claim checks, the subject must be present and the expiry
// must not be unreasonably far out.
func (v *LocalVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) > core.MaxTokenLifetime {
		return nil, errors.New("token has unreasonably long expiration")
	}

	return &Identity{
		Subject: claims.Subject,
		Role:    core.ParseRole(claims.Role),
		Claims:  map[string]any{"role": claims.Role, "sub": claims.Subject},
	}, nil
}

// Issuer mints local tokens for the development login endpoint and the
// token CLI.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewIssuer validates the secret strictly: token issuance never runs on a
// generated fallback, even in development.
func NewIssuer(secret, issuer, audience string, expiry time.Duration) (*Issuer, error) {
	if err := config.ValidateJWTSecret(secret); err != nil {
		return nil, core.NewServerConfig("Authentication service unavailable")
	}
	if expiry <= 0 {
		expiry = core.DefaultJWTExpiry
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, expiry: expiry}, nil
}

// IssueToken signs an HS256 token for subject with the given role.
func (i *Issuer) IssueToken(subject string, role core.Role) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(i.expiry)

	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// generateJTI generates a unique token id with 256-bit entropy.
func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func generateFallbackSecret() (string, error) {
	bytes := make([]byte, 48)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate fallback secret: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
