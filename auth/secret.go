package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"dokq/config"
	"dokq/core"
)

// SharedSecretVerifier is the last-resort strategy: raw HS256
// verification against the configured secret, with no issuer or audience
// pinning. The secret is checked on every call so a deployment that lost
// its secret fails loudly with a configuration error rather than quietly
// rejecting every credential.
type SharedSecretVerifier struct {
	secret string
}

func NewSharedSecretVerifier(secret string) *SharedSecretVerifier {
	return &SharedSecretVerifier{secret: secret}
}

func (v *SharedSecretVerifier) Name() string { return "shared-secret" }

func (v *SharedSecretVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	if err := config.ValidateJWTSecret(v.secret); err != nil {
		return nil, core.NewServerConfig("Authentication service unavailable")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(v.secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		// Some issuers put the user id in uid instead of sub.
		if uid, ok := claims["uid"].(string); ok && uid != "" {
			subject = uid
		} else {
			return nil, fmt.Errorf("token missing user identifier")
		}
	}

	role := core.DefaultRole
	if raw, ok := claims["role"].(string); ok {
		role = core.ParseRole(raw)
	}

	return &Identity{Subject: subject, Role: role, Claims: claims}, nil
}
