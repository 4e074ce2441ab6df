package api

import (
	"context"

	"dokq/auth"
)

// contextKey is a private type to prevent context key collisions across
// packages. Only this package can create keys, so nothing outside the
// pipeline can inject an identity and bypass authorization.
type contextKey string

const (
	contextKeyIdentity  contextKey = "identity"
	contextKeyRequestID contextKey = "request_id"
	contextKeyCSRF      contextKey = "csrf"
)

// CSRFInfo is the validation metadata attached after a successful CSRF
// check.
type CSRFInfo struct {
	Token     string
	SessionID string
}

// WithIdentity attaches the resolved caller identity to the request
// context. The attachment is request-scoped only.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// GetIdentity returns the resolved identity, if authentication ran.
func GetIdentity(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(*auth.Identity)
	return identity, ok && identity != nil
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func WithCSRF(ctx context.Context, info CSRFInfo) context.Context {
	return context.WithValue(ctx, contextKeyCSRF, info)
}

func GetCSRF(ctx context.Context) (CSRFInfo, bool) {
	info, ok := ctx.Value(contextKeyCSRF).(CSRFInfo)
	return info, ok
}
