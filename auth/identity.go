// Package auth resolves bearer credentials into request identities. The
// resolution strategy is an ordered chain of verifiers selected at
// startup: managed identity platform (Firebase via OIDC), local signed
// tokens, or a raw shared-secret scheme.
package auth

import "dokq/core"

// Identity is the per-request resolved caller. It lives only in the
// request context and is never persisted or shared across requests.
type Identity struct {
	// Subject is the stable caller identifier (Firebase uid or token sub).
	Subject string
	// Role drives authorization decisions downstream.
	Role core.Role
	// Claims are the raw verified token claims.
	Claims map[string]any
}
