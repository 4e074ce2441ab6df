package api

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dokq/core"
	"dokq/csrf"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=1,max=1024"`
}

// login issues a locally signed token after checking the configured
// credentials. This is the fallback path for deployments without the
// managed identity platform; with Firebase configured, clients sign in
// against Firebase directly and this endpoint is not registered.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if a.issuer == nil {
		a.writeError(w, r, core.NewServerConfig("Authentication service unavailable"))
		return
	}

	var req loginRequest
	if ok := a.decodeAndValidate(w, r, &req); !ok {
		return
	}

	if a.cfg.Auth.Username == "" || a.cfg.Auth.HashedPassword == "" {
		a.writeError(w, r, core.NewServerConfig("Authentication service unavailable"))
		return
	}

	// A single failure path for unknown user and wrong password, so the
	// response does not reveal which part was wrong.
	if req.Username != a.cfg.Auth.Username ||
		bcrypt.CompareHashAndPassword([]byte(a.cfg.Auth.HashedPassword), []byte(req.Password)) != nil {
		a.logger.Warnw("Failed login attempt",
			"remote_addr", a.clientIP(r))
		a.writeError(w, r, core.NewUnauthorized("Invalid login credentials"))
		return
	}

	token, expiresAt, err := a.issuer.IssueToken(req.Username, core.RoleAdmin)
	if err != nil {
		a.writeError(w, r, core.NewInternal("Failed to issue token", err))
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// logout discards every CSRF token bound to the caller's session. The
// bearer token itself is stateless; clients drop it on their side.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	sessionID := a.sessionID(r)
	a.engine.CleanupSession(r.Context(), sessionID)

	// Expire the double-submit cookie as well.
	http.SetCookie(w, &http.Cookie{
		Name:     csrf.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
		Secure:   a.cfg.IsProduction(),
	})

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Logged out",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
