package api

import (
	"net/http"
	"strings"

	"dokq/core"
	"dokq/csrf"
	"dokq/metrics"
)

// csrfHeaderCanonical is the header name as advertised in CORS
// allow-lists.
const csrfHeaderCanonical = "X-CSRF-Token"

// csrfSkipPaths are exempt from CSRF validation: the issuance endpoint
// itself, the health check, and the read-only dashboard/status routes.
var csrfSkipPaths = []string{
	"/api/auth/csrf-token",
	"/api/health",
	"/api/dashboard/stats",
	"/api/surgery/queue",
	"/api/or/status",
	"/api/rural/patients",
	"/api/analytics/wait-times",
	"/api/patient/",
}

// csrfSkipMethods never require a token: they must not mutate state.
var csrfSkipMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// csrfProtect validates the double-submit token on mutating requests.
// It runs after authentication so the token binds to the caller's
// identity; anonymous callers bind to their transport session or address.
func (a *API) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := csrfSkipMethods[r.Method]; skip {
			next.ServeHTTP(w, r)
			return
		}
		for _, path := range csrfSkipPaths {
			if strings.Contains(r.URL.Path, path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		sessionID := a.sessionID(r)
		if sessionID == "" {
			metrics.CSRFValidations.WithLabelValues("no_session").Inc()
			a.writeError(w, r, core.NewCSRF(core.CodeCSRFNoSession, "Session required for CSRF protection"))
			return
		}

		token, csrfErr := a.engine.Validate(r.Context(), r, sessionID)
		if csrfErr != nil {
			metrics.CSRFValidations.WithLabelValues("denied").Inc()
			a.writeError(w, r, csrfErr)
			return
		}

		metrics.CSRFValidations.WithLabelValues("granted").Inc()
		ctx := WithCSRF(r.Context(), CSRFInfo{Token: token, SessionID: sessionID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getCSRFToken issues a token for the authenticated caller's session.
func (a *API) getCSRFToken(w http.ResponseWriter, r *http.Request) {
	resp, err := a.engine.Issue(r.Context(), w, a.sessionID(r))
	if err != nil {
		a.writeError(w, r, core.NewInternal("Failed to generate CSRF token", err))
		return
	}
	metrics.CSRFTokensIssued.Inc()

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"csrfToken":  resp.CSRFToken,
		"expiry":     resp.Expiry,
		"headerName": resp.HeaderName,
		"cookieName": resp.CookieName,
		"message":    "CSRF token generated successfully",
	})
}

// refreshCSRFToken confirms or rotates the caller's current token. The
// response's rotated flag tells the client whether to swap tokens.
func (a *API) refreshCSRFToken(w http.ResponseWriter, r *http.Request) {
	current := csrf.ExtractToken(r)

	resp, rotated, err := a.engine.Refresh(r.Context(), w, a.sessionID(r), current)
	if err != nil {
		a.writeError(w, r, core.NewInternal("Failed to refresh CSRF token", err))
		return
	}
	if !rotated {
		a.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"rotated": false,
			"message": "Current CSRF token is still valid",
		})
		return
	}

	metrics.CSRFTokensIssued.Inc()
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"rotated":    true,
		"csrfToken":  resp.CSRFToken,
		"expiry":     resp.Expiry,
		"headerName": resp.HeaderName,
		"cookieName": resp.CookieName,
		"message":    "CSRF token refreshed successfully",
	})
}
