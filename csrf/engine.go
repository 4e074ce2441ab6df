package csrf

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"dokq/core"
)

// Wire names of the double-submit pattern. Clients send the token in the
// header (or body field) and the cookie; both must match the server-side
// record.
const (
	HeaderName = "x-csrf-token"
	CookieName = "__csrf_token"
	BodyField  = "_csrf"
)

// TokenResponse is the issuance payload returned to clients.
type TokenResponse struct {
	CSRFToken string `json:"csrfToken"`
	// Expiry is milliseconds since epoch.
	Expiry     int64  `json:"expiry"`
	HeaderName string `json:"headerName"`
	CookieName string `json:"cookieName"`
}

// Engine implements the CSRF token protocol over a Store.
type Engine struct {
	store         Store
	secureCookies bool
	ttl           time.Duration
	rotationAge   time.Duration
	logger        *zap.SugaredLogger
}

// NewEngine wires the protocol to a store. secureCookies should be true
// in production so the cookie is only sent over TLS.
func NewEngine(store Store, secureCookies bool, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		store:         store,
		secureCookies: secureCookies,
		ttl:           core.CSRFTokenTTL,
		rotationAge:   core.CSRFRotationInterval,
		logger:        logger,
	}
}

// GenerateToken returns a fresh high-entropy token value.
func GenerateToken() (string, error) {
	buf := make([]byte, core.CSRFTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates and stores a token for sessionID and sets the companion
// cookie. The cookie is deliberately not HttpOnly: the browser client
// reads it to echo the token in the request header (double-submit).
func (e *Engine) Issue(ctx context.Context, w http.ResponseWriter, sessionID string) (TokenResponse, error) {
	token, err := GenerateToken()
	if err != nil {
		return TokenResponse{}, err
	}

	now := time.Now()
	data := TokenData{SessionID: sessionID, Created: now, Expiry: now.Add(e.ttl)}
	if err := e.store.Put(ctx, token, data); err != nil {
		return TokenResponse{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   e.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(e.ttl.Seconds()),
	})

	return TokenResponse{
		CSRFToken:  token,
		Expiry:     data.Expiry.UnixMilli(),
		HeaderName: HeaderName,
		CookieName: CookieName,
	}, nil
}

// Validate checks the candidate token on a mutating request against
// sessionID. On success it returns the validated token value.
func (e *Engine) Validate(ctx context.Context, r *http.Request, sessionID string) (string, *core.AppError) {
	candidate := ExtractToken(r)
	if candidate == "" {
		return "", core.NewCSRF(core.CodeCSRFMissing, "CSRF token missing")
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" && cookie.Value != candidate {
		return "", core.NewCSRF(core.CodeCSRFMismatch, "CSRF token mismatch")
	}

	data, found, err := e.store.Get(ctx, candidate)
	if err != nil {
		e.logger.Errorw("CSRF store lookup failed", "error", err.Error())
		return "", core.NewCSRF(core.CodeCSRFInvalid, "Invalid or expired CSRF token")
	}
	if !found || data.SessionID != sessionID {
		return "", core.NewCSRF(core.CodeCSRFInvalid, "Invalid or expired CSRF token")
	}
	return candidate, nil
}

// ShouldRotate reports whether token is rotation-due: unknown tokens and
// tokens older than the rotation interval must be replaced.
func (e *Engine) ShouldRotate(ctx context.Context, token string) bool {
	if token == "" {
		return true
	}
	data, found, err := e.store.Get(ctx, token)
	if err != nil || !found {
		return true
	}
	return time.Since(data.Created) > e.rotationAge
}

// Refresh confirms or rotates the caller's current token. When rotation
// is due a new token is issued and the old one invalidated immediately.
func (e *Engine) Refresh(ctx context.Context, w http.ResponseWriter, sessionID, currentToken string) (TokenResponse, bool, error) {
	if !e.ShouldRotate(ctx, currentToken) {
		return TokenResponse{}, false, nil
	}

	resp, err := e.Issue(ctx, w, sessionID)
	if err != nil {
		return TokenResponse{}, false, err
	}
	if currentToken != "" {
		if err := e.store.Remove(ctx, currentToken); err != nil {
			e.logger.Warnw("Failed to remove rotated CSRF token", "error", err.Error())
		}
	}
	return resp, true, nil
}

// CleanupSession removes all tokens owned by sessionID (logout).
func (e *Engine) CleanupSession(ctx context.Context, sessionID string) {
	if err := e.store.RemoveSession(ctx, sessionID); err != nil {
		e.logger.Warnw("Failed to clean up session CSRF tokens",
			"session_id", sessionID, "error", err.Error())
	}
}

// Stats exposes store counters for operational visibility.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.store.Stats(ctx)
}

// ExtractToken pulls the candidate token from the request: the header
// first, then the body field for form and JSON payloads. The body is
// restored so downstream handlers can still read it.
func ExtractToken(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}

	mediaType := r.Header.Get("Content-Type")
	if mediaType != "" {
		if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
			mediaType = parsed
		}
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return r.PostFormValue(BodyField)
	case strings.HasPrefix(mediaType, "application/json") && r.Body != nil:
		return extractFromJSONBody(r)
	}
	return ""
}

func extractFromJSONBody(r *http.Request) string {
	body, err := io.ReadAll(io.LimitReader(r.Body, core.MaxRequestBodySize))
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Token string `json:"_csrf"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Token
}
