package csrf

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dokq/core"
)

func newTestEngine(t *testing.T, secureCookies bool) *Engine {
	t.Helper()
	store := NewMemoryStore(zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, secureCookies, zaptest.NewLogger(t).Sugar())
}

func TestGenerateToken_Properties(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		require.False(t, seen[token], "token collision")
		seen[token] = true

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err, "token must be url-safe base64")
		assert.Len(t, raw, core.CSRFTokenBytes)
	}
}

func TestIssue_SetsDoubleSubmitCookie(t *testing.T) {
	e := newTestEngine(t, true)
	rec := httptest.NewRecorder()

	resp, err := e.Issue(context.Background(), rec, "sess-a")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CSRFToken)
	assert.Equal(t, HeaderName, resp.HeaderName)
	assert.Equal(t, CookieName, resp.CookieName)
	assert.Greater(t, resp.Expiry, time.Now().UnixMilli())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, resp.CSRFToken, cookie.Value)
	assert.False(t, cookie.HttpOnly, "the browser client must read the cookie to echo it")
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
}

func TestIssue_InsecureCookieInDevelopment(t *testing.T) {
	e := newTestEngine(t, false)
	rec := httptest.NewRecorder()

	_, err := e.Issue(context.Background(), rec, "sess-a")
	require.NoError(t, err)
	assert.False(t, rec.Result().Cookies()[0].Secure)
}

func issueForSession(t *testing.T, e *Engine, sessionID string) TokenResponse {
	t.Helper()
	resp, err := e.Issue(context.Background(), httptest.NewRecorder(), sessionID)
	require.NoError(t, err)
	return resp
}

func TestValidate_HappyPath(t *testing.T) {
	e := newTestEngine(t, false)
	issued := issueForSession(t, e, "sess-a")

	r := httptest.NewRequest(http.MethodPost, "/api/or/optimize", nil)
	r.Header.Set(HeaderName, issued.CSRFToken)

	token, csrfErr := e.Validate(context.Background(), r, "sess-a")
	require.Nil(t, csrfErr)
	assert.Equal(t, issued.CSRFToken, token)
}

func TestValidate_MissingToken(t *testing.T) {
	e := newTestEngine(t, false)

	r := httptest.NewRequest(http.MethodPost, "/api/or/optimize", nil)
	_, csrfErr := e.Validate(context.Background(), r, "sess-a")
	require.NotNil(t, csrfErr)
	assert.Equal(t, core.CodeCSRFMissing, csrfErr.Code)
}

func TestValidate_CookieMismatch(t *testing.T) {
	e := newTestEngine(t, false)
	issued := issueForSession(t, e, "sess-a")

	r := httptest.NewRequest(http.MethodPost, "/api/or/optimize", nil)
	r.Header.Set(HeaderName, issued.CSRFToken)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "different-token"})

	_, csrfErr := e.Validate(context.Background(), r, "sess-a")
	require.NotNil(t, csrfErr)
	assert.Equal(t, core.CodeCSRFMismatch, csrfErr.Code)
}

func TestValidate_UnknownToken(t *testing.T) {
	e := newTestEngine(t, false)

	r := httptest.NewRequest(http.MethodPost, "/api/or/optimize", nil)
	r.Header.Set(HeaderName, "never-issued")

	_, csrfErr := e.Validate(context.Background(), r, "sess-a")
	require.NotNil(t, csrfErr)
	assert.Equal(t, core.CodeCSRFInvalid, csrfErr.Code)
}

func TestValidate_TokenBoundToSession(t *testing.T) {
	e := newTestEngine(t, false)
	issued := issueForSession(t, e, "sess-a")

	r := httptest.NewRequest(http.MethodPost, "/api/or/optimize", nil)
	r.Header.Set(HeaderName, issued.CSRFToken)

	// A stolen token presented under another session is invalid, and the
	// error is indistinguishable from an unknown token.
	_, csrfErr := e.Validate(context.Background(), r, "sess-b")
	require.NotNil(t, csrfErr)
	assert.Equal(t, core.CodeCSRFInvalid, csrfErr.Code)
}

func TestShouldRotate(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	assert.True(t, e.ShouldRotate(ctx, ""), "no token always rotates")
	assert.True(t, e.ShouldRotate(ctx, "unknown"), "unknown token always rotates")

	fresh := issueForSession(t, e, "sess-a")
	assert.False(t, e.ShouldRotate(ctx, fresh.CSRFToken))

	// Plant a token older than the rotation interval.
	old, err := GenerateToken()
	require.NoError(t, err)
	created := time.Now().Add(-core.CSRFRotationInterval - time.Minute)
	require.NoError(t, e.store.Put(ctx, old, TokenData{
		SessionID: "sess-a",
		Created:   created,
		Expiry:    created.Add(core.CSRFTokenTTL),
	}))
	assert.True(t, e.ShouldRotate(ctx, old))
}

func TestRefresh_NotDueConfirmsCurrent(t *testing.T) {
	e := newTestEngine(t, false)
	fresh := issueForSession(t, e, "sess-a")

	_, rotated, err := e.Refresh(context.Background(), httptest.NewRecorder(), "sess-a", fresh.CSRFToken)
	require.NoError(t, err)
	assert.False(t, rotated)

	// The current token remains valid.
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(HeaderName, fresh.CSRFToken)
	_, csrfErr := e.Validate(context.Background(), r, "sess-a")
	assert.Nil(t, csrfErr)
}

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	old, err := GenerateToken()
	require.NoError(t, err)
	created := time.Now().Add(-core.CSRFRotationInterval - time.Minute)
	require.NoError(t, e.store.Put(ctx, old, TokenData{
		SessionID: "sess-a",
		Created:   created,
		Expiry:    created.Add(core.CSRFTokenTTL),
	}))

	resp, rotated, err := e.Refresh(ctx, httptest.NewRecorder(), "sess-a", old)
	require.NoError(t, err)
	require.True(t, rotated)
	assert.NotEqual(t, old, resp.CSRFToken)

	// The replaced token is dead immediately.
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(HeaderName, old)
	_, csrfErr := e.Validate(ctx, r, "sess-a")
	require.NotNil(t, csrfErr)
	assert.Equal(t, core.CodeCSRFInvalid, csrfErr.Code)

	// The new one works.
	r = httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(HeaderName, resp.CSRFToken)
	_, csrfErr = e.Validate(ctx, r, "sess-a")
	assert.Nil(t, csrfErr)
}

func TestCleanupSession(t *testing.T) {
	e := newTestEngine(t, false)
	issued := issueForSession(t, e, "sess-a")

	e.CleanupSession(context.Background(), "sess-a")

	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(HeaderName, issued.CSRFToken)
	_, csrfErr := e.Validate(context.Background(), r, "sess-a")
	assert.NotNil(t, csrfErr)
}

func TestExtractToken_Sources(t *testing.T) {
	t.Run("header wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"_csrf":"from-body"}`))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set(HeaderName, "from-header")
		assert.Equal(t, "from-header", ExtractToken(r))
	})

	t.Run("json body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"_csrf":"from-body","note":"x"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		assert.Equal(t, "from-body", ExtractToken(r))
	})

	t.Run("form body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("_csrf=from-form&a=b"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.Equal(t, "from-form", ExtractToken(r))
	})

	t.Run("nothing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		assert.Empty(t, ExtractToken(r))
	})
}

func TestExtractToken_RestoresJSONBody(t *testing.T) {
	payload := `{"_csrf":"tok","symptoms":"headache for two weeks"}`
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	require.Equal(t, "tok", ExtractToken(r))

	// A downstream handler must still be able to decode the full body.
	buf := make([]byte, len(payload))
	n, _ := r.Body.Read(buf)
	assert.Equal(t, payload, string(buf[:n]))
}
