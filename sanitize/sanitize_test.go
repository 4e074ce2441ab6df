package sanitize

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dokq/core"
)

func TestError_ProductionUsesSafeTable(t *testing.T) {
	err := core.NewUnauthorized("token signature mismatch for user 8841")

	resp := Error(err, true)
	assert.Equal(t, "Authentication required", resp.Error)
	assert.Empty(t, resp.Code, "codes are suppressed in production")
	assert.Empty(t, resp.OriginalMessage, "raw text must never leave in production")
	assert.NotEmpty(t, resp.Timestamp)
}

func TestError_ProductionClassifiesUnknownCodes(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"password hash comparison failed", "Authentication failed"},
		{"connection reset by upstream", "Network error occurred"},
		{"context deadline exceeded: timeout waiting", "Request timeout"},
		{"something exploded in the handler", "An error occurred. Please try again"},
	}

	for _, tt := range tests {
		resp := Error(errors.New(tt.message), true)
		assert.Equal(t, tt.want, resp.Error, "message %q", tt.message)
	}
}

func TestError_DevelopmentKeepsDetail(t *testing.T) {
	err := core.NewForbidden("Access forbidden")

	resp := Error(err, false)
	assert.Equal(t, "Access forbidden", resp.Error)
	assert.Equal(t, core.CodeForbidden, resp.Code)
}

func TestError_CSRFCodesSurviveProduction(t *testing.T) {
	err := core.NewCSRF(core.CodeCSRFMissing, "CSRF token missing")

	resp := Error(err, true)
	assert.Equal(t, core.CodeCSRFMissing, resp.Code,
		"clients key refresh behavior off CSRF codes, so they must survive")
	assert.Equal(t, "CSRF token missing", resp.Error)
}

func TestError_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("x", 5000)
	resp := Error(errors.New(long), false)
	assert.LessOrEqual(t, len(resp.Error), core.MaxErrorMessageLength)
	assert.True(t, strings.HasSuffix(resp.Error, "..."))
}

func TestError_NilError(t *testing.T) {
	resp := Error(nil, true)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestValidationErrors_ProductionCollapses(t *testing.T) {
	fields := []FieldError{
		{Field: "symptoms", Message: "Must be at least 10"},
		{Field: "urgency", Message: "Must be one of: low medium high emergency"},
	}

	prod := ValidationErrors(fields, true)
	assert.Equal(t, "Invalid input data", prod.Error)
	assert.Empty(t, prod.Details, "production must not enumerate fields")

	dev := ValidationErrors(fields, false)
	require.Len(t, dev.Details, 2)
	assert.Equal(t, "symptoms", dev.Details[0].Field)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"firebase auth code", &core.AppError{Code: "auth/user-not-found", Message: "x"}, http.StatusUnauthorized},
		{"permission denied", &core.AppError{Code: "permission-denied", Message: "x"}, http.StatusForbidden},
		{"not found", core.NewNotFound("x"), http.StatusNotFound},
		{"already exists", &core.AppError{Code: "already-exists", Message: "x"}, http.StatusConflict},
		{"declared status wins", core.NewPayloadTooLarge("x"), http.StatusRequestEntityTooLarge},
		{"plain error", errors.New("x"), http.StatusInternalServerError},
		{"app error without status", &core.AppError{Code: "mystery", Message: "x"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
