package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	appErr := NewInternal("Something went wrong", inner)

	assert.Contains(t, appErr.Error(), "Something went wrong")
	assert.ErrorIs(t, appErr, inner, "Unwrap should expose the wrapped error")
}

func TestAsAppError(t *testing.T) {
	appErr := NewForbidden("Access forbidden")

	got, ok := AsAppError(appErr)
	require.True(t, ok)
	assert.Equal(t, CodeForbidden, got.Code)

	wrapped := fmt.Errorf("handler: %w", appErr)
	got, ok = AsAppError(wrapped)
	require.True(t, ok, "AsAppError should see through wrapping")
	assert.Equal(t, CodeForbidden, got.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"bad request", NewBadRequest("x"), CodeBadRequest, http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("x"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbidden("x"), CodeForbidden, http.StatusForbidden},
		{"not found", NewNotFound("x"), CodeNotFound, http.StatusNotFound},
		{"payload too large", NewPayloadTooLarge("x"), CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported media", NewUnsupportedMediaType("x"), CodeUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"server config", NewServerConfig("x"), CodeServerConfig, http.StatusInternalServerError},
		{"internal", NewInternal("x", nil), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestNewCSRF_StatusDependsOnCode(t *testing.T) {
	// Missing session context means the caller is unauthenticated.
	noSession := NewCSRF(CodeCSRFNoSession, "Session required")
	assert.Equal(t, http.StatusUnauthorized, noSession.Status)

	for _, code := range []string{CodeCSRFMissing, CodeCSRFMismatch, CodeCSRFInvalid} {
		err := NewCSRF(code, "rejected")
		assert.Equal(t, http.StatusForbidden, err.Status, "code %s should map to 403", code)
	}
}
