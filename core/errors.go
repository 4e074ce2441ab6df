package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. These appear in response envelopes
// and are the keys the error sanitizer maps to safe messages in production.
const (
	CodeBadRequest        = "invalid-argument"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not-found"
	CodeAlreadyExists     = "already-exists"
	CodePayloadTooLarge   = "payload-too-large"
	CodeUnsupportedMedia  = "unsupported-media-type"
	CodeRateLimited       = "rate-limit-exceeded"
	CodeValidation        = "validation-error"
	CodeServerConfig      = "server-configuration-error"
	CodeInternal          = "internal-error"
	CodeOriginRejected    = "origin-rejected"
	CodeCSRFMissing       = "CSRF_TOKEN_MISSING"
	CodeCSRFMismatch      = "CSRF_TOKEN_MISMATCH"
	CodeCSRFInvalid       = "CSRF_TOKEN_INVALID"
	CodeCSRFNoSession     = "CSRF_SESSION_REQUIRED"
)

// AppError is the typed error carried through the middleware pipeline.
// Status and Code are stable; Message is the internal description and is
// only shown to clients after passing through the sanitizer.
type AppError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// AsAppError unwraps err to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NewBadRequest(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: message}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

func NewPayloadTooLarge(message string) *AppError {
	return &AppError{Code: CodePayloadTooLarge, Status: http.StatusRequestEntityTooLarge, Message: message}
}

func NewUnsupportedMediaType(message string) *AppError {
	return &AppError{Code: CodeUnsupportedMedia, Status: http.StatusUnsupportedMediaType, Message: message}
}

// NewServerConfig reports a fatal misconfiguration (missing or weak
// signing secret). It is never retried per-request.
func NewServerConfig(message string) *AppError {
	return &AppError{Code: CodeServerConfig, Status: http.StatusInternalServerError, Message: message}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// NewCSRF builds one of the structured 403-class CSRF failures. The
// session-required variant is a 401: there is no caller identity to bind
// a token to.
func NewCSRF(code, message string) *AppError {
	status := http.StatusForbidden
	if code == CodeCSRFNoSession {
		status = http.StatusUnauthorized
	}
	return &AppError{Code: code, Status: status, Message: message}
}
