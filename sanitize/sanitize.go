// Package sanitize normalizes errors into safe, environment-aware
// responses. Every error is logged in full internally; what the client
// sees depends on the environment: development reflects the real message,
// production maps known codes to a fixed safe-message table and
// keyword-classifies everything else.
package sanitize

import (
	"strings"
	"time"

	"dokq/core"
)

// Response is the standard external error envelope.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	// OriginalMessage carries the raw error text. Never set in production.
	OriginalMessage string       `json:"originalMessage,omitempty"`
	Details         []FieldError `json:"details,omitempty"`
	Timestamp       string       `json:"timestamp"`
}

// FieldError describes a single validation failure. The rejected value is
// intentionally absent: it may contain credentials or patient data.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// safeMessages maps stable error codes to fixed production-safe text.
var safeMessages = map[string]string{
	"auth/user-not-found":        "Invalid login credentials",
	"auth/wrong-password":        "Invalid login credentials",
	"auth/invalid-email":         "Please enter a valid email address",
	"auth/user-disabled":         "Account access has been restricted",
	"auth/too-many-requests":     "Too many attempts. Please try again later",
	"auth/network-request-failed": "Network error. Please check your connection",
	"auth/email-already-in-use":  "Email address is already registered",
	"auth/weak-password":         "Password does not meet security requirements",

	core.CodeUnauthorized:       "Authentication required",
	core.CodeForbidden:          "Access forbidden",
	core.CodeNotFound:           "Requested resource not found",
	core.CodeAlreadyExists:      "Resource already exists",
	core.CodeBadRequest:         "Invalid request data",
	core.CodePayloadTooLarge:    "Request size exceeds maximum allowed limit",
	core.CodeUnsupportedMedia:   "Content type not supported",
	core.CodeRateLimited:        "Too many requests. Please try again later",
	core.CodeValidation:         "Invalid input data",
	core.CodeServerConfig:       "Service temporarily unavailable",
	core.CodeInternal:           "An unexpected error occurred",
	core.CodeOriginRejected:     "An unexpected error occurred",
	core.CodeCSRFMissing:        "CSRF token missing",
	core.CodeCSRFMismatch:       "CSRF token mismatch",
	core.CodeCSRFInvalid:        "Invalid or expired CSRF token",
	core.CodeCSRFNoSession:      "Session required for CSRF protection",

	"permission-denied":   "Access denied",
	"failed-precondition": "Operation cannot be completed",
	"out-of-range":        "Invalid request parameters",
	"deadline-exceeded":   "Request timeout",
	"unavailable":         "Service temporarily unavailable",
	"network-error":       "Network connection error",
	"timeout-error":       "Request timeout",
}

// Classify maps an unmapped error message to safe text by keyword. Used
// only in production for errors whose code has no table entry.
func Classify(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "password"):
		return "Authentication failed"
	case strings.Contains(m, "email"):
		return "Invalid email address"
	case strings.Contains(m, "permission"),
		strings.Contains(m, "unauthorized"),
		strings.Contains(m, "forbidden"):
		return "Access denied"
	case strings.Contains(m, "network"), strings.Contains(m, "connection"):
		return "Network error occurred"
	case strings.Contains(m, "timeout"):
		return "Request timeout"
	case strings.Contains(m, "too many"):
		return "Too many requests. Please try again later"
	default:
		return "An error occurred. Please try again"
	}
}

// Error builds the external envelope for err. In production the message
// is drawn from the safe table or keyword classification and the raw text
// never leaves the process; in development the raw message and code are
// included to aid debugging.
func Error(err error, production bool) Response {
	code := core.CodeInternal
	message := "Unknown error occurred"
	if err != nil {
		message = err.Error()
		if appErr, ok := core.AsAppError(err); ok {
			code = appErr.Code
			message = appErr.Message
		}
	}
	original := message

	if production {
		if safe, ok := safeMessages[code]; ok {
			message = safe
		} else {
			message = Classify(message)
		}
	}
	if len(message) > core.MaxErrorMessageLength {
		message = message[:core.MaxErrorMessageLength-3] + "..."
	}

	resp := Response{
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if !production {
		resp.Code = code
		if original != message {
			resp.OriginalMessage = original
		}
	} else if strings.HasPrefix(code, "CSRF_") {
		// CSRF codes are part of the protocol contract: clients key their
		// token-refresh behavior off them, so they survive production.
		resp.Code = code
	}
	return resp
}

// ValidationErrors builds the envelope for field-level validation
// failures. Production collapses to a single generic message; development
// returns the per-field list (never the rejected values).
func ValidationErrors(errs []FieldError, production bool) Response {
	now := time.Now().UTC().Format(time.RFC3339)
	if production {
		return Response{
			Error:     "Invalid input data",
			Message:   "Please check your input and try again",
			Timestamp: now,
		}
	}
	return Response{
		Error:     "Validation Error",
		Message:   "Please correct the following issues",
		Details:   errs,
		Timestamp: now,
	}
}

// StatusFor resolves the HTTP status for err from its code, falling back
// to a declared status or 500.
func StatusFor(err error) int {
	appErr, ok := core.AsAppError(err)
	if !ok {
		return 500
	}
	switch {
	case strings.HasPrefix(appErr.Code, "auth/"):
		return 401
	case appErr.Code == "permission-denied":
		return 403
	case appErr.Code == "not-found", appErr.Code == core.CodeNotFound:
		return 404
	case appErr.Code == "already-exists", appErr.Code == core.CodeAlreadyExists:
		return 409
	}
	if appErr.Status != 0 {
		return appErr.Status
	}
	return 500
}
