package api

import (
	"encoding/json"
	"net/http"
	"time"

	"dokq/core"
	"dokq/sanitize"
)

// writeJSON writes a JSON response body with the given status.
func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Errorw("Failed to encode response body", "error", err.Error())
	}
}

// writeError logs the full error internally and sends the sanitized
// envelope. This is the single exit point for every pipeline failure, so
// production responses never carry raw internal error text.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := sanitize.StatusFor(err)

	fields := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"error", sanitize.RedactError(err),
	}
	if id := GetRequestID(r.Context()); id != "" {
		fields = append(fields, "request_id", id)
	}
	if appErr, ok := core.AsAppError(err); ok {
		fields = append(fields, "code", appErr.Code)
	}
	a.logger.Errorw("Request failed", fields...)

	a.writeJSON(w, status, sanitize.Error(err, a.cfg.IsProduction()))
}

// writeValidationError sends the field-level validation envelope.
func (a *API) writeValidationError(w http.ResponseWriter, r *http.Request, errs []sanitize.FieldError) {
	a.logger.Warnw("Request validation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"fields", len(errs))
	a.writeJSON(w, http.StatusBadRequest, sanitize.ValidationErrors(errs, a.cfg.IsProduction()))
}

// notFoundHandler answers unknown routes with the standard envelope.
func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusNotFound, map[string]any{
		"error":     "API endpoint not found",
		"message":   "The requested endpoint does not exist",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
