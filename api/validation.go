package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"dokq/core"
	"dokq/metrics"
	"dokq/sanitize"
)

// decodeAndValidate decodes a JSON body into dst, runs struct validation,
// and writes the error response itself on failure. It also feeds the
// decoded string leaves through the injection scanner (telemetry only).
// Returns true when the request may proceed.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, core.MaxRequestBodySize))
	if err != nil {
		a.writeError(w, r, core.NewBadRequest("Failed to read request body"))
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		a.writeError(w, r, core.NewBadRequest("Request body must be valid JSON"))
		return false
	}

	a.scanBodyForSignatures(r, body)

	if err := a.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			a.writeError(w, r, core.NewInternal("Validation failed", err))
			return false
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			a.writeValidationError(w, r, toFieldErrors(fieldErrs))
			return false
		}
		a.writeError(w, r, core.NewBadRequest("Invalid request data"))
		return false
	}
	return true
}

func (a *API) scanBodyForSignatures(r *http.Request, body []byte) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return
	}
	for _, f := range a.scanner.ScanBody(decoded) {
		metrics.InjectionSignatures.WithLabelValues(f.Pattern).Inc()
		a.logger.Warnw("Injection signature detected",
			"pattern", f.Pattern,
			"location", f.Location,
			"method", r.Method,
			"path", r.URL.Path)
	}
}

// toFieldErrors converts validator failures into the external shape. The
// offending values are deliberately dropped.
func toFieldErrors(errs validator.ValidationErrors) []sanitize.FieldError {
	out := make([]sanitize.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, sanitize.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "email":
		return "Please provide a valid email"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "alphanum":
		return "Must contain only letters and numbers"
	default:
		return "Invalid value"
	}
}
