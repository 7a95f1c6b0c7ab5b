// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "clockgate/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; biometric payloads are the largest.
const maxBodyBytes = 64 << 10

// Validatable is implemented by request DTOs that normalize and check
// themselves before reaching a service.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		message = de.Message
	}
	category := code.Category()

	body := map[string]string{
		"error":    string(code),
		"category": string(category),
	}
	if category != dErrors.CategoryInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, StatusFor(category), body)
}

// StatusFor maps an error category to its HTTP status.
func StatusFor(category dErrors.Category) int {
	switch category {
	case dErrors.CategoryValidation:
		return http.StatusBadRequest
	case dErrors.CategoryConflict:
		return http.StatusConflict
	case dErrors.CategoryUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CategoryForbidden:
		return http.StatusForbidden
	case dErrors.CategoryNotFound:
		return http.StatusNotFound
	case dErrors.CategoryExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate method.
// On failure the error response has already been written and ok is false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := PT(new(T))
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json payload"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return (*T)(req), true
}
