package api

import (
	"encoding/json"
	"net/http"
)

// StatusFor maps an error code to its HTTP status.
func StatusFor(e *Error) int {
	switch e.Code {
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeInvalidRequest, ErrorCodeUnsupportedModel:
		return http.StatusBadRequest
	case ErrorCodeUpstreamError, ErrorCodeUpstreamTimeout:
		// Upstream failures are the gateway's own failures from the
		// caller's point of view; the code tells timeouts apart.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the structured error body with its mapped status.
func WriteError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(e))
	json.NewEncoder(w).Encode(e)
}

// WriteJSON writes a success response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
