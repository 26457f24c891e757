package api

import "fmt"

// ErrorCode is the machine-stable error identifier returned to callers.
type ErrorCode string

const (
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeQuotaExceeded    ErrorCode = "quota_exceeded"
	ErrorCodeInvalidRequest   ErrorCode = "invalid_request"
	ErrorCodeUnsupportedModel ErrorCode = "unsupported_model"
	ErrorCodeUpstreamError    ErrorCode = "upstream_error"
	ErrorCodeUpstreamTimeout  ErrorCode = "upstream_timeout"
	ErrorCodeServerError      ErrorCode = "server_error"
)

// Error is the structured failure returned on any non-2xx response.
// Code is stable across releases; Message is human-oriented and may change.
// Internal detail (provider errors, store errors) never appears here.
type Error struct {
	Code    ErrorCode `json:"error"`
	Message string    `json:"message,omitempty"`
	Param   string    `json:"param,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnauthorizedError creates the uniform authentication failure. The body
// is identical for every auth sub-reason; the sub-reason is logged only.
func NewUnauthorizedError() *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Message: "authentication required",
	}
}

// NewQuotaExceededError creates a rate-limit failure with the reset hint.
func NewQuotaExceededError(message string) *Error {
	return &Error{
		Code:    ErrorCodeQuotaExceeded,
		Message: message,
	}
}

// NewInvalidRequestError creates a field-level validation failure.
func NewInvalidRequestError(param, message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnsupportedModelError creates a failure for a model identifier that
// matched no provider marker.
func NewUnsupportedModelError(model string) *Error {
	return &Error{
		Code:    ErrorCodeUnsupportedModel,
		Message: fmt.Sprintf("model %q is not supported", model),
	}
}

// NewUpstreamError creates a generic upstream failure. The provider detail
// is retained server-side in the audit trail, never in the response body.
func NewUpstreamError() *Error {
	return &Error{
		Code:    ErrorCodeUpstreamError,
		Message: "upstream provider request failed",
	}
}

// NewUpstreamTimeoutError creates a timeout failure for a bounded upstream
// call that did not complete in time.
func NewUpstreamTimeoutError() *Error {
	return &Error{
		Code:    ErrorCodeUpstreamTimeout,
		Message: "upstream provider request timed out",
	}
}

// NewServerError creates an internal failure with a generic message.
func NewServerError() *Error {
	return &Error{
		Code:    ErrorCodeServerError,
		Message: "internal server error",
	}
}
