package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// UpstreamError is a failed upstream call. Detail is retained for the audit
// trail and server-side logs only; callers receive a generic message.
type UpstreamError struct {
	Provider   Name
	StatusCode int
	Detail     string
	Timeout    bool
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: upstream timeout: %s", e.Provider, e.Detail)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: upstream error: %s", e.Provider, e.Detail)
}

// ErrUnsupportedModel is returned when a model identifier matches no
// provider marker.
var ErrUnsupportedModel = errors.New("unsupported model")

// MapNetworkError converts a transport-level failure into an UpstreamError,
// marking deadline and timeout failures so they surface as UpstreamTimeout.
func MapNetworkError(p Name, err error) *UpstreamError {
	ue := &UpstreamError{Provider: p, Detail: err.Error()}

	if errors.Is(err, context.DeadlineExceeded) {
		ue.Timeout = true
		return ue
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		ue.Timeout = true
	}
	return ue
}
