// Package pipeline composes the per-request processing stages: credential
// verification, quota enforcement, handler dispatch, and audit recording.
//
// Three wrappers cover the gateway's endpoint classes:
//
//   - Public: no verification, audit only (register, login, health)
//   - Protected: bearer-token verification plus audit (identity management)
//   - Governed: any-credential verification, quota check, audit (inference)
//
// Every wrapped request produces exactly one audit entry, whatever its
// outcome. Verification and quota failures short-circuit before the handler;
// the entry still records them, with nullable identity and provider fields.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/audit"
	"github.com/modelgate/modelgate/pkg/auth"
	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/quota"
	"github.com/modelgate/modelgate/pkg/storage"
)

// Orchestrator wires the pipeline stages around endpoint handlers.
type Orchestrator struct {
	verifier *auth.Verifier
	quota    *quota.Tracker
	audit    *audit.Logger
}

// New creates an orchestrator over the given stages.
func New(verifier *auth.Verifier, tracker *quota.Tracker, logger *audit.Logger) *Orchestrator {
	return &Orchestrator{verifier: verifier, quota: tracker, audit: logger}
}

// Attribution carries the provider/model resolved during handler execution
// back to the audit stage. The wrapper places a pointer in the request
// context; the handler fills it in once routing has resolved.
type Attribution struct {
	Provider string
	Model    string
}

type attributionKey struct{}

// Attribute records the resolved provider and model for the current request.
// No-op outside a wrapped handler.
func Attribute(ctx context.Context, provider, model string) {
	if a, ok := ctx.Value(attributionKey{}).(*Attribution); ok {
		a.Provider = provider
		a.Model = model
	}
}

// Public wraps a handler with audit recording only.
func (o *Orchestrator) Public(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, r, start := o.begin(w, r)
		defer o.finish(rec, r, endpoint, start, nil)

		next(rec, r)
	}
}

// Protected wraps a handler with bearer-token verification and audit
// recording. Static keys are rejected on this class of endpoint.
func (o *Orchestrator) Protected(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, r, start := o.begin(w, r)

		verified, err := o.verifier.VerifyToken(r.Context(), r)
		if err != nil {
			o.deny(rec, r, endpoint, start, err)
			return
		}
		defer o.finish(rec, r, endpoint, start, verified)

		next(rec, r.WithContext(auth.SetVerified(r.Context(), verified)))
	}
}

// Governed wraps a handler with full verification, quota enforcement, and
// audit recording. Both bearer tokens and static keys are accepted.
func (o *Orchestrator) Governed(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, r, start := o.begin(w, r)

		verified, err := o.verifier.Verify(r.Context(), r)
		if err != nil {
			o.deny(rec, r, endpoint, start, err)
			return
		}

		decision := o.quota.Check(r.Context(), verified.Identity.ID, endpoint)
		decision.SetHeaders(rec.Header())
		if !decision.Allowed {
			observability.QuotaRejectedTotal.WithLabelValues(endpoint).Inc()
			api.WriteError(rec, api.NewQuotaExceededError(fmt.Sprintf(
				"quota of %d requests exceeded, window resets at %s",
				decision.Limit, decision.ResetAt.UTC().Format(time.RFC3339),
			)))
			o.finish(rec, r, endpoint, start, verified)
			return
		}
		defer o.finish(rec, r, endpoint, start, verified)

		next(rec, r.WithContext(auth.SetVerified(r.Context(), verified)))
	}
}

// begin sets up the response recorder and plants the attribution slot.
func (o *Orchestrator) begin(w http.ResponseWriter, r *http.Request) (*recorder, *http.Request, time.Time) {
	rec := newRecorder(w)
	r = r.WithContext(context.WithValue(r.Context(), attributionKey{}, &Attribution{}))
	return rec, r, time.Now()
}

// deny writes the uniform 401 and records the failed attempt. The response
// body never distinguishes the sub-reason; metrics and logs do.
func (o *Orchestrator) deny(rec *recorder, r *http.Request, endpoint string, start time.Time, cause error) {
	observability.AuthFailuresTotal.WithLabelValues(failureReason(cause)).Inc()
	api.WriteError(rec, api.NewUnauthorizedError())
	o.finish(rec, r, endpoint, start, nil)
}

// finish builds the audit entry and hands it to the async logger.
func (o *Orchestrator) finish(rec *recorder, r *http.Request, endpoint string, start time.Time, verified *auth.Verified) {
	entry := &storage.AuditEntry{
		Endpoint:      endpoint,
		Method:        r.Method,
		StatusCode:    rec.Status(),
		RequestBytes:  requestBytes(r),
		ResponseBytes: rec.bytes,
		LatencyMS:     time.Since(start).Milliseconds(),
		CallerIP:      callerIP(r),
		UserAgent:     optional(r.UserAgent()),
	}

	if verified != nil {
		entry.IdentityID = &verified.Identity.ID
		if verified.Credential != nil {
			entry.CredentialID = &verified.Credential.ID
		}
	}

	if a, ok := r.Context().Value(attributionKey{}).(*Attribution); ok {
		entry.Provider = optional(a.Provider)
		entry.Model = optional(a.Model)
	}

	if rec.Status() >= 400 {
		entry.ErrorMessage = audit.ExtractErrorMessage(rec.errBody())
	}

	o.audit.Record(entry)
}

// failureReason maps a verification error to its metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoCredential):
		return "no_credential"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrUnknownIdentity):
		return "unknown_identity"
	case errors.Is(err, auth.ErrInactiveIdentity):
		return "inactive_identity"
	default:
		return "other"
	}
}

// callerIP extracts the originating address, preferring the first
// X-Forwarded-For hop over the socket peer.
func callerIP(r *http.Request) *string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if ip != "" {
			return &ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return optional(r.RemoteAddr)
	}
	return optional(host)
}

func requestBytes(r *http.Request) int {
	if r.ContentLength > 0 {
		return int(r.ContentLength)
	}
	return 0
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
