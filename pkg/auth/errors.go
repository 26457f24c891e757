package auth

import "errors"

// Verification failure sub-reasons. The transport maps every one of these to
// the same 401 body; they exist so logs and audit entries can tell them apart.
var (
	ErrNoCredential     = errors.New("no credential presented")
	ErrMalformedToken   = errors.New("malformed bearer token")
	ErrBadSignature     = errors.New("bearer token signature mismatch")
	ErrExpired          = errors.New("credential expired")
	ErrUnknownIdentity  = errors.New("unknown identity")
	ErrInactiveIdentity = errors.New("identity deactivated")
)
