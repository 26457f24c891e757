// Package auth verifies caller credentials against the durable store.
//
// Two schemes are supported: signed bearer tokens (HMAC-SHA256, issued on
// registration and login) and static API keys (an identity's primary key or
// one of its secondary named credentials). Every failure collapses to the
// same uniform unauthorized response for the caller; the sub-reason is kept
// for internal logging only.
//
// Verification always fails closed: if the store cannot prove an identity,
// the request is rejected.
package auth
