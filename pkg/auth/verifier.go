package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/storage"
)

// Verified is the outcome of a successful verification: the authenticated
// identity and, when a secondary key was used, the resolving credential.
type Verified struct {
	Identity   *storage.Identity
	Credential *storage.Credential
}

// Verifier resolves request credentials to an identity. Every request
// performs a fresh store lookup; identity state is never cached across
// requests, so deactivation takes effect on the next call.
type Verifier struct {
	store  storage.Store
	tokens *TokenSigner
}

// NewVerifier creates a verifier backed by the given store and token signer.
func NewVerifier(store storage.Store, tokens *TokenSigner) *Verifier {
	return &Verifier{store: store, tokens: tokens}
}

// Verify authenticates the request. Bearer values with JWT structure go
// through the token scheme; everything else (including the X-API-Key
// header) goes through the static-key scheme.
func (v *Verifier) Verify(ctx context.Context, r *http.Request) (*Verified, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return v.verifyKey(ctx, key)
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoCredential
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrMalformedToken
	}

	value := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if value == "" {
		return nil, ErrNoCredential
	}

	if strings.Count(value, ".") == 2 {
		return v.verifyToken(ctx, value)
	}
	return v.verifyKey(ctx, value)
}

// VerifyToken authenticates a bearer token only, rejecting static keys.
// Used by identity endpoints that require a login session.
func (v *Verifier) VerifyToken(ctx context.Context, r *http.Request) (*Verified, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoCredential
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrMalformedToken
	}
	value := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if value == "" {
		return nil, ErrNoCredential
	}
	return v.verifyToken(ctx, value)
}

// verifyToken validates the token and resolves its subject identity.
// No side effects on this path.
func (v *Verifier) verifyToken(ctx context.Context, tokenStr string) (*Verified, error) {
	identityID, err := v.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	identity, err := v.store.GetIdentityByID(ctx, identityID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		// Identity cannot be proven: fail closed.
		slog.Error("identity lookup failed", "identity_id", identityID, "error", err)
		return nil, ErrUnknownIdentity
	}
	if !identity.Active {
		return nil, ErrInactiveIdentity
	}

	return &Verified{Identity: identity}, nil
}

// verifyKey resolves a static key. A provided key may be a primary identity
// key or a secondary credential key; lookup attempts run in that order with
// the same fail-closed contract on both misses.
func (v *Verifier) verifyKey(ctx context.Context, key string) (*Verified, error) {
	keyHash := HashKey(key)

	identity, err := v.store.GetIdentityByKeyHash(ctx, keyHash)
	if err == nil {
		if !identity.Active {
			return nil, ErrInactiveIdentity
		}
		return &Verified{Identity: identity}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		slog.Error("primary key lookup failed", "error", err)
		return nil, ErrUnknownIdentity
	}

	cred, err := v.store.GetCredentialByKeyHash(ctx, keyHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		slog.Error("credential lookup failed", "error", err)
		return nil, ErrUnknownIdentity
	}

	if !cred.Active {
		return nil, ErrInactiveIdentity
	}
	if cred.Expired(time.Now()) {
		return nil, ErrExpired
	}

	owner, err := v.store.GetIdentityByID(ctx, cred.IdentityID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		slog.Error("credential owner lookup failed", "credential_id", cred.ID, "error", err)
		return nil, ErrUnknownIdentity
	}
	if !owner.Active {
		return nil, ErrInactiveIdentity
	}

	// Best-effort usage stamp. A failure here must not fail the request.
	if err := v.store.TouchCredential(ctx, cred.ID, time.Now()); err != nil {
		slog.Warn("stamping credential last_used_at failed", "credential_id", cred.ID, "error", err)
	}

	return &Verified{Identity: owner, Credential: cred}, nil
}

// HashKey returns the hex SHA-256 digest under which API keys are stored.
// Plaintext keys never reach the store; the digest comparison happens inside
// an indexed lookup, so its shape does not vary with the key contents.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
