// Package storage defines the durable store contract for the gateway:
// identity and credential lookup, append-only audit recording, the sliding
// window count backing quota enforcement, and the read-mostly model catalog.
//
// Adapters (memory, postgres) implement the Store interface. No component
// outside the verifier, quota tracker, audit logger, and identity service
// touches storage directly.
package storage

import (
	"context"
	"time"
)

// Role distinguishes ordinary callers from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is an authenticated principal. The primary API key is stored as
// a SHA-256 hex digest; plaintext keys are returned to the caller once and
// never persisted. Identities are soft-deactivated, never hard-deleted.
type Identity struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string // bcrypt hash, never expose
	APIKeyHash   string // sha256 hex of the primary key
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential is a secondary named key owned by one identity.
type Credential struct {
	ID         int64
	IdentityID int64
	Label      string
	KeyHash    string // sha256 hex
	Active     bool
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the credential has an expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// AuditEntry is one append-only record of a completed request. Identity,
// credential, provider, and model are nullable: pre-auth failures and
// requests that never reached the router are still recorded.
type AuditEntry struct {
	ID            int64
	IdentityID    *int64
	CredentialID  *int64
	Endpoint      string
	Method        string
	Provider      *string
	Model         *string
	StatusCode    int
	RequestBytes  int
	ResponseBytes int
	LatencyMS     int64
	ErrorMessage  *string
	CallerIP      *string
	UserAgent     *string
	CreatedAt     time.Time
}

// Model is one row of the model catalog.
type Model struct {
	ID          int64
	Provider    string
	ModelID     string
	DisplayName string
	CostPer1K   float64
	MaxTokens   int
	Active      bool
}

// Store is the narrow durable-store contract consumed by the pipeline.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// CreateIdentity persists a new identity and fills in its ID and
	// timestamps. Returns ErrConflict when the email or username is taken.
	CreateIdentity(ctx context.Context, id *Identity) error

	// GetIdentityByID returns the identity with the given id, active or not.
	GetIdentityByID(ctx context.Context, id int64) (*Identity, error)

	// GetIdentityByEmail returns the identity with the given email.
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)

	// GetIdentityByKeyHash returns the identity whose primary key hash matches.
	GetIdentityByKeyHash(ctx context.Context, keyHash string) (*Identity, error)

	// UpdateIdentity persists mutable identity fields (key hash, password
	// hash, role, active flag) and bumps UpdatedAt.
	UpdateIdentity(ctx context.Context, id *Identity) error

	// CreateCredential persists a new secondary credential.
	CreateCredential(ctx context.Context, c *Credential) error

	// GetCredentialByKeyHash returns the secondary credential whose key hash
	// matches, regardless of active flag or expiry.
	GetCredentialByKeyHash(ctx context.Context, keyHash string) (*Credential, error)

	// ListCredentials returns all secondary credentials owned by an identity.
	ListCredentials(ctx context.Context, identityID int64) ([]Credential, error)

	// RevokeCredential clears the active flag on a credential owned by the
	// given identity. Returns ErrNotFound when no such credential exists.
	RevokeCredential(ctx context.Context, identityID, credentialID int64) error

	// TouchCredential stamps last_used_at. Best-effort from the caller's
	// perspective; errors are logged and swallowed upstream.
	TouchCredential(ctx context.Context, credentialID int64, at time.Time) error

	// InsertAudit appends one audit entry. Entries are never updated or
	// deleted through this contract.
	InsertAudit(ctx context.Context, e *AuditEntry) error

	// CountAuditSince counts audit entries for one identity and endpoint
	// with CreatedAt strictly after the given instant.
	CountAuditSince(ctx context.Context, identityID int64, endpoint string, since time.Time) (int, error)

	// ListModels returns active model catalog entries.
	ListModels(ctx context.Context) ([]Model, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
