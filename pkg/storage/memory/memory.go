// Package memory provides an in-memory implementation of storage.Store for
// testing and lightweight deployments. All state is lost when the process
// restarts.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/modelgate/modelgate/pkg/storage"
)

// Store is a mutex-guarded in-memory storage.Store.
type Store struct {
	mu          sync.RWMutex
	identities  map[int64]*storage.Identity
	credentials map[int64]*storage.Credential
	audit       []storage.AuditEntry
	models      []storage.Model

	nextIdentityID   int64
	nextCredentialID int64
	nextAuditID      int64
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		identities:       make(map[int64]*storage.Identity),
		credentials:      make(map[int64]*storage.Credential),
		nextIdentityID:   1,
		nextCredentialID: 1,
		nextAuditID:      1,
	}
}

// SeedModels replaces the model catalog. Intended for wiring at startup and
// in tests; the postgres store seeds its catalog via migrations instead.
func (s *Store) SeedModels(models []storage.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append([]storage.Model(nil), models...)
}

// CreateIdentity persists a new identity, assigning its ID and timestamps.
func (s *Store) CreateIdentity(_ context.Context, id *storage.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.identities {
		if strings.EqualFold(existing.Email, id.Email) || existing.Username == id.Username {
			return storage.ErrConflict
		}
	}

	now := time.Now()
	id.ID = s.nextIdentityID
	s.nextIdentityID++
	id.CreatedAt = now
	id.UpdatedAt = now

	cp := *id
	s.identities[id.ID] = &cp
	return nil
}

// GetIdentityByID returns the identity with the given id.
func (s *Store) GetIdentityByID(_ context.Context, id int64) (*storage.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.identities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *existing
	return &cp, nil
}

// GetIdentityByEmail returns the identity with the given email.
func (s *Store) GetIdentityByEmail(_ context.Context, email string) (*storage.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.identities {
		if strings.EqualFold(existing.Email, email) {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetIdentityByKeyHash returns the identity whose primary key hash matches.
func (s *Store) GetIdentityByKeyHash(_ context.Context, keyHash string) (*storage.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.identities {
		if existing.APIKeyHash == keyHash {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// UpdateIdentity persists mutable identity fields.
func (s *Store) UpdateIdentity(_ context.Context, id *storage.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.identities[id.ID]
	if !ok {
		return storage.ErrNotFound
	}

	existing.APIKeyHash = id.APIKeyHash
	existing.PasswordHash = id.PasswordHash
	existing.Role = id.Role
	existing.Active = id.Active
	existing.UpdatedAt = time.Now()
	id.UpdatedAt = existing.UpdatedAt
	return nil
}

// CreateCredential persists a new secondary credential.
func (s *Store) CreateCredential(_ context.Context, c *storage.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.credentials {
		if existing.KeyHash == c.KeyHash {
			return storage.ErrConflict
		}
	}

	c.ID = s.nextCredentialID
	s.nextCredentialID++
	c.CreatedAt = time.Now()

	cp := *c
	s.credentials[c.ID] = &cp
	return nil
}

// GetCredentialByKeyHash returns the secondary credential with the given key hash.
func (s *Store) GetCredentialByKeyHash(_ context.Context, keyHash string) (*storage.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.credentials {
		if existing.KeyHash == keyHash {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListCredentials returns all secondary credentials owned by an identity.
func (s *Store) ListCredentials(_ context.Context, identityID int64) ([]storage.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Credential
	for _, existing := range s.credentials {
		if existing.IdentityID == identityID {
			out = append(out, *existing)
		}
	}
	return out, nil
}

// RevokeCredential clears the active flag on an identity's credential.
func (s *Store) RevokeCredential(_ context.Context, identityID, credentialID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.credentials[credentialID]
	if !ok || existing.IdentityID != identityID {
		return storage.ErrNotFound
	}
	existing.Active = false
	return nil
}

// TouchCredential stamps last_used_at on a credential.
func (s *Store) TouchCredential(_ context.Context, credentialID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.credentials[credentialID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.LastUsedAt = &at
	return nil
}

// InsertAudit appends one audit entry. Entries are copied on insert; the
// stored slice is append-only.
func (s *Store) InsertAudit(_ context.Context, e *storage.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextAuditID
	s.nextAuditID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.audit = append(s.audit, *e)
	return nil
}

// CountAuditSince counts audit entries for one identity and endpoint newer
// than the given instant.
func (s *Store) CountAuditSince(_ context.Context, identityID int64, endpoint string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.audit {
		e := &s.audit[i]
		if e.IdentityID == nil || *e.IdentityID != identityID {
			continue
		}
		if e.Endpoint != endpoint {
			continue
		}
		if e.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// AuditEntries returns a copy of all recorded audit entries, oldest first.
// Test helper; not part of the storage.Store contract.
func (s *Store) AuditEntries() []storage.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]storage.AuditEntry(nil), s.audit...)
}

// ListModels returns active model catalog entries.
func (s *Store) ListModels(_ context.Context) ([]storage.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Model
	for _, m := range s.models {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
