package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/storage"
)

func newIdentity(email, username string) *storage.Identity {
	return &storage.Identity{
		Email:        email,
		Username:     username,
		PasswordHash: "x",
		APIKeyHash:   "hash-" + username,
		Role:         storage.RoleUser,
		Active:       true,
	}
}

func TestCreateIdentityConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateIdentity(ctx, newIdentity("a@b.com", "a")); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	err := s.CreateIdentity(ctx, newIdentity("a@b.com", "other"))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email: err = %v, want ErrConflict", err)
	}

	// Email comparison is case-insensitive.
	err = s.CreateIdentity(ctx, newIdentity("A@B.COM", "another"))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("case-folded duplicate email: err = %v, want ErrConflict", err)
	}
}

func TestIdentityLookups(t *testing.T) {
	s := New()
	ctx := context.Background()

	id := newIdentity("a@b.com", "a")
	if err := s.CreateIdentity(ctx, id); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if id.ID == 0 {
		t.Fatal("CreateIdentity did not assign an ID")
	}

	byEmail, err := s.GetIdentityByEmail(ctx, "a@b.com")
	if err != nil || byEmail.ID != id.ID {
		t.Fatalf("GetIdentityByEmail = %+v, %v", byEmail, err)
	}

	byHash, err := s.GetIdentityByKeyHash(ctx, "hash-a")
	if err != nil || byHash.ID != id.ID {
		t.Fatalf("GetIdentityByKeyHash = %+v, %v", byHash, err)
	}

	if _, err := s.GetIdentityByKeyHash(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown hash: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateIdentityRotatesKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	id := newIdentity("a@b.com", "a")
	if err := s.CreateIdentity(ctx, id); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	id.APIKeyHash = "rotated"
	if err := s.UpdateIdentity(ctx, id); err != nil {
		t.Fatalf("UpdateIdentity: %v", err)
	}

	if _, err := s.GetIdentityByKeyHash(ctx, "hash-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("old hash still resolves: err = %v", err)
	}
	got, err := s.GetIdentityByKeyHash(ctx, "rotated")
	if err != nil || got.ID != id.ID {
		t.Fatalf("new hash lookup = %+v, %v", got, err)
	}
}

func TestCredentialLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	id := newIdentity("a@b.com", "a")
	if err := s.CreateIdentity(ctx, id); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	c := &storage.Credential{IdentityID: id.ID, Label: "ci", KeyHash: "ck", Active: true}
	if err := s.CreateCredential(ctx, c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	got, err := s.GetCredentialByKeyHash(ctx, "ck")
	if err != nil || got.IdentityID != id.ID {
		t.Fatalf("GetCredentialByKeyHash = %+v, %v", got, err)
	}

	when := time.Now()
	if err := s.TouchCredential(ctx, c.ID, when); err != nil {
		t.Fatalf("TouchCredential: %v", err)
	}
	got, _ = s.GetCredentialByKeyHash(ctx, "ck")
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(when) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, when)
	}

	if err := s.RevokeCredential(ctx, id.ID, c.ID); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	got, _ = s.GetCredentialByKeyHash(ctx, "ck")
	if got.Active {
		t.Error("credential still active after revoke")
	}

	if err := s.RevokeCredential(ctx, id.ID+1, c.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("revoke by wrong owner: err = %v, want ErrNotFound", err)
	}
}

func TestAuditAppendOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	idVal := int64(7)
	e := storage.AuditEntry{
		IdentityID: &idVal,
		Endpoint:   "/chat",
		Method:     "POST",
		StatusCode: 200,
	}

	// The same entry inserted twice yields two independent rows, not an upsert.
	first := e
	second := e
	if err := s.InsertAudit(ctx, &first); err != nil {
		t.Fatalf("InsertAudit: %v", err)
	}
	if err := s.InsertAudit(ctx, &second); err != nil {
		t.Fatalf("InsertAudit: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("duplicate insert reused the same row id")
	}
	if got := len(s.AuditEntries()); got != 2 {
		t.Fatalf("len(entries) = %d, want 2", got)
	}
}

func TestCountAuditSince(t *testing.T) {
	s := New()
	ctx := context.Background()

	idVal := int64(1)
	otherID := int64(2)
	now := time.Now()

	insert := func(identity int64, endpoint string, at time.Time) {
		e := storage.AuditEntry{
			IdentityID: &identity,
			Endpoint:   endpoint,
			Method:     "POST",
			StatusCode: 200,
			CreatedAt:  at,
		}
		if err := s.InsertAudit(ctx, &e); err != nil {
			t.Fatalf("InsertAudit: %v", err)
		}
	}

	insert(idVal, "/chat", now.Add(-30*time.Second))
	insert(idVal, "/chat", now.Add(-10*time.Second))
	insert(idVal, "/chat", now.Add(-2*time.Minute)) // outside window
	insert(idVal, "/models", now.Add(-5*time.Second))
	insert(otherID, "/chat", now.Add(-5*time.Second))

	count, err := s.CountAuditSince(ctx, idVal, "/chat", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountAuditSince: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestListModelsFiltersInactive(t *testing.T) {
	s := New()
	s.SeedModels([]storage.Model{
		{Provider: "openai", ModelID: "gpt-4o", Active: true},
		{Provider: "cohere", ModelID: "command-r", Active: false},
	})

	models, err := s.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].ModelID != "gpt-4o" {
		t.Fatalf("models = %+v, want only gpt-4o", models)
	}
}
