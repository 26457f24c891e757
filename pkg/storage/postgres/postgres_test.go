package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/modelgate/modelgate/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if a container runtime is not available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("modelgate_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func makeTestIdentity(tag string) *storage.Identity {
	return &storage.Identity{
		Email:        fmt.Sprintf("%s@example.com", tag),
		Username:     tag,
		PasswordHash: "$2a$04$fakehashfakehashfakehash",
		APIKeyHash:   "hash-" + tag,
		Role:         storage.RoleUser,
		Active:       true,
	}
}

func TestPostgres_CreateAndGetIdentity(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	ident := makeTestIdentity("alice")
	if err := store.CreateIdentity(ctx, ident); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if ident.ID == 0 {
		t.Error("ID not assigned")
	}

	got, err := store.GetIdentityByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetIdentityByEmail failed: %v", err)
	}
	if got.ID != ident.ID {
		t.Errorf("ID = %d, want %d", got.ID, ident.ID)
	}

	byKey, err := store.GetIdentityByKeyHash(ctx, "hash-alice")
	if err != nil {
		t.Fatalf("GetIdentityByKeyHash failed: %v", err)
	}
	if byKey.ID != ident.ID {
		t.Errorf("ID = %d, want %d", byKey.ID, ident.ID)
	}
}

func TestPostgres_DuplicateEmailConflict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first := makeTestIdentity("bob")
	if err := store.CreateIdentity(ctx, first); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	dup := makeTestIdentity("bob2")
	dup.Email = "BOB@example.com" // case-insensitive collision
	if err := store.CreateIdentity(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.GetIdentityByKeyHash(ctx, "hash-nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_CredentialLifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	ident := makeTestIdentity("carol")
	if err := store.CreateIdentity(ctx, ident); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	cred := &storage.Credential{
		IdentityID: ident.ID,
		Label:      "ci",
		KeyHash:    "cred-hash-carol",
		Active:     true,
	}
	if err := store.CreateCredential(ctx, cred); err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}

	got, err := store.GetCredentialByKeyHash(ctx, "cred-hash-carol")
	if err != nil {
		t.Fatalf("GetCredentialByKeyHash failed: %v", err)
	}
	if got.IdentityID != ident.ID || got.Label != "ci" {
		t.Errorf("credential = %+v", got)
	}

	if err := store.TouchCredential(ctx, cred.ID, time.Now()); err != nil {
		t.Fatalf("TouchCredential failed: %v", err)
	}
	got, _ = store.GetCredentialByKeyHash(ctx, "cred-hash-carol")
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt not stamped")
	}

	if err := store.RevokeCredential(ctx, ident.ID, cred.ID); err != nil {
		t.Fatalf("RevokeCredential failed: %v", err)
	}
	got, _ = store.GetCredentialByKeyHash(ctx, "cred-hash-carol")
	if got.Active {
		t.Error("credential still active after revoke")
	}

	// Revoking someone else's credential must not resolve.
	if err := store.RevokeCredential(ctx, ident.ID+1, cred.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign credential, got %v", err)
	}
}

func TestPostgres_AuditCount(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	ident := makeTestIdentity("dave")
	if err := store.CreateIdentity(ctx, ident); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		e := &storage.AuditEntry{
			IdentityID: &ident.ID,
			Endpoint:   "/chat",
			Method:     "POST",
			StatusCode: 200,
			CreatedAt:  now.Add(time.Duration(-i) * time.Minute),
		}
		if err := store.InsertAudit(ctx, e); err != nil {
			t.Fatalf("InsertAudit failed: %v", err)
		}
	}
	// Outside the window and on another endpoint: neither may count.
	old := &storage.AuditEntry{
		IdentityID: &ident.ID, Endpoint: "/chat", Method: "POST",
		StatusCode: 200, CreatedAt: now.Add(-time.Hour),
	}
	other := &storage.AuditEntry{
		IdentityID: &ident.ID, Endpoint: "/models", Method: "GET",
		StatusCode: 200, CreatedAt: now,
	}
	store.InsertAudit(ctx, old)
	store.InsertAudit(ctx, other)

	count, err := store.CountAuditSince(ctx, ident.ID, "/chat", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("CountAuditSince failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestPostgres_ListModels(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	models, err := store.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	// The catalog migration seeds entries for all four provider families.
	if len(models) == 0 {
		t.Fatal("seeded catalog is empty")
	}
	providers := map[string]bool{}
	for _, m := range models {
		providers[m.Provider] = true
	}
	for _, p := range []string{"openai", "anthropic", "google", "cohere"} {
		if !providers[p] {
			t.Errorf("no seeded models for %s", p)
		}
	}
}
