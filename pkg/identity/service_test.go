package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/auth"
	"github.com/modelgate/modelgate/pkg/storage/memory"
)

// MinCost keeps bcrypt cheap in tests.
const testBcryptCost = 4

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	tokens := auth.NewTokenSigner("test-secret", time.Hour)
	return NewService(store, tokens, testBcryptCost), store
}

func TestRegister(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if reg.Identity.ID == 0 {
		t.Error("identity has no id")
	}
	if !strings.HasPrefix(reg.APIKey, "mg-") || len(reg.APIKey) != len("mg-")+48 {
		t.Errorf("APIKey = %q, want mg- prefix and 48 hex chars", reg.APIKey)
	}
	if reg.Token == "" {
		t.Error("no token issued")
	}
	if reg.Identity.PasswordHash == "password1" {
		t.Error("password stored in plaintext")
	}
	if reg.Identity.APIKeyHash == reg.APIKey {
		t.Error("api key stored in plaintext")
	}
}

func TestRegisterKeysUnique(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		email := string(rune('a'+i)) + "@example.com"
		reg, err := s.Register(ctx, email, email, "password1")
		if err != nil {
			t.Fatalf("Register(%s): %v", email, err)
		}
		if seen[reg.APIKey] {
			t.Fatalf("duplicate key issued: %s", reg.APIKey)
		}
		seen[reg.APIKey] = true
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "a@b.com", "a", "password1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := s.Register(ctx, "a@b.com", "other", "password1")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name                      string
		email, username, password string
		wantField                 string
	}{
		{"missing email", "", "a", "password1", "email"},
		{"bad email", "not-an-email", "a", "password1", "email"},
		{"missing username", "a@b.com", "", "password1", "username"},
		{"short password", "a@b.com", "a", "short", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.email, tt.username, tt.password)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	id, token, err := s.Login(ctx, "a@b.com", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.ID != reg.Identity.ID || token == "" {
		t.Errorf("Login = (%d, %q)", id.ID, token)
	}

	if _, _, err := s.Login(ctx, "a@b.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, "nobody@b.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactive(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Identity.Active = false
	if err := store.UpdateIdentity(ctx, reg.Identity); err != nil {
		t.Fatalf("UpdateIdentity: %v", err)
	}

	if _, _, err := s.Login(ctx, "a@b.com", "password1"); !errors.Is(err, ErrInactive) {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

func TestRotateKey(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	newKey, err := s.RotateKey(ctx, reg.Identity)
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if newKey == reg.APIKey {
		t.Fatal("rotation returned the same key")
	}

	if _, err := store.GetIdentityByKeyHash(ctx, auth.HashKey(reg.APIKey)); err == nil {
		t.Error("old key still resolves after rotation")
	}
	got, err := store.GetIdentityByKeyHash(ctx, auth.HashKey(newKey))
	if err != nil || got.ID != reg.Identity.ID {
		t.Errorf("new key lookup = %+v, %v", got, err)
	}
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.ChangePassword(ctx, reg.Identity, "wrong", "password2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password: err = %v", err)
	}

	var ve *ValidationError
	if err := s.ChangePassword(ctx, reg.Identity, "password1", "short"); !errors.As(err, &ve) {
		t.Errorf("short new password: err = %v, want ValidationError", err)
	}

	if err := s.ChangePassword(ctx, reg.Identity, "password1", "password2"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := s.Login(ctx, "a@b.com", "password2"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, err := s.Login(ctx, "a@b.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login with old password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssueAndRevokeCredential(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.com", "a", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	cred, key, err := s.IssueCredential(ctx, reg.Identity, "ci", nil)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if !strings.HasPrefix(key, "mg-") {
		t.Errorf("key = %q, want mg- prefix", key)
	}

	creds, err := s.ListCredentials(ctx, reg.Identity)
	if err != nil || len(creds) != 1 {
		t.Fatalf("ListCredentials = %v, %v", creds, err)
	}

	if err := s.RevokeCredential(ctx, reg.Identity, cred.ID); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	creds, _ = s.ListCredentials(ctx, reg.Identity)
	if creds[0].Active {
		t.Error("credential still active after revoke")
	}
}
