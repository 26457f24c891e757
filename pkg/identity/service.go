// Package identity implements account operations: registration, login, API
// key rotation, password changes, and secondary credential management.
//
// Passwords are stored as bcrypt hashes, API keys as SHA-256 digests. The
// plaintext of a key exists only in the response that first issues it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/modelgate/modelgate/pkg/auth"
	"github.com/modelgate/modelgate/pkg/storage"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Service failure modes. The transport maps these onto HTTP statuses.
var (
	ErrEmailTaken         = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("identity deactivated")
)

// ValidationError is a field-level input failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Service provides identity operations on top of the durable store.
type Service struct {
	store      storage.Store
	tokens     *auth.TokenSigner
	bcryptCost int
}

// NewService creates an identity service. A bcryptCost of 0 selects the
// bcrypt default.
func NewService(store storage.Store, tokens *auth.TokenSigner, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost}
}

// Registration is the outcome of a successful Register call. APIKey is the
// plaintext primary key, returned exactly once.
type Registration struct {
	Identity *storage.Identity
	APIKey   string
	Token    string
}

// Register creates a new identity with a fresh primary key and a signed
// bearer token. Duplicate email or username yields ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, username, password string) (*Registration, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if len(password) < MinPasswordLength {
		return nil, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	key, err := NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating api key: %w", err)
	}

	identity := &storage.Identity{
		Email:        email,
		Username:     username,
		PasswordHash: string(passwordHash),
		APIKeyHash:   auth.HashKey(key),
		Role:         storage.RoleUser,
		Active:       true,
	}

	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	token, err := s.tokens.Sign(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	return &Registration{Identity: identity, APIKey: key, Token: token}, nil
}

// Login verifies the password and issues a fresh bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*storage.Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	identity, err := s.store.GetIdentityByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("looking up identity: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !identity.Active {
		return nil, "", ErrInactive
	}

	token, err := s.tokens.Sign(identity.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return identity, token, nil
}

// RotateKey replaces the identity's primary key and returns the new
// plaintext key. The previous key stops resolving immediately.
func (s *Service) RotateKey(ctx context.Context, identity *storage.Identity) (string, error) {
	key, err := NewAPIKey()
	if err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}

	identity.APIKeyHash = auth.HashKey(key)
	if err := s.store.UpdateIdentity(ctx, identity); err != nil {
		return "", fmt.Errorf("updating identity: %w", err)
	}
	return key, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, identity *storage.Identity, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return &ValidationError{
			Field:   "newPassword",
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	identity.PasswordHash = string(hash)
	if err := s.store.UpdateIdentity(ctx, identity); err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}
	return nil
}

// IssueCredential creates a secondary named key for the identity and
// returns its plaintext exactly once.
func (s *Service) IssueCredential(ctx context.Context, identity *storage.Identity, label string, expiresAt *time.Time) (*storage.Credential, string, error) {
	if label == "" {
		return nil, "", &ValidationError{Field: "label", Message: "label is required"}
	}

	key, err := NewAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating api key: %w", err)
	}

	cred := &storage.Credential{
		IdentityID: identity.ID,
		Label:      label,
		KeyHash:    auth.HashKey(key),
		Active:     true,
		ExpiresAt:  expiresAt,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, "", fmt.Errorf("creating credential: %w", err)
	}
	return cred, key, nil
}

// ListCredentials returns the identity's secondary credentials.
func (s *Service) ListCredentials(ctx context.Context, identity *storage.Identity) ([]storage.Credential, error) {
	return s.store.ListCredentials(ctx, identity.ID)
}

// RevokeCredential deactivates one of the identity's secondary credentials.
func (s *Service) RevokeCredential(ctx context.Context, identity *storage.Identity, credentialID int64) error {
	return s.store.RevokeCredential(ctx, identity.ID, credentialID)
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	return nil
}
