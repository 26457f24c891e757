// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and embedded SQL migrations for
// schema management.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelgate/modelgate/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateIdentity persists a new identity.
func (s *Store) CreateIdentity(ctx context.Context, id *storage.Identity) error {
	now := time.Now()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO identities (email, username, password_hash, api_key_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`,
		id.Email, id.Username, id.PasswordHash, id.APIKeyHash, string(id.Role), id.Active, now,
	).Scan(&id.ID)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	id.CreatedAt = now
	id.UpdatedAt = now
	return nil
}

const identityColumns = `id, email, username, password_hash, api_key_hash, role, active, created_at, updated_at`

func (s *Store) scanIdentity(row pgx.Row) (*storage.Identity, error) {
	var id storage.Identity
	var role string
	err := row.Scan(
		&id.ID, &id.Email, &id.Username, &id.PasswordHash, &id.APIKeyHash,
		&role, &id.Active, &id.CreatedAt, &id.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying identity: %w", err)
	}
	id.Role = storage.Role(role)
	return &id, nil
}

// GetIdentityByID returns the identity with the given id, active or not.
func (s *Store) GetIdentityByID(ctx context.Context, id int64) (*storage.Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
}

// GetIdentityByEmail returns the identity with the given email.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*storage.Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE lower(email) = lower($1)`, email))
}

// GetIdentityByKeyHash returns the identity whose primary key hash matches.
func (s *Store) GetIdentityByKeyHash(ctx context.Context, keyHash string) (*storage.Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE api_key_hash = $1`, keyHash))
}

// UpdateIdentity persists mutable identity fields and bumps updated_at.
func (s *Store) UpdateIdentity(ctx context.Context, id *storage.Identity) error {
	now := time.Now()
	result, err := s.pool.Exec(ctx, `
		UPDATE identities
		SET password_hash = $1, api_key_hash = $2, role = $3, active = $4, updated_at = $5
		WHERE id = $6
	`,
		id.PasswordHash, id.APIKeyHash, string(id.Role), id.Active, now, id.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("updating identity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	id.UpdatedAt = now
	return nil
}

// CreateCredential persists a new secondary credential.
func (s *Store) CreateCredential(ctx context.Context, c *storage.Credential) error {
	now := time.Now()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO credentials (identity_id, label, key_hash, active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		c.IdentityID, c.Label, c.KeyHash, c.Active, c.ExpiresAt, now,
	).Scan(&c.ID)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting credential: %w", err)
	}

	c.CreatedAt = now
	return nil
}

const credentialColumns = `id, identity_id, label, key_hash, active, expires_at, last_used_at, created_at`

func scanCredential(row pgx.Row) (*storage.Credential, error) {
	var c storage.Credential
	err := row.Scan(
		&c.ID, &c.IdentityID, &c.Label, &c.KeyHash,
		&c.Active, &c.ExpiresAt, &c.LastUsedAt, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &c, nil
}

// GetCredentialByKeyHash returns the secondary credential whose key hash
// matches, regardless of active flag or expiry.
func (s *Store) GetCredentialByKeyHash(ctx context.Context, keyHash string) (*storage.Credential, error) {
	return scanCredential(s.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE key_hash = $1`, keyHash))
}

// ListCredentials returns all secondary credentials owned by an identity.
func (s *Store) ListCredentials(ctx context.Context, identityID int64) ([]storage.Credential, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE identity_id = $1 ORDER BY id`, identityID)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var creds []storage.Credential
	for rows.Next() {
		var c storage.Credential
		if err := rows.Scan(
			&c.ID, &c.IdentityID, &c.Label, &c.KeyHash,
			&c.Active, &c.ExpiresAt, &c.LastUsedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// RevokeCredential clears the active flag on a credential owned by the
// given identity.
func (s *Store) RevokeCredential(ctx context.Context, identityID, credentialID int64) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE credentials SET active = FALSE WHERE id = $1 AND identity_id = $2`,
		credentialID, identityID,
	)
	if err != nil {
		return fmt.Errorf("revoking credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TouchCredential stamps last_used_at.
func (s *Store) TouchCredential(ctx context.Context, credentialID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE credentials SET last_used_at = $1 WHERE id = $2`, at, credentialID)
	if err != nil {
		return fmt.Errorf("touching credential: %w", err)
	}
	return nil
}

// InsertAudit appends one audit entry.
func (s *Store) InsertAudit(ctx context.Context, e *storage.AuditEntry) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO audit_log (
			identity_id, credential_id, endpoint, method, provider, model,
			status_code, request_bytes, response_bytes, latency_ms,
			error_message, caller_ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`,
		e.IdentityID, e.CredentialID, e.Endpoint, e.Method, e.Provider, e.Model,
		e.StatusCode, e.RequestBytes, e.ResponseBytes, e.LatencyMS,
		e.ErrorMessage, e.CallerIP, e.UserAgent, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// CountAuditSince counts audit entries for one identity and endpoint with
// created_at strictly after the given instant.
func (s *Store) CountAuditSince(ctx context.Context, identityID int64, endpoint string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM audit_log
		WHERE identity_id = $1 AND endpoint = $2 AND created_at > $3
	`, identityID, endpoint, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting audit entries: %w", err)
	}
	return count, nil
}

// ListModels returns active model catalog entries.
func (s *Store) ListModels(ctx context.Context) ([]storage.Model, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider, model_id, display_name, cost_per_1k, max_tokens, active
		FROM models WHERE active ORDER BY provider, model_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	var models []storage.Model
	for rows.Next() {
		var m storage.Model
		if err := rows.Scan(
			&m.ID, &m.Provider, &m.ModelID, &m.DisplayName,
			&m.CostPer1K, &m.MaxTokens, &m.Active,
		); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
