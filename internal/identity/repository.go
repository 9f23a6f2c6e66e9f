package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stellarpass/stellarpass/internal/kv"
)

var (
	// ErrUsernameTaken is returned when appending a username already in the roster.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrNotFound is returned when no identity carries the username.
	ErrNotFound = errors.New("identity not found")
)

// Repository is the append-only roster of every identity registered on this client.
type Repository interface {
	Append(ctx context.Context, identity Identity) error
	FindByUsername(ctx context.Context, username string) (Identity, error)
	List(ctx context.Context) ([]Identity, error)
}

// RosterKey is the KV key the roster is stored under.
const RosterKey = "stellarpass_all_users"

// KVRepository keeps the roster as one JSON array in a kv.Store.
type KVRepository struct {
	store kv.Store
}

// NewKVRepository builds a roster over store.
func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

// Append reads the roster, checks for the username and writes it back. There is no
// cross-process locking; two writers can race.
func (r *KVRepository) Append(ctx context.Context, identity Identity) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.Username == identity.Username {
			return ErrUsernameTaken
		}
	}
	all = append(all, identity)
	return kv.SetJSON(ctx, r.store, RosterKey, all)
}

func (r *KVRepository) FindByUsername(ctx context.Context, username string) (Identity, error) {
	all, err := r.List(ctx)
	if err != nil {
		return Identity{}, err
	}
	for _, existing := range all {
		if existing.Username == username {
			return existing, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (r *KVRepository) List(ctx context.Context) ([]Identity, error) {
	var all []Identity
	err := kv.GetJSON(ctx, r.store, RosterKey, &all)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return all, nil
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed roster and ensures its table exists.
func NewPostgresRepository(ctx context.Context, db *pgxpool.Pool) (*PostgresRepository, error) {
	_, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS identities (
        seq BIGSERIAL,
        username TEXT PRIMARY KEY,
        id TEXT NOT NULL,
        public_key TEXT NOT NULL,
        stellar_address TEXT NOT NULL DEFAULT '',
        credential_id TEXT NOT NULL DEFAULT '',
        passkey_enabled BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return nil, fmt.Errorf("create identities table: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// Append inserts a new identity.
func (r *PostgresRepository) Append(ctx context.Context, identity Identity) error {
	cmd, err := r.db.Exec(ctx, `INSERT INTO identities (username, id, public_key, stellar_address, credential_id, passkey_enabled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (username) DO NOTHING`,
		identity.Username, identity.ID, identity.PublicKey, identity.StellarAddress, identity.CredentialID,
		identity.IsPasskeyEnabled, identity.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUsernameTaken
	}
	return nil
}

// FindByUsername fetches an identity by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, public_key, stellar_address, credential_id, passkey_enabled, created_at
        FROM identities WHERE username = $1`, username)
	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	return identity, err
}

// List returns the roster in registration order.
func (r *PostgresRepository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, public_key, stellar_address, credential_id, passkey_enabled, created_at
        FROM identities ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		identity  Identity
		createdAt time.Time
	)
	if err := row.Scan(&identity.ID, &identity.Username, &identity.PublicKey, &identity.StellarAddress,
		&identity.CredentialID, &identity.IsPasskeyEnabled, &createdAt); err != nil {
		return Identity{}, err
	}
	identity.CreatedAt = createdAt.UTC()
	return identity, nil
}
