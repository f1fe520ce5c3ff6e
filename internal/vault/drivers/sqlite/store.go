package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reelpitch/reelpitch/internal/vault"
	"github.com/reelpitch/reelpitch/pkg/cryptox"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed Secrets driver. Values are sealed before they
// touch the database so the file on disk never contains a readable token.
type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	dsn    string
}

func NewStore(dsn string, sealer *cryptox.Sealer) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer; the client has no concurrent writers worth queueing for.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, sealer: sealer, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the unsealed value for name. Missing keys and values that fail
// to unseal both map to vault.ErrNotFound: a secret we cannot read is a
// secret we do not have.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM secrets WHERE name = ?`, name,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %q: %w", name, err)
	}

	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: secret %q failed to unseal", vault.ErrNotFound, name)
	}
	return plain, nil
}

// PutMany applies all writes in one transaction. A nil value deletes the
// key. All-or-nothing semantics keep the credential pair invariant: the
// access and refresh tokens are always persisted or removed together.
func (s *Store) PutMany(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for name, value := range entries {
		if value == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM secrets WHERE name = ?`, name,
			); err != nil {
				return fmt.Errorf("failed to delete secret %q: %w", name, err)
			}
			continue
		}

		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("failed to seal secret %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO secrets (name, value, updated_at)
			VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
			ON CONFLICT (name) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at`,
			name, sealed,
		); err != nil {
			return fmt.Errorf("failed to write secret %q: %w", name, err)
		}
	}

	return tx.Commit()
}
