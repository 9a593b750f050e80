// Package sqlite provides the default, file-backed Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/argyx/officetrack/internal/fingerprint"
	"github.com/argyx/officetrack/internal/store"
)

// ensure sqliteStore implements store.Store
var _ store.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS seen_fingerprints (
	fingerprint TEXT PRIMARY KEY,
	first_seen_at DATETIME NOT NULL
);
`

// New opens (and if needed initializes) a SQLite-backed store at dsn.
// WAL mode keeps a crashed writer from corrupting previously recorded rows.
func New(dsn string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) IsNew(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_fingerprints WHERE fingerprint = ?`, string(fp)).Scan(&one)
	switch err {
	case nil:
		return false, nil
	case sql.ErrNoRows:
		return true, nil
	default:
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
}

func (s *sqliteStore) Record(ctx context.Context, fp fingerprint.Fingerprint, firstSeen time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_fingerprints (fingerprint, first_seen_at) VALUES (?, ?)`,
		string(fp), firstSeen.UTC())
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (s *sqliteStore) RecordBatch(ctx context.Context, fps []fingerprint.Fingerprint, firstSeen time.Time) error {
	if len(fps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO seen_fingerprints (fingerprint, first_seen_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, fp := range fps {
		if _, err := stmt.ExecContext(ctx, string(fp), firstSeen.UTC()); err != nil {
			return fmt.Errorf("record fingerprint %s: %w", fp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
