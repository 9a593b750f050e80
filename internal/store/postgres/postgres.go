// Package postgres provides a PostgreSQL-backed Store for deployments that
// share one seen-set across several scanner hosts.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/argyx/officetrack/internal/fingerprint"
	"github.com/argyx/officetrack/internal/store"
)

var _ store.Store = (*pgStore)(nil)

type pgStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS seen_fingerprints (
	fingerprint TEXT PRIMARY KEY,
	first_seen_at TIMESTAMPTZ NOT NULL
);
`

// New connects to the database at dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres store: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) IsNew(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_fingerprints WHERE fingerprint = $1)`,
		string(fp)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
	return !exists, nil
}

func (s *pgStore) Record(ctx context.Context, fp fingerprint.Fingerprint, firstSeen time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seen_fingerprints (fingerprint, first_seen_at) VALUES ($1, $2)
		 ON CONFLICT (fingerprint) DO NOTHING`,
		string(fp), firstSeen.UTC())
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (s *pgStore) RecordBatch(ctx context.Context, fps []fingerprint.Fingerprint, firstSeen time.Time) error {
	if len(fps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, fp := range fps {
		batch.Queue(
			`INSERT INTO seen_fingerprints (fingerprint, first_seen_at) VALUES ($1, $2)
			 ON CONFLICT (fingerprint) DO NOTHING`,
			string(fp), firstSeen.UTC())
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

func (s *pgStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
