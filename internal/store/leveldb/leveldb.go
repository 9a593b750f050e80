// Package leveldb provides an embedded key-value Store for hosts where even
// SQLite is heavier than wanted.
package leveldb

import (
	"context"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/argyx/officetrack/internal/fingerprint"
	"github.com/argyx/officetrack/internal/store"
)

var _ store.Store = (*levelStore)(nil)

const keyPrefix = "seen:"

// Synced writes: a recorded fingerprint must survive a crash, otherwise the
// next run would notify the same finding again.
var writeOpts = &opt.WriteOptions{Sync: true}

type levelStore struct {
	db *leveldb.DB
}

// New opens (and if needed creates) a LevelDB-backed store at path.
func New(path string) (store.Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store: %w", err)
	}
	return &levelStore{db: db}, nil
}

func key(fp fingerprint.Fingerprint) []byte {
	return []byte(keyPrefix + string(fp))
}

func (s *levelStore) IsNew(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	has, err := s.db.Has(key(fp), nil)
	if err != nil {
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
	return !has, nil
}

func (s *levelStore) Record(ctx context.Context, fp fingerprint.Fingerprint, firstSeen time.Time) error {
	if err := s.db.Put(key(fp), []byte(firstSeen.UTC().Format(time.RFC3339)), writeOpts); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (s *levelStore) RecordBatch(ctx context.Context, fps []fingerprint.Fingerprint, firstSeen time.Time) error {
	if len(fps) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	seen := firstSeen.UTC().Format(time.RFC3339)
	for _, fp := range fps {
		batch.Put(key(fp), []byte(seen))
	}
	if err := s.db.Write(batch, writeOpts); err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

func (s *levelStore) Count(ctx context.Context) (int64, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()

	var n int64
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

func (s *levelStore) Close() error {
	return s.db.Close()
}
