// Package store defines the durable seen-fingerprint set that gives the
// engine its at-most-once notification guarantee. The store only grows; a
// recorded fingerprint is never forgotten.
package store

import (
	"context"
	"time"

	"github.com/argyx/officetrack/internal/fingerprint"
)

// Store is the cross-run set of already-notified finding fingerprints.
// Record is idempotent: recording an existing fingerprint is a no-op, so a
// crash between check and record can never corrupt the set or double-record.
type Store interface {
	// IsNew reports whether fp has never been recorded.
	IsNew(ctx context.Context, fp fingerprint.Fingerprint) (bool, error)
	// Record durably marks fp as seen.
	Record(ctx context.Context, fp fingerprint.Fingerprint, firstSeen time.Time) error
	// RecordBatch durably marks all fps as seen in one atomic write.
	RecordBatch(ctx context.Context, fps []fingerprint.Fingerprint, firstSeen time.Time) error
	// Count returns the number of recorded fingerprints.
	Count(ctx context.Context) (int64, error)
	Close() error
}
