// Package state implements the commit-index cache: a non-load-bearing
// accelerator mapping plain commit hashes to their mirrored encrypted
// commit hashes, so the commit pipeline can find "the last mirrored
// commit" without walking all of E's history. Grounded on
// theMichaelB-obsync/internal/state's Store interface with dual
// SQLite/JSON backends, generalized from per-vault sync checkpoints to
// per-repo commit-index rows.
package state

import (
	"errors"
	"time"
)

// Store persists commit-index rows for one repo pairing (P, E).
type Store interface {
	// Get looks up the mirror record for a plain commit hash.
	Get(plainCommitHash string) (*Record, error)

	// Put records that plainCommitHash was mirrored to encCommitHash,
	// with its manifest stored at manifestPath.
	Put(rec Record) error

	// Latest returns the most recently mirrored record, or
	// ErrNotFound if the cache is empty (first commit case).
	Latest() (*Record, error)

	// All returns every known record, oldest first.
	All() ([]Record, error)

	// Reset removes every record, used before a reencrypt run since the
	// enc commit hashes it recorded are about to become stale.
	Reset() error

	// Close releases any resources held by the store.
	Close() error
}

// Record is one plain-commit -> encrypted-commit mirroring entry.
type Record struct {
	PlainCommitHash string
	EncCommitHash   string
	ManifestPath    string
	MirroredAt      time.Time
}

// ErrNotFound is returned by Get/Latest when no matching record exists.
var ErrNotFound = errors.New("state: record not found")

// CurrentSchemaVersion guards the on-disk (JSON) and in-database
// (SQLite) schema against incompatible future changes.
const CurrentSchemaVersion = 1
