package storage

import (
	"context"
)

// SnapshotRepository persists whole-store snapshots.
// Implementations must be thread-safe.
type SnapshotRepository interface {
	// Save replaces any stored snapshot with snap.
	// The previous snapshot stays readable until the new one is complete.
	Save(ctx context.Context, snap *Snapshot) error

	// Load reads and validates the stored snapshot.
	// Returns ErrSnapshotNotFound if nothing has been saved.
	Load(ctx context.Context) (*Snapshot, error)

	// Manifest reads only the snapshot manifest.
	// Returns ErrSnapshotNotFound if nothing has been saved.
	Manifest(ctx context.Context) (*Manifest, error)

	// Close releases the repository's resources.
	Close() error
}
