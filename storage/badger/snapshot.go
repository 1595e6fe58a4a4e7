package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/storage"
)

// SnapshotRepository implements storage.SnapshotRepository for BadgerDB.
type SnapshotRepository struct {
	backend *Backend
	owned   bool
}

var _ storage.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a repository on an open backend.
// The caller keeps ownership of the backend.
func NewSnapshotRepository(backend *Backend) *SnapshotRepository {
	return &SnapshotRepository{backend: backend}
}

// OpenSnapshotRepository opens (creating if needed) a snapshot database
// directory. Closing the repository closes the database.
func OpenSnapshotRepository(path string) (storage.SnapshotRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &SnapshotRepository{backend: backend, owned: true}, nil
}

// Close closes the backend if the repository opened it.
func (r *SnapshotRepository) Close() error {
	if r.owned {
		return r.backend.Close()
	}
	return nil
}

// Save replaces the stored snapshot. Records are written in a batch and the
// manifest last, so an interrupted save reads back as not found rather than
// as a partial snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap *storage.Snapshot) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	if err := r.backend.DropAll(); err != nil {
		return err
	}

	err := r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for i := range snap.Documents {
			if err := wb.Set(makePositionKey(documentPrefix, i), storage.MarshalDocument(&snap.Documents[i])); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range snap.Fragments {
			if err := wb.Set(makePositionKey(fragmentPrefix, i), storage.MarshalFragment(&snap.Fragments[i])); err != nil {
				return err
			}
			if err := wb.Set(makePositionKey(embeddingPrefix, i), storage.MarshalEmbedding(snap.Embeddings[i])); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if snap.HasSparseIndex() {
			vocab := &storage.Vocabulary{Terms: snap.Terms, IDF: snap.IDF}
			if err := wb.Set([]byte(vocabularyKey), storage.MarshalVocabulary(vocab)); err != nil {
				return err
			}
			for i, row := range snap.Rows {
				if err := wb.Set(makePositionKey(rowPrefix, i), storage.MarshalVector(row)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(manifestKey), storage.MarshalManifest(&snap.Manifest)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	r.backend.logger.Debug("snapshot saved",
		"documents", len(snap.Documents),
		"fragments", len(snap.Fragments),
		"sparseFeatures", len(snap.Terms))
	return nil
}

// Manifest reads only the snapshot manifest.
func (r *SnapshotRepository) Manifest(ctx context.Context) (*storage.Manifest, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var manifest *storage.Manifest
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		manifest, err = readManifest(tx)
		return err
	}, false)
	return manifest, err
}

// Load reads and validates the stored snapshot.
func (r *SnapshotRepository) Load(ctx context.Context) (*storage.Snapshot, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	snap := &storage.Snapshot{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		manifest, err := readManifest(tx)
		if err != nil {
			return err
		}
		if manifest.SchemaVersion != storage.SchemaVersion {
			return fmt.Errorf("%w: got version %d, want %d",
				storage.ErrSchemaMismatch, manifest.SchemaVersion, storage.SchemaVersion)
		}
		snap.Manifest = *manifest

		snap.Documents, err = readPositional(tx, documentPrefix, func(val []byte) (core.Document, error) {
			doc, err := storage.UnmarshalDocument(val)
			if err != nil {
				return core.Document{}, err
			}
			return *doc, nil
		})
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		snap.Fragments, err = readPositional(tx, fragmentPrefix, func(val []byte) (core.Fragment, error) {
			f, err := storage.UnmarshalFragment(val)
			if err != nil {
				return core.Fragment{}, err
			}
			return *f, nil
		})
		if err != nil {
			return err
		}

		snap.Embeddings, err = readPositional(tx, embeddingPrefix, storage.UnmarshalEmbedding)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := tx.Get([]byte(vocabularyKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				vocab, err := storage.UnmarshalVocabulary(val)
				if err != nil {
					return err
				}
				snap.Terms, snap.IDF = vocab.Terms, vocab.IDF
				return nil
			})
			if err != nil {
				return fmt.Errorf("%w: vocabulary: %w", storage.ErrCorruptSnapshot, err)
			}
		}

		snap.Rows, err = readPositional(tx, rowPrefix, storage.UnmarshalVector)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func readManifest(tx *badger.Txn) (*storage.Manifest, error) {
	item, err := tx.Get([]byte(manifestKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var manifest *storage.Manifest
	err = item.Value(func(val []byte) error {
		manifest, err = storage.UnmarshalManifest(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", storage.ErrCorruptSnapshot, err)
	}
	return manifest, nil
}

// readPositional reads every record under prefix in key order. Positions
// must run 0, 1, 2... without gaps.
func readPositional[T any](tx *badger.Txn, prefix string, decode func([]byte) (T, error)) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePositionPrefix(prefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var out []T
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		pos, err := positionFromKey(prefix, item.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrCorruptSnapshot, err)
		}
		if pos != len(out) {
			return nil, fmt.Errorf("%w: %s record %d missing", storage.ErrCorruptSnapshot, prefix, len(out))
		}

		var v T
		err = item.Value(func(val []byte) error {
			var err error
			v, err = decode(val)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %d: %w", storage.ErrCorruptSnapshot, prefix, pos, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteSnapshot writes snap as a new snapshot directory at path. The data is
// written to a temporary sibling directory first and renamed over path, so
// an existing snapshot is only replaced by a complete one.
func WriteSnapshot(ctx context.Context, path string, snap *storage.Snapshot) error {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}

	if err := writeInto(ctx, tmp, snap); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	if err := swapDir(tmp, path); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	return nil
}

func writeInto(ctx context.Context, dir string, snap *storage.Snapshot) error {
	repo, err := OpenSnapshotRepository(dir)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, snap); err != nil {
		repo.Close()
		return err
	}
	return repo.Close()
}

// swapDir moves src to dst, replacing any existing dst.
func swapDir(src, dst string) error {
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		return os.Rename(src, dst)
	} else if err != nil {
		return err
	}

	old := dst + ".old-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.Rename(dst, old); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		// Put the previous snapshot back.
		if rerr := os.Rename(old, dst); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return os.RemoveAll(old)
}

// ReadSnapshot loads the snapshot stored in the directory at path.
func ReadSnapshot(ctx context.Context, path string) (*storage.Snapshot, error) {
	repo, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return repo.Load(ctx)
}

// ReadManifest loads only the manifest of the snapshot at path.
func ReadManifest(ctx context.Context, path string) (*storage.Manifest, error) {
	repo, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return repo.Manifest(ctx)
}

func openExisting(path string) (storage.SnapshotRepository, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSnapshotNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrCorruptSnapshot, path)
	}
	return OpenSnapshotRepository(path)
}
