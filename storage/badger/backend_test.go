package badger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	backend, err := OpenBackend(tmpFile, false)
	if err == nil {
		backend.Close()
	}
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestBackend_WithBatch(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithBatch(func(wb *badger.WriteBatch) error {
		for i := 0; i < 3; i++ {
			if err := wb.Set(makePositionKey(documentPrefix, i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var count int
	err = backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePositionPrefix(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			pos, err := positionFromKey(documentPrefix, iter.Item().Key())
			if err != nil {
				return err
			}
			assert.Equal(t, count, pos)
			count++
		}
		return nil
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("failed batch is cancelled", func(t *testing.T) {
		boom := errors.New("boom")
		err := backend.WithBatch(func(wb *badger.WriteBatch) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("drop all", func(t *testing.T) {
		require.NoError(t, backend.DropAll())
		err := backend.WithTx(func(tx *badger.Txn) error {
			_, err := tx.Get(makePositionKey(documentPrefix, 0))
			return err
		}, false)
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})
}

func TestPositionKeys(t *testing.T) {
	key := makePositionKey(fragmentPrefix, 258)
	pos, err := positionFromKey(fragmentPrefix, key)
	require.NoError(t, err)
	assert.Equal(t, 258, pos)

	assert.Less(t, string(makePositionKey(fragmentPrefix, 9)), string(makePositionKey(fragmentPrefix, 10)),
		"keys sort by position")

	_, err = positionFromKey(fragmentPrefix, []byte("snapfra:short"))
	assert.Error(t, err)
}
