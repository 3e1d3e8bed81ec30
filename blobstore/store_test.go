package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("hello world, this is a test blob for campie")

			w, err := store.Create(ctx, "ens/arrays/0000.bin")
			require.NoError(t, err)
			n, err := w.Write(data)
			require.NoError(t, err)
			require.Equal(t, len(data), n)
			require.NoError(t, w.Close())

			blob, err := store.Open(ctx, "ens/arrays/0000.bin")
			require.NoError(t, err)
			defer func() { _ = blob.Close() }()
			require.Equal(t, int64(len(data)), blob.Size())

			buf := make([]byte, 5)
			n, err = blob.ReadAt(ctx, buf, 6)
			require.NoError(t, err)
			require.Equal(t, 5, n)
			assert.Equal(t, "world", string(buf))

			tail := make([]byte, 10)
			n, err = blob.ReadAt(ctx, tail, int64(len(data)-4))
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, 4, n)

			require.NoError(t, store.Put(ctx, "ens/manifest.json", []byte("{}")))
			require.NoError(t, store.Put(ctx, "other/x", []byte("x")))

			names, err := store.List(ctx, "ens/")
			require.NoError(t, err)
			assert.Equal(t, []string{"ens/arrays/0000.bin", "ens/manifest.json"}, names)

			got, err := ReadAll(ctx, store, "ens/manifest.json")
			require.NoError(t, err)
			assert.Equal(t, "{}", string(got))

			require.NoError(t, store.Delete(ctx, "ens/manifest.json"))
			require.NoError(t, store.Delete(ctx, "ens/manifest.json"))

			_, err = store.Open(ctx, "ens/manifest.json")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_PutCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'z'

	got, err := ReadAll(ctx, store, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestLocalStore_NoPartialBlobs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)

	w, err := store.Create(ctx, "pending.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	// Not visible before Close.
	_, err = os.Stat(filepath.Join(dir, "pending.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(dir, "pending.bin"))
	require.NoError(t, err)
}

func TestReadAll_Canceled(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "k", []byte("abc")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadAll(ctx, store, "k")
	require.ErrorIs(t, err, context.Canceled)
}
