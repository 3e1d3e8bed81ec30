package persistence

import (
	"context"
	"path"
	"testing"

	"github.com/hupe1980/campie/batch"
	"github.com/hupe1980/campie/blobstore"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/codec"
	"github.com/hupe1980/campie/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEnsemble(t *testing.T, classes int, dtype cam.DType) *cam.Ensemble {
	t.Helper()
	rng := testutil.NewRNG(42)
	m := rng.Model(testutil.ModelConfig{Trees: 4, Depth: 4, Features: 3, Classes: classes, LeafProb: 0.2})
	m.Name = "forest"
	e, err := cam.Build(m, cam.WithDType(dtype))
	require.NoError(t, err)
	return e
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) blobstore.Store{
		"memory": func(*testing.T) blobstore.Store { return blobstore.NewMemoryStore() },
		"local":  func(t *testing.T) blobstore.Store { return blobstore.NewLocalStore(t.TempDir()) },
	}
	compressions := []Compression{CompressionNone, CompressionLZ4, CompressionZSTD}

	for storeName, newStore := range stores {
		for _, c := range compressions {
			t.Run(storeName+"/"+c.String(), func(t *testing.T) {
				store := newStore(t)
				e := buildEnsemble(t, 3, cam.Float64)

				require.NoError(t, Save(ctx, store, "models/forest", e, WithCompression(c)))

				got, err := Load(ctx, store, "models/forest")
				require.NoError(t, err)

				assert.Equal(t, e.Config(), got.Config())
				require.Equal(t, e.Len(), got.Len())
				for i := range e.Len() {
					assertArrayEqual(t, e.Array(i), got.Array(i))
				}

				m, err := ReadManifest(ctx, store, "models/forest")
				require.NoError(t, err)
				assert.Equal(t, c.String(), m.Compression)
				assert.Equal(t, e.Len(), len(m.Arrays))
			})
		}
	}
}

func TestSaveLoad_DecisionsPreserved(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	for _, dtype := range []cam.DType{cam.Float64, cam.Float32} {
		t.Run(dtype.String(), func(t *testing.T) {
			e := buildEnsemble(t, 0, dtype)
			name := "regressor-" + dtype.String()
			require.NoError(t, Save(ctx, store, name, e, WithCompression(CompressionZSTD), WithConcurrency(2)))

			got, err := Load(ctx, store, name, WithConcurrency(2))
			require.NoError(t, err)

			q, err := cam.NewQueries(testutil.NewRNG(7).GridQueries(200, 3, 0.05))
			require.NoError(t, err)

			want, err := batch.New().Run(ctx, e, q, 64)
			require.NoError(t, err)
			have, err := batch.New().Run(ctx, got, q, 64)
			require.NoError(t, err)

			require.Equal(t, len(want.Decisions), len(have.Decisions))
			for i := range want.Decisions {
				assert.Equal(t, want.Decisions[i].Matched(), have.Decisions[i].Matched(), "query %d", i)
				if want.Decisions[i].Matched() {
					assert.Equal(t, want.Decisions[i].Value, have.Decisions[i].Value, "query %d", i)
				}
			}
		})
	}
}

func TestSaveLoad_Codec(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	e := buildEnsemble(t, 2, cam.Float64)

	require.NoError(t, Save(ctx, store, "std", e, WithCodec(codec.JSON{})))
	got, err := Load(ctx, store, "std", WithCodec(codec.JSON{}))
	require.NoError(t, err)
	assert.Equal(t, e.TotalRows(), got.TotalRows())
}

func TestSaveLoad_IOLimit(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	e := buildEnsemble(t, 2, cam.Float64)

	require.NoError(t, Save(ctx, store, "slow", e, WithIOLimit(64<<20)))
	got, err := Load(ctx, store, "slow", WithIOLimit(64<<20))
	require.NoError(t, err)
	assert.Equal(t, e.Len(), got.Len())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), blobstore.NewMemoryStore(), "nope")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLoad_IncompatibleManifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	e := buildEnsemble(t, 2, cam.Float64)
	require.NoError(t, Save(ctx, store, "m", e))

	m, err := ReadManifest(ctx, store, "m")
	require.NoError(t, err)
	m.Version = ManifestVersion + 1
	require.NoError(t, store.Put(ctx, path.Join("m", manifestBlob), codec.MustMarshal(nil, m)))

	_, err = Load(ctx, store, "m")
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
}

func TestLoad_CorruptArray(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	e := buildEnsemble(t, 2, cam.Float64)
	require.NoError(t, Save(ctx, store, "c", e, WithCompression(CompressionNone)))

	blob := path.Join("c", "array-00001.cam")
	data, err := blobstore.ReadAll(ctx, store, blob)
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	require.NoError(t, store.Put(ctx, blob, data))

	_, err = Load(ctx, store, "c")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoad_CorruptManifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, path.Join("x", manifestBlob), []byte("{not json")))

	_, err := Load(ctx, store, "x")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	e := buildEnsemble(t, 2, cam.Float64)
	require.NoError(t, Save(ctx, store, "d", e))
	require.NoError(t, Save(ctx, store, "keep", e))

	require.NoError(t, Delete(ctx, store, "d"))

	names, err := store.List(ctx, "d/")
	require.NoError(t, err)
	assert.Empty(t, names)

	names, err = store.List(ctx, "keep/")
	require.NoError(t, err)
	assert.Len(t, names, e.Len()+1)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}
