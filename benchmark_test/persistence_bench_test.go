package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/campie/blobstore"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/persistence"
	"github.com/hupe1980/campie/testutil"
)

func BenchmarkPersistence(b *testing.B) {
	ctx := context.Background()
	fx := newFixture(b, testutil.ModelConfig{Trees: 64, Depth: 8, Features: 32}, 1, cam.Float32)

	for _, c := range []persistence.Compression{persistence.CompressionNone, persistence.CompressionLZ4, persistence.CompressionZSTD} {
		b.Run("save/"+c.String(), func(b *testing.B) {
			store := blobstore.NewMemoryStore()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := persistence.Save(ctx, store, "bench", fx.ensemble, persistence.WithCompression(c)); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(fx.ensemble.SizeBytes())
		})

		b.Run("load/"+c.String(), func(b *testing.B) {
			store := blobstore.NewMemoryStore()
			if err := persistence.Save(ctx, store, "bench", fx.ensemble, persistence.WithCompression(c)); err != nil {
				b.Fatal(err)
			}
			m, err := persistence.ReadManifest(ctx, store, "bench")
			if err != nil {
				b.Fatal(err)
			}
			var stored int64
			for _, a := range m.Arrays {
				stored += a.Size
			}
			b.ReportMetric(float64(stored)/float64(fx.ensemble.SizeBytes()), "ratio")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := persistence.Load(ctx, store, "bench"); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(fx.ensemble.SizeBytes())
		})
	}
}
