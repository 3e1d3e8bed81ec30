package benchmark_test

import (
	"testing"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/testutil"
)

// fixture is a built ensemble plus a query batch drawn from the same grid.
type fixture struct {
	ensemble *cam.Ensemble
	queries  *cam.Queries
}

func newFixture(b *testing.B, cfg testutil.ModelConfig, queries int, dtype cam.DType) fixture {
	b.Helper()
	rng := testutil.NewRNG(1)

	e, err := cam.Build(rng.Model(cfg), cam.WithDType(dtype))
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	q, err := cam.NewQueries(rng.GridQueries(queries, cfg.Features, 0))
	if err != nil {
		b.Fatalf("queries: %v", err)
	}
	return fixture{ensemble: e, queries: q}
}

func reportQPS(b *testing.B, queries int) {
	b.ReportMetric(float64(queries*b.N)/b.Elapsed().Seconds(), "queries/s")
}
