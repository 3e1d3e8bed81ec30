package batch

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/internal/resource"
	"github.com/hupe1980/campie/noise"
	"github.com/hupe1980/campie/resolve"
	"github.com/hupe1980/campie/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlapping(t *testing.T) *cam.Ensemble {
	t.Helper()
	a, err := cam.NewArray([][]cam.Bound{{cam.Range(0, 5)}, {cam.Range(3, 10)}}, []float64{0, 1}, cam.Float64)
	require.NoError(t, err)
	e, err := cam.NewEnsemble(cam.EnsembleConfig{}, a)
	require.NoError(t, err)
	return e
}

func queries(t *testing.T, rows [][]float64) *cam.Queries {
	t.Helper()
	q, err := cam.NewQueries(rows)
	require.NoError(t, err)
	return q
}

func requireSameDecisions(t *testing.T, want, got []resolve.Decision) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		require.Equal(t, w.Array, g.Array, "query %d", i)
		require.Equal(t, w.Row, g.Row, "query %d", i)
		require.Equal(t, w.Rows, g.Rows, "query %d", i)
		require.Equal(t, w.Class, g.Class, "query %d", i)
		require.Equal(t, w.Contributing, g.Contributing, "query %d", i)
		require.Equal(t, w.Confidence, g.Confidence, "query %d", i)
		if math.IsNaN(w.Value) {
			require.True(t, math.IsNaN(g.Value), "query %d", i)
		} else {
			require.Equal(t, w.Value, g.Value, "query %d", i)
		}
	}
}

func TestRun_Overlapping(t *testing.T) {
	res, err := New().Run(context.Background(), overlapping(t), queries(t, [][]float64{{4}, {7}, {20}}), 0)
	require.NoError(t, err)

	require.Len(t, res.Decisions, 3)
	assert.Equal(t, 0, res.Decisions[0].Row)
	assert.Equal(t, 1, res.Decisions[1].Row)
	assert.Equal(t, resolve.NoMatch, res.Decisions[2].Row)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, resolve.PolicyPriority, res.Policy)
}

func TestRun_ChunkingInvariant(t *testing.T) {
	rng := testutil.NewRNG(99)
	m := rng.Model(testutil.ModelConfig{Trees: 4, Depth: 5, Features: 6, Classes: 3, LeafProb: 0.2})
	e, err := cam.Build(m)
	require.NoError(t, err)

	q := queries(t, rng.GridQueries(257, 6, 0.05))

	nm, err := noise.New(noise.Spec{Scale: 0.3, Seed: 5, ApplyTo: noise.Both})
	require.NoError(t, err)

	for _, policy := range []resolve.Policy{resolve.PolicyPriority, resolve.PolicyAggregate, resolve.PolicyReduce} {
		ctrl := New(WithNoise(nm), WithPolicy(policy), WithWorkers(3))

		whole, err := ctrl.Run(context.Background(), e, q, 0)
		require.NoError(t, err)

		for _, size := range []int{1, 2, 7, 64, 256, 257, 1000} {
			res, err := ctrl.Run(context.Background(), e, q, size)
			require.NoError(t, err)
			requireSameDecisions(t, whole.Decisions, res.Decisions)
			assert.Equal(t, (257+min(size, 257)-1)/min(size, 257), res.Chunks)
		}
	}
}

func TestRun_CapacityError(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {2}, {3}, {4}})

	// One query needs 2 rows * 8 bytes + one mask word = 24 bytes.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	_, err := New(WithResourceController(rc)).Run(context.Background(), e, q, 4)
	require.ErrorIs(t, err, ErrCapacity)

	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.ChunkSize)
	assert.Equal(t, int64(24), ce.RequiredBytes)
	assert.Equal(t, int64(10), ce.LimitBytes)
}

func TestRun_AdaptiveShrink(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {4}, {7}, {20}})

	unlimited, err := New().Run(context.Background(), e, q, 4)
	require.NoError(t, err)

	// A chunk of 4 needs 96 bytes, a chunk of 2 needs 48.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 50})
	res, err := New(WithResourceController(rc)).Run(context.Background(), e, q, 4)
	require.NoError(t, err)

	requireSameDecisions(t, unlimited.Decisions, res.Decisions)
	assert.Equal(t, 2, res.ChunkSize)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, int64(48), rc.PeakMemoryUsage())
}

func TestRun_WaitsForSharedBudget(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {4}, {7}, {20}})

	// A chunk of 4 needs 96 bytes and fits the limit; 84 bytes are held by
	// another run.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 96, MaxConcurrentRuns: 2})
	require.NoError(t, rc.AcquireMemory(84))

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := New(WithResourceController(rc)).Run(context.Background(), e, q, 4)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		t.Fatalf("run finished while the budget was held: %v", o.err)
	case <-time.After(20 * time.Millisecond):
	}

	rc.ReleaseMemory(84)
	o := <-done
	require.NoError(t, o.err)
	assert.Equal(t, 4, o.res.ChunkSize)
	assert.Equal(t, 1, o.res.Chunks)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestRun_WaitForBudgetCanceled(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {4}})

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 96})
	require.NoError(t, rc.AcquireMemory(96))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := New(WithResourceController(rc)).Run(ctx, e, q, 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrCapacity)
}

func TestRun_Strict(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {4}, {7}, {20}})

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 50})
	_, err := New(WithResourceController(rc), WithStrict(true)).Run(context.Background(), e, q, 4)

	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 4, ce.ChunkSize)
	assert.Equal(t, int64(96), ce.RequiredBytes)
}

func TestRun_CanceledBetweenChunks(t *testing.T) {
	e := overlapping(t)
	q := queries(t, [][]float64{{1}, {4}, {7}, {20}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []int
	ctrl := New(WithChunkHook(func(info ChunkInfo) {
		seen = append(seen, info.Offset)
		cancel()
	}))

	_, err := ctrl.Run(ctx, e, q, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0}, seen)
}

func TestRun_ShapeMismatch(t *testing.T) {
	_, err := New().Run(context.Background(), overlapping(t), queries(t, [][]float64{{1, 2}}), 0)
	require.ErrorIs(t, err, cam.ErrShapeMismatch)
}

func TestRun_EmptyBatchShapeMismatch(t *testing.T) {
	q, err := cam.QueriesFromFlat(nil, 3)
	require.NoError(t, err)

	_, err = New().Run(context.Background(), overlapping(t), q, 0)
	require.ErrorIs(t, err, cam.ErrShapeMismatch)
}

func TestRun_Empty(t *testing.T) {
	res, err := New().Run(context.Background(), overlapping(t), queries(t, nil), 16)
	require.NoError(t, err)
	assert.Empty(t, res.Decisions)
	assert.Equal(t, 0, res.Chunks)
}

func TestRun_StatsIndependentOfChunking(t *testing.T) {
	rng := testutil.NewRNG(17)
	a, err := cam.BuildArray(rng.Leaves(20, 3, 0.6), 3, cam.Float64)
	require.NoError(t, err)
	e, err := cam.NewEnsemble(cam.EnsembleConfig{}, a)
	require.NoError(t, err)
	q := queries(t, rng.GridQueries(90, 3, 0))

	whole, err := New(WithStats(true)).Run(context.Background(), e, q, 0)
	require.NoError(t, err)
	chunked, err := New(WithStats(true)).Run(context.Background(), e, q, 8)
	require.NoError(t, err)

	for r := range a.Rows() {
		assert.Equal(t, whole.Stats.Hits(0, r), chunked.Stats.Hits(0, r))
		assert.True(t, whole.Stats.Queries(0, r).Equals(chunked.Stats.Queries(0, r)))
	}
	assert.Equal(t, uint64(90), chunked.Stats.Summary().Queries)
}

func TestWorkingSet(t *testing.T) {
	e := overlapping(t)
	assert.Equal(t, int64(24), WorkingSet(e, 1))
	assert.Equal(t, int64(96), WorkingSet(e, 4))
}
