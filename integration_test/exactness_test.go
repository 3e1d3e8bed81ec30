package integration_test

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/campie/batch"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/match"
	"github.com/hupe1980/campie/resolve"
	"github.com/hupe1980/campie/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactness_MatchAgainstNaive(t *testing.T) {
	ctx := context.Background()

	for _, dtype := range []cam.DType{cam.Float64, cam.Float32} {
		t.Run(dtype.String(), func(t *testing.T) {
			rng := testutil.NewRNG(21)
			a, err := cam.BuildArray(rng.Leaves(300, 10, 0.4), 10, dtype)
			require.NoError(t, err)
			q, err := cam.NewQueries(rng.GridQueries(256, 10, 0.1))
			require.NoError(t, err)

			mask, err := match.Match(ctx, a, q, match.WithWorkers(4))
			require.NoError(t, err)

			for i := range q.Len() {
				want := testutil.NaiveMatch(a, q.Row(i))
				var got []int
				mask.ForEach(i, func(r int) bool {
					got = append(got, r)
					return true
				})
				assert.Equal(t, want, got, "query %d", i)
			}
		})
	}
}

func TestExactness_PolicyAgainstNaive(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)

	a, err := cam.BuildArray(rng.Leaves(200, 6, 0.5), 6, cam.Float64)
	require.NoError(t, err)
	e, err := cam.NewEnsemble(cam.EnsembleConfig{}, a)
	require.NoError(t, err)
	q, err := cam.NewQueries(rng.GridQueries(300, 6, 0))
	require.NoError(t, err)

	prio, err := batch.New(batch.WithPolicy(resolve.PolicyPriority)).Run(ctx, e, q, 64)
	require.NoError(t, err)
	reduce, err := batch.New(batch.WithPolicy(resolve.PolicyReduce)).Run(ctx, e, q, 64)
	require.NoError(t, err)

	for i := range q.Len() {
		x := q.Row(i)

		row := testutil.NaivePriority(a, x)
		assert.Equal(t, row, prio.Decisions[i].Row, "query %d", i)
		if row >= 0 {
			assert.Equal(t, a.Value(row), prio.Decisions[i].Value)
		} else {
			assert.True(t, math.IsNaN(prio.Decisions[i].Value))
		}

		assert.InDelta(t, testutil.NaiveReduce(a, x), reduce.Decisions[i].Value, 1e-9, "query %d", i)
	}
}

func TestExactness_ChunkingInvariance(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(9)
	e, err := cam.Build(rng.Model(testutil.ModelConfig{Trees: 6, Depth: 5, Features: 5, Classes: 3}))
	require.NoError(t, err)
	q, err := cam.NewQueries(rng.GridQueries(777, 5, 0))
	require.NoError(t, err)

	c := batch.New(batch.WithStats(false))
	whole, err := c.Run(ctx, e, q, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, whole.Chunks)

	for _, size := range []int{1, 7, 100, 776} {
		res, err := c.Run(ctx, e, q, size)
		require.NoError(t, err)
		// Node trees cover the whole grid, so every decision is matched and
		// NaN-free.
		assert.Equal(t, whole.Decisions, res.Decisions, "chunk size %d", size)
		assert.Equal(t, whole.Stats.Summary(), res.Stats.Summary(), "chunk size %d", size)
	}
}
