package match

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/internal/kernel"
)

// Match evaluates every query of q against every row of a.
//
// The shape is checked before any comparison. Queries are split into
// blocks evaluated by at most WithWorkers goroutines; each goroutine writes
// only its own queries' words, so the result does not depend on
// scheduling.
func Match(ctx context.Context, a *cam.Array, q *cam.Queries, opts ...Option) (*Mask, error) {
	if err := cam.CheckShape(a, q); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m := NewMask(q.Len(), a.Rows())
	m.offset = q.Offset()

	if q.Len() == 0 {
		return m, nil
	}

	var g errgroup.Group
	g.SetLimit(o.workers)

	for start := 0; start < q.Len(); start += o.blockSize {
		end := min(start+o.blockSize, q.Len())
		g.Go(func() error {
			scratch := make([]uint64, m.words)
			for i := start; i < end; i++ {
				matchOne(a, q.Row(i), m.Words(i), scratch)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// matchOne fills dst with the rows matching query. scratch holds one
// column result.
func matchOne(a *cam.Array, query []float64, dst, scratch []uint64) {
	kernel.FillOnes(dst, a.Rows())

	for f, v := range query {
		if a.DType() == cam.Float32 {
			lo, hi := a.Columns32(f)
			kernel.RangeWordsF32(lo, hi, float32(v), scratch)
		} else {
			lo, hi := a.Columns64(f)
			kernel.RangeWordsF64(lo, hi, v, scratch)
		}
		if wild := a.WildcardWords(f); wild != nil {
			kernel.OrWords(scratch, wild)
		}
		kernel.AndWords(dst, scratch)

		if !kernel.AnySet(dst) {
			return
		}
	}
}

// MatchEnsemble evaluates q against every array of e. Masks are returned
// in array order.
func MatchEnsemble(ctx context.Context, e *cam.Ensemble, q *cam.Queries, opts ...Option) ([]*Mask, error) {
	masks := make([]*Mask, e.Len())
	for i := range e.Len() {
		m, err := Match(ctx, e.Array(i), q, opts...)
		if err != nil {
			return nil, err
		}
		masks[i] = m
	}
	return masks, nil
}
