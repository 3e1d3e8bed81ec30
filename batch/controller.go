package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/match"
	"github.com/hupe1980/campie/resolve"
	"github.com/hupe1980/campie/stats"
)

// Result holds the decisions of one Run, aligned 1:1 with the queries.
type Result struct {
	Decisions []resolve.Decision
	// Stats is nil unless statistics were enabled.
	Stats *stats.Stats
	// Chunks is the number of chunks processed.
	Chunks int
	// ChunkSize is the chunk size in effect at the end of the run.
	ChunkSize int
	Policy    resolve.Policy
	Combiner  resolve.Combiner
}

// Controller runs batches. It is safe for concurrent use; concurrent runs
// share the resource controller's budget.
type Controller struct {
	opts options
}

// New returns a Controller.
func New(optFns ...Option) *Controller {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{opts: o}
}

// WorkingSet returns the bytes reserved for a chunk of n queries: the
// bound comparisons of every row and feature in the array precision plus
// the mask words.
func WorkingSet(e *cam.Ensemble, n int) int64 {
	compare := int64(n) * int64(e.TotalRows()) * int64(e.Features()) * int64(e.DType().Size())
	var masks int64
	for i := range e.Len() {
		masks += match.Bytes(n, e.Array(i).Rows())
	}
	return compare + masks
}

// Run resolves every query of q against e in chunks of at most chunkSize
// queries. chunkSize <= 0 processes the batch as one chunk.
//
// Cancellation is observed between chunks and while waiting for memory; a
// chunk that has started runs to completion.
func (c *Controller) Run(ctx context.Context, e *cam.Ensemble, q *cam.Queries, chunkSize int) (*Result, error) {
	o := c.opts

	if q.Features() > 0 && q.Features() != e.Features() {
		return nil, &cam.ShapeMismatchError{Expected: e.Features(), Actual: q.Features(), Query: -1}
	}

	policy := o.policy
	if !o.hasPolicy {
		policy = resolve.DefaultPolicy(e)
	}
	combiner := o.combiner
	if !o.hasCombiner {
		combiner = resolve.DefaultCombiner(e.Task())
	}

	n := q.Len()
	if chunkSize <= 0 || chunkSize > n {
		chunkSize = max(n, 1)
	}

	res := &Result{
		Decisions: make([]resolve.Decision, n),
		ChunkSize: chunkSize,
		Policy:    policy,
		Combiner:  combiner,
	}
	if o.stats {
		res.Stats = stats.New(e, o.bitmaps)
	}
	if n == 0 {
		return res, nil
	}

	if err := o.rc.AcquireRun(ctx); err != nil {
		return nil, err
	}
	defer o.rc.ReleaseRun()

	arrays, err := o.noise.PerturbEnsemble(e)
	if err != nil {
		return nil, err
	}

	if o.strict {
		if need := WorkingSet(arrays, chunkSize); !o.rc.Fits(need) {
			return nil, &CapacityError{ChunkSize: chunkSize, RequiredBytes: need, LimitBytes: o.rc.MemoryLimit()}
		}
	}

	chunk := chunkSize
	for start := 0; start < n; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size := min(chunk, n-start)
		need := WorkingSet(arrays, size)

		if !o.rc.Fits(need) {
			if o.strict || size == 1 {
				return nil, &CapacityError{ChunkSize: size, RequiredBytes: need, LimitBytes: o.rc.MemoryLimit()}
			}
			chunk = max(size/2, 1)
			o.logger.Debug("shrinking chunk", slog.Int("from", size), slog.Int("to", chunk), slog.Int64("required_bytes", need))
			continue
		}

		// The chunk fits the limit; any shortfall is held by other runs.
		if err := o.rc.AcquireMemoryWait(ctx, need); err != nil {
			return nil, err
		}

		began := time.Now()
		err := c.runChunk(arrays, q.Slice(start, start+size), start, policy, combiner, res)
		o.rc.ReleaseMemory(need)
		if err != nil {
			return nil, err
		}

		info := ChunkInfo{Index: res.Chunks, Offset: start, Size: size, Bytes: need, Duration: time.Since(began)}
		o.logger.Debug("chunk done",
			slog.Int("index", info.Index),
			slog.Int("offset", info.Offset),
			slog.Int("size", info.Size),
			slog.Int64("bytes", info.Bytes),
			slog.Duration("duration", info.Duration),
		)
		if o.onChunk != nil {
			o.onChunk(info)
		}

		res.Chunks++
		start += size
	}

	res.ChunkSize = chunk
	return res, nil
}

// runChunk perturbs, matches and resolves one chunk into res at start.
func (c *Controller) runChunk(e *cam.Ensemble, q *cam.Queries, start int, policy resolve.Policy, combiner resolve.Combiner, res *Result) error {
	o := c.opts

	q = o.noise.PerturbQueries(q)

	// Chunks are not interruptible once started.
	masks, err := match.MatchEnsemble(context.Background(), e, q, match.WithWorkers(o.workers))
	if err != nil {
		return err
	}

	ds, err := resolve.Resolve(policy, masks, e, combiner)
	if err != nil {
		return err
	}
	copy(res.Decisions[start:], ds)

	if res.Stats != nil {
		for i, m := range masks {
			res.Stats.AddMask(i, m)
		}
		res.Stats.AddDecisions(ds)
	}
	return nil
}
