package campie

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/hupe1980/campie/batch"
	"github.com/hupe1980/campie/blobstore"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/internal/resource"
	"github.com/hupe1980/campie/noise"
	"github.com/hupe1980/campie/persistence"
	"github.com/hupe1980/campie/resolve"
	"github.com/hupe1980/campie/tree"
)

// Simulator runs query batches against a CAM ensemble.
//
// A Simulator is immutable after construction and safe for concurrent use.
// Concurrent runs share the memory budget set by WithMemoryLimit.
type Simulator struct {
	ensemble *cam.Ensemble
	opts     options
	noise    *noise.Model
	rc       *resource.Controller
	logger   *Logger
	metrics  MetricsCollector
}

// New wraps an existing ensemble.
func New(e *cam.Ensemble, optFns ...Option) (*Simulator, error) {
	if e == nil {
		return nil, errors.New("campie: nil ensemble")
	}
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return newSimulator(e, o)
}

func newSimulator(e *cam.Ensemble, o options) (*Simulator, error) {
	nm, err := noise.New(o.noise)
	if err != nil {
		return nil, err
	}
	if o.hasPolicy {
		if _, err := resolve.ParsePolicy(o.policy.String()); err != nil {
			return nil, err
		}
	}
	if o.hasCombiner {
		if _, err := resolve.ParseCombiner(o.combiner.String()); err != nil {
			return nil, err
		}
	}

	s := &Simulator{
		ensemble: e,
		opts:     o,
		noise:    nm,
		logger:   resolveLogger(o),
		metrics:  o.metricsCollector,
	}
	if o.memoryLimit > 0 || o.maxRuns > 0 {
		runs := o.maxRuns
		if runs <= 0 {
			runs = runtime.GOMAXPROCS(0)
		}
		s.rc = resource.NewController(resource.Config{
			MemoryLimitBytes:  o.memoryLimit,
			MaxConcurrentRuns: int64(runs),
		})
	}
	if e.Name() != "" {
		s.logger = s.logger.WithModel(e.Name())
	}
	return s, nil
}

func resolveLogger(o options) *Logger {
	switch {
	case o.logger != nil:
		return o.logger
	case o.logLevel != nil:
		return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *o.logLevel}))
	default:
		return NoopLogger()
	}
}

// Build compiles a tree model into CAM arrays and wraps them.
func Build(ctx context.Context, m *tree.Model, optFns ...Option) (*Simulator, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	logger := resolveLogger(o)

	var buildOpts []cam.BuildOption
	if o.hasDType {
		buildOpts = append(buildOpts, cam.WithDType(o.dtype))
	}

	began := time.Now()
	e, err := cam.Build(m, buildOpts...)
	d := time.Since(began)
	if err != nil {
		logger.LogBuild(ctx, 0, 0, d, err)
		o.metricsCollector.RecordBuild(0, 0, d, err)
		return nil, err
	}
	logger.WithModel(e.Name()).LogBuild(ctx, e.Len(), e.TotalRows(), d, nil)
	o.metricsCollector.RecordBuild(e.Len(), e.TotalRows(), d, nil)

	return newSimulator(e, o)
}

// Load reads an ensemble saved with Save and wraps it.
func Load(ctx context.Context, store blobstore.Store, name string, persistOpts []persistence.Option, optFns ...Option) (*Simulator, error) {
	e, err := persistence.Load(ctx, store, name, persistOpts...)
	if err != nil {
		return nil, err
	}
	return New(e, optFns...)
}

// Save writes the ensemble to store under name.
func (s *Simulator) Save(ctx context.Context, store blobstore.Store, name string, opts ...persistence.Option) error {
	err := persistence.Save(ctx, store, name, s.ensemble, opts...)
	s.logger.LogSave(ctx, name, err)
	return err
}

// WorkingSetBytes returns the memory a chunk of n queries reserves against
// e. Use it to size WithMemoryLimit.
func WorkingSetBytes(e *cam.Ensemble, n int) int64 {
	return batch.WorkingSet(e, n)
}

// Ensemble returns the simulated ensemble.
func (s *Simulator) Ensemble() *cam.Ensemble { return s.ensemble }

// Features returns the number of features a query must have.
func (s *Simulator) Features() int { return s.ensemble.Features() }

// MemoryUsage returns the bytes currently reserved by in-flight chunks.
func (s *Simulator) MemoryUsage() int64 { return s.rc.MemoryUsage() }

// PeakMemoryUsage returns the highest reservation seen so far.
func (s *Simulator) PeakMemoryUsage() int64 { return s.rc.PeakMemoryUsage() }

// Run resolves every query in q. Decisions are aligned 1:1 with queries and
// do not depend on the chunk size.
func (s *Simulator) Run(ctx context.Context, q *cam.Queries) (*batch.Result, error) {
	o := s.opts

	batchOpts := []batch.Option{
		batch.WithResourceController(s.rc),
		batch.WithWorkers(o.workers),
		batch.WithStrict(o.strict),
		batch.WithNoise(s.noise),
		batch.WithLogger(s.logger.Logger),
		batch.WithChunkHook(func(info batch.ChunkInfo) {
			s.logger.LogChunk(ctx, info.Index, info.Offset, info.Size, info.Bytes, info.Duration)
			s.metrics.RecordChunk(info.Size, info.Bytes, info.Duration)
		}),
	}
	if o.hasPolicy {
		batchOpts = append(batchOpts, batch.WithPolicy(o.policy))
	}
	if o.hasCombiner {
		batchOpts = append(batchOpts, batch.WithCombiner(o.combiner))
	}
	if o.stats {
		batchOpts = append(batchOpts, batch.WithStats(o.bitmaps))
	}

	began := time.Now()
	res, err := batch.New(batchOpts...).Run(ctx, s.ensemble, q, o.chunkSize)
	d := time.Since(began)

	if err != nil {
		s.logger.LogRun(ctx, q.Len(), 0, o.chunkSize, d, err)
		s.metrics.RecordRun(q.Len(), 0, d, err)
		return nil, err
	}

	matched := 0
	for _, dec := range res.Decisions {
		if dec.Matched() {
			matched++
		}
	}
	s.logger.LogRun(ctx, q.Len(), res.Chunks, res.ChunkSize, d, nil)
	s.metrics.RecordRun(q.Len(), matched, d, nil)
	return res, nil
}

// Predict runs rows of feature values and returns one output per row.
// Unmatched rows yield NaN under the priority and aggregate policies and 0
// under reduce.
func (s *Simulator) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	q, err := cam.NewQueries(rows)
	if err != nil {
		return nil, err
	}
	res, err := s.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(res.Decisions))
	for i, d := range res.Decisions {
		out[i] = d.Value
	}
	return out, nil
}
