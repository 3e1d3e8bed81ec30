package batch

import (
	"log/slog"
	"time"

	"github.com/hupe1980/campie/internal/resource"
	"github.com/hupe1980/campie/noise"
	"github.com/hupe1980/campie/resolve"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 4096

// ChunkInfo describes one completed chunk.
type ChunkInfo struct {
	Index    int
	Offset   int
	Size     int
	Bytes    int64
	Duration time.Duration
}

type options struct {
	rc          *resource.Controller
	workers     int
	strict      bool
	stats       bool
	bitmaps     bool
	noise       *noise.Model
	policy      resolve.Policy
	hasPolicy   bool
	combiner    resolve.Combiner
	hasCombiner bool
	logger      *slog.Logger
	onChunk     func(ChunkInfo)
}

// Option configures a Controller.
type Option func(*options)

// WithResourceController sets the memory governor. Without one, memory is
// unlimited and untracked.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithWorkers bounds the goroutines matching one chunk.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithStrict disables adaptive chunk shrinking.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithStats enables per-row hit statistics. With bitmaps set, the
// matching query indices of every row are kept too.
func WithStats(bitmaps bool) Option {
	return func(o *options) {
		o.stats = true
		o.bitmaps = bitmaps
	}
}

// WithNoise perturbs queries and bounds with m.
func WithNoise(m *noise.Model) Option {
	return func(o *options) {
		o.noise = m
	}
}

// WithPolicy fixes the resolution policy. The default depends on the
// ensemble size (see resolve.DefaultPolicy).
func WithPolicy(p resolve.Policy) Option {
	return func(o *options) {
		o.policy = p
		o.hasPolicy = true
	}
}

// WithCombiner fixes the aggregate combiner. The default depends on the
// task (see resolve.DefaultCombiner).
func WithCombiner(c resolve.Combiner) Option {
	return func(o *options) {
		o.combiner = c
		o.hasCombiner = true
	}
}

// WithLogger sets the logger for chunk events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithChunkHook registers fn to be called after every chunk.
func WithChunkHook(fn func(ChunkInfo)) Option {
	return func(o *options) {
		o.onChunk = fn
	}
}
