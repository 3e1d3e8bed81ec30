package campie

import (
	"log/slog"

	"github.com/hupe1980/campie/batch"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/noise"
	"github.com/hupe1980/campie/resolve"
)

type options struct {
	chunkSize        int
	policy           resolve.Policy
	hasPolicy        bool
	combiner         resolve.Combiner
	hasCombiner      bool
	noise            noise.Spec
	dtype            cam.DType
	hasDType         bool
	memoryLimit      int64
	maxRuns          int
	workers          int
	strict           bool
	stats            bool
	bitmaps          bool
	logger           *Logger
	logLevel         *slog.Level
	metricsCollector MetricsCollector
}

// Option configures a Simulator.
type Option func(*options)

func defaultOptions() options {
	return options{
		chunkSize:        batch.DefaultChunkSize,
		noise:            noise.Disabled,
		metricsCollector: NoopMetricsCollector{},
	}
}

// WithChunkSize sets the number of queries processed per chunk.
// Values <= 0 process every batch as a single chunk. Default: 4096.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithPolicy selects how matching rows become a decision.
//
// The default is aggregate for ensembles with more than one array and
// priority otherwise.
func WithPolicy(p resolve.Policy) Option {
	return func(o *options) {
		o.policy = p
		o.hasPolicy = true
	}
}

// WithCombiner selects how per-array outputs are merged in aggregate mode.
// The default follows the task: majority vote for classification, mean for
// regression.
func WithCombiner(c resolve.Combiner) Option {
	return func(o *options) {
		o.combiner = c
		o.hasCombiner = true
	}
}

// WithNoise enables the analog noise and quantization model.
func WithNoise(spec noise.Spec) Option {
	return func(o *options) {
		o.noise = spec
	}
}

// WithDType sets the precision bounds are stored in when building from a
// model. Default: the model's precision.
func WithDType(d cam.DType) Option {
	return func(o *options) {
		o.dtype = d
		o.hasDType = true
	}
}

// WithMemoryLimit bounds the bytes reserved by in-flight chunks.
// 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMaxConcurrentRuns bounds the number of Run calls executing at once.
// 0 means unlimited.
func WithMaxConcurrentRuns(n int) Option {
	return func(o *options) {
		o.maxRuns = n
	}
}

// WithWorkers bounds the goroutines matching one chunk.
// Default: GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithStrictChunking makes a chunk that exceeds the memory limit fail with
// a CapacityError instead of being split.
func WithStrictChunking() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithStats collects per-row hit counts. With bitmaps, each row also keeps a
// roaring bitmap of the queries that matched it.
func WithStats(bitmaps bool) Option {
	return func(o *options) {
		o.stats = true
		o.bitmaps = bitmaps
	}
}

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLogLevel creates a text logger to stderr with the given level.
// It is ignored when WithLogger is also given.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logLevel = &level
	}
}

// WithMetricsCollector sets the metrics sink. Default: NoopMetricsCollector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
