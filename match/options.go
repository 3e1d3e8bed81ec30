package match

import "runtime"

// DefaultBlockSize is the number of queries one goroutine evaluates.
const DefaultBlockSize = 64

type options struct {
	workers   int
	blockSize int
}

// Option configures Match.
type Option func(*options)

// WithWorkers bounds the goroutines evaluating one batch.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithBlockSize sets how many queries a goroutine evaluates per task.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.blockSize <= 0 {
		o.blockSize = DefaultBlockSize
	}
	return o
}
