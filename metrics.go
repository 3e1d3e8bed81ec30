package campie

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after an ensemble is built. arrays and rows
	// describe the result; both are zero when err is non-nil.
	RecordBuild(arrays, rows int, duration time.Duration, err error)

	// RecordRun is called after each batch run.
	RecordRun(queries, matched int, duration time.Duration, err error)

	// RecordChunk is called after each processed chunk.
	RecordChunk(size int, bytes int64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRun(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordChunk(int, int64, time.Duration)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount     atomic.Int64
	BuildErrors    atomic.Int64
	RowsBuilt      atomic.Int64
	RunCount       atomic.Int64
	RunErrors      atomic.Int64
	RunTotalNanos  atomic.Int64
	QueryCount     atomic.Int64
	MatchedCount   atomic.Int64
	ChunkCount     atomic.Int64
	ChunkBytes     atomic.Int64
	ChunkMaxBytes  atomic.Int64
	ChunkTotalNano atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(arrays, rows int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.RowsBuilt.Add(int64(rows))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(queries, matched int, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
		return
	}
	b.QueryCount.Add(int64(queries))
	b.MatchedCount.Add(int64(matched))
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(size int, bytes int64, duration time.Duration) {
	b.ChunkCount.Add(1)
	b.ChunkBytes.Add(bytes)
	b.ChunkTotalNano.Add(duration.Nanoseconds())
	for {
		cur := b.ChunkMaxBytes.Load()
		if bytes <= cur || b.ChunkMaxBytes.CompareAndSwap(cur, bytes) {
			return
		}
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		RowsBuilt:     b.RowsBuilt.Load(),
		RunCount:      b.RunCount.Load(),
		RunErrors:     b.RunErrors.Load(),
		RunAvgNanos:   avg(b.RunTotalNanos.Load(), b.RunCount.Load()),
		QueryCount:    b.QueryCount.Load(),
		MatchedCount:  b.MatchedCount.Load(),
		ChunkCount:    b.ChunkCount.Load(),
		ChunkMaxBytes: b.ChunkMaxBytes.Load(),
		ChunkAvgNanos: avg(b.ChunkTotalNano.Load(), b.ChunkCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	RowsBuilt     int64
	RunCount      int64
	RunErrors     int64
	RunAvgNanos   int64
	QueryCount    int64
	MatchedCount  int64
	ChunkCount    int64
	ChunkMaxBytes int64
	ChunkAvgNanos int64
}
