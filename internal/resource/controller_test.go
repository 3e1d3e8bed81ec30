package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(90), c.PeakMemoryUsage())
}

func TestController_MemoryWait(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.AcquireMemory(80))

	done := make(chan error, 1)
	go func() { done <- c.AcquireMemoryWait(context.Background(), 50) }()

	select {
	case err := <-done:
		t.Fatalf("acquired while the budget was held: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	c.ReleaseMemory(80)
	require.NoError(t, <-done)
	assert.Equal(t, int64(50), c.MemoryUsage())
	assert.Equal(t, int64(80), c.PeakMemoryUsage())
}

func TestController_MemoryWaitTooLarge(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	err := c.AcquireMemoryWait(context.Background(), 101)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
}

func TestController_MemoryWaitCanceled(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.AcquireMemory(100))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.AcquireMemoryWait(ctx, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(100), c.MemoryUsage())
}

func TestController_Fits(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	assert.True(t, c.Fits(100))
	assert.False(t, c.Fits(101))

	unlimited := NewController(Config{})
	assert.True(t, unlimited.Fits(1<<40))
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	assert.NoError(t, c.AcquireMemoryWait(context.Background(), 10))
	assert.True(t, c.Fits(10))
	assert.NoError(t, c.AcquireRun(context.Background()))
	assert.True(t, c.TryAcquireRun())
	assert.NoError(t, c.AcquireIO(context.Background(), 10))
	c.ReleaseMemory(10) // Should not panic
	c.ReleaseRun()
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestController_Runs(t *testing.T) {
	c := NewController(Config{MaxConcurrentRuns: 1})
	require.NoError(t, c.AcquireRun(context.Background()))

	assert.False(t, c.TryAcquireRun())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireRun(ctx))

	c.ReleaseRun()
	assert.True(t, c.TryAcquireRun())
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})
	ctx := context.Background()

	assert.NoError(t, c.AcquireIO(ctx, 100))

	c2 := NewController(Config{})
	assert.NoError(t, c2.AcquireIO(ctx, 1000000))
	assert.True(t, c2.TryAcquireIO(1000000))
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, c)

	n, err := w.Write([]byte("campie"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "campie", buf.String())
}
