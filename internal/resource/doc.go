// Package resource governs the resources a simulation may consume.
//
// The Controller manages three resource types:
//
//   - Memory: chunk working sets reserved by the batch controller (fail-fast)
//   - Runs: concurrent simulation runs sharing one device budget (semaphore)
//   - IO: byte rate for persisting and loading ensembles (token bucket)
//
// # Memory
//
// Memory is reserved with a weighted semaphore for the hard limit and
// tracked with an atomic counter. TryAcquireMemory never blocks; the caller
// decides whether to shrink its request or fail:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(need); err != nil {
//	    // ErrMemoryLimitExceeded - shrink the chunk or give up
//	}
//	defer rc.ReleaseMemory(need)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This keeps limits optional without nil checks at every call site.
package resource
