package batch

import (
	"errors"
	"fmt"
)

// ErrCapacity matches every CapacityError.
var ErrCapacity = errors.New("chunk exceeds memory capacity")

// CapacityError reports a chunk whose working set could not be reserved.
type CapacityError struct {
	ChunkSize     int
	RequiredBytes int64
	LimitBytes    int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("chunk of %d queries needs %d bytes, limit is %d bytes", e.ChunkSize, e.RequiredBytes, e.LimitBytes)
}

// Is makes errors.Is(err, ErrCapacity) work.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}
