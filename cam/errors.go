package cam

import (
	"errors"
	"fmt"

	"github.com/hupe1980/campie/tree"
)

// MalformedTreeError reports invalid leaf constraints at build time.
type MalformedTreeError = tree.MalformedTreeError

var (
	// ErrMalformedTree matches every MalformedTreeError.
	ErrMalformedTree = tree.ErrMalformedTree

	// ErrShapeMismatch matches every ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrPrecisionLoss is returned when the requested dtype cannot represent
	// a threshold exactly, which could change match outcomes.
	ErrPrecisionLoss = errors.New("dtype cannot represent threshold exactly")
)

// ShapeMismatchError reports a query feature count that differs from the
// array's. Query is -1 when the mismatch is not tied to a single query.
type ShapeMismatchError struct {
	Expected int
	Actual   int
	Query    int
}

func (e *ShapeMismatchError) Error() string {
	if e.Query >= 0 {
		return fmt.Sprintf("shape mismatch: query %d has %d features, expected %d", e.Query, e.Actual, e.Expected)
	}
	return fmt.Sprintf("shape mismatch: queries have %d features, expected %d", e.Actual, e.Expected)
}

// Is makes errors.Is(err, ErrShapeMismatch) work.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func malformed(treeIdx, leaf, feature int, format string, args ...any) error {
	return &MalformedTreeError{
		Tree:    treeIdx,
		Leaf:    leaf,
		Feature: feature,
		Reason:  fmt.Sprintf(format, args...),
	}
}
