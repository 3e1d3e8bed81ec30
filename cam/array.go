package cam

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/campie/internal/kernel"
)

// Bound is one feature range of one row.
type Bound struct {
	Lower    float64
	Upper    float64
	Wildcard bool
}

// Wildcard returns the "don't care" bound.
func Wildcard() Bound {
	return Bound{Lower: math.Inf(-1), Upper: math.Inf(1), Wildcard: true}
}

// Range returns the inclusive bound [lo, hi].
func Range(lo, hi float64) Bound {
	return Bound{Lower: lo, Upper: hi}
}

// Contains reports whether v lies in the bound. Wildcards contain every
// value, NaN included.
func (b Bound) Contains(v float64) bool {
	return b.Wildcard || (b.Lower <= v && v <= b.Upper)
}

// Array is an immutable CAM array of shape (rows, features, 2).
type Array struct {
	rows     int
	features int
	dtype    DType

	// Column-major bounds: lo64[f][r]. Only the slices matching dtype are set.
	lo64, hi64 [][]float64
	lo32, hi32 [][]float32

	// wild[f] holds packed row bits set where feature f is a wildcard.
	// nil when the column has no wildcard.
	wild [][]uint64

	values   []float64
	priority []int32
	leafIDs  []int32
}

// NewArray builds an array directly from rows of bounds. Row order is the
// priority order and the row index doubles as leaf id.
func NewArray(bounds [][]Bound, values []float64, dtype DType) (*Array, error) {
	if len(bounds) == 0 {
		return nil, malformed(-1, -1, -1, "array has no rows")
	}
	features := len(bounds[0])
	if features == 0 {
		return nil, malformed(-1, -1, -1, "array has no features")
	}
	if values != nil && len(values) != len(bounds) {
		return nil, malformed(-1, -1, -1, "%d values for %d rows", len(values), len(bounds))
	}

	a := newArray(len(bounds), features, dtype)
	for r, row := range bounds {
		if len(row) != features {
			return nil, &ShapeMismatchError{Expected: features, Actual: len(row), Query: -1}
		}
		for f, b := range row {
			if err := checkBound(b, dtype); err != nil {
				return nil, boundError(-1, r, f, err)
			}
			a.set(r, f, b)
		}
		if values != nil {
			a.values[r] = values[r]
		}
		a.priority[r] = int32(r)
		a.leafIDs[r] = int32(r)
	}
	return a, nil
}

// RestoreArray rebuilds an array from stored rows. Rows are already in
// priority order; leafIDs maps each row back to its tree leaf.
func RestoreArray(bounds [][]Bound, values []float64, leafIDs []int, dtype DType) (*Array, error) {
	if len(leafIDs) != len(bounds) {
		return nil, malformed(-1, -1, -1, "%d leaf ids for %d rows", len(leafIDs), len(bounds))
	}
	a, err := NewArray(bounds, values, dtype)
	if err != nil {
		return nil, err
	}
	for r, id := range leafIDs {
		a.leafIDs[r] = int32(id)
	}
	return a, nil
}

func newArray(rows, features int, dtype DType) *Array {
	a := &Array{
		rows:     rows,
		features: features,
		dtype:    dtype,
		wild:     make([][]uint64, features),
		values:   make([]float64, rows),
		priority: make([]int32, rows),
		leafIDs:  make([]int32, rows),
	}
	if dtype == Float32 {
		a.lo32 = make([][]float32, features)
		a.hi32 = make([][]float32, features)
		for f := range features {
			a.lo32[f] = make([]float32, rows)
			a.hi32[f] = make([]float32, rows)
		}
	} else {
		a.lo64 = make([][]float64, features)
		a.hi64 = make([][]float64, features)
		for f := range features {
			a.lo64[f] = make([]float64, rows)
			a.hi64[f] = make([]float64, rows)
		}
	}
	return a
}

// checkBound validates a single non-wildcard bound.
func checkBound(b Bound, dtype DType) error {
	if b.Wildcard {
		return nil
	}
	switch {
	case math.IsNaN(b.Lower) || math.IsNaN(b.Upper):
		return errors.New("NaN bound")
	case math.IsInf(b.Lower, 1):
		return errors.New("lower bound is +Inf")
	case math.IsInf(b.Upper, -1):
		return errors.New("upper bound is -Inf")
	case b.Lower > b.Upper:
		return fmt.Errorf("lower %v > upper %v", b.Lower, b.Upper)
	case !dtype.representable(b.Lower) || !dtype.representable(b.Upper):
		return fmt.Errorf("%w: [%v, %v] in %s", ErrPrecisionLoss, b.Lower, b.Upper, dtype)
	}
	return nil
}

// boundError keeps ErrPrecisionLoss matchable and reports everything else
// as a MalformedTreeError.
func boundError(treeIdx, leaf, f int, err error) error {
	if errors.Is(err, ErrPrecisionLoss) {
		return fmt.Errorf("leaf %d feature %d: %w", leaf, f, err)
	}
	return malformed(treeIdx, leaf, f, "%s", err)
}

func (a *Array) set(r, f int, b Bound) {
	if b.Wildcard {
		if a.wild[f] == nil {
			a.wild[f] = make([]uint64, kernel.WordsFor(a.rows))
		}
		a.wild[f][r>>6] |= 1 << (uint(r) & 63)
		b.Lower, b.Upper = math.Inf(-1), math.Inf(1)
	}
	if a.dtype == Float32 {
		a.lo32[f][r] = float32(b.Lower)
		a.hi32[f][r] = float32(b.Upper)
	} else {
		a.lo64[f][r] = b.Lower
		a.hi64[f][r] = b.Upper
	}
}

// Rows returns the number of rows.
func (a *Array) Rows() int { return a.rows }

// Features returns the number of features.
func (a *Array) Features() int { return a.features }

// DType returns the storage precision.
func (a *Array) DType() DType { return a.dtype }

// Bound returns the bound of row r on feature f.
func (a *Array) Bound(r, f int) Bound {
	if a.IsWildcard(r, f) {
		return Wildcard()
	}
	if a.dtype == Float32 {
		return Range(float64(a.lo32[f][r]), float64(a.hi32[f][r]))
	}
	return Range(a.lo64[f][r], a.hi64[f][r])
}

// IsWildcard reports whether row r does not care about feature f.
func (a *Array) IsWildcard(r, f int) bool {
	w := a.wild[f]
	return w != nil && w[r>>6]&(1<<(uint(r)&63)) != 0
}

// Value returns the output value (leaf value or class label) of row r.
func (a *Array) Value(r int) float64 { return a.values[r] }

// Priority returns the priority rank of row r; rank 0 wins.
// Rows are stored in rank order, so Priority(r) == r for built arrays.
func (a *Array) Priority(r int) int { return int(a.priority[r]) }

// LeafID returns the index of the tree leaf row r was built from.
func (a *Array) LeafID(r int) int { return int(a.leafIDs[r]) }

// Columns64 returns the lower and upper bound columns of feature f for a
// Float64 array. The slices are shared and must not be modified.
func (a *Array) Columns64(f int) (lower, upper []float64) {
	return a.lo64[f], a.hi64[f]
}

// Columns32 returns the lower and upper bound columns of feature f for a
// Float32 array. The slices are shared and must not be modified.
func (a *Array) Columns32(f int) (lower, upper []float32) {
	return a.lo32[f], a.hi32[f]
}

// WildcardWords returns the packed wildcard bits of feature f, or nil when
// no row is a wildcard on f. The slice is shared and must not be modified.
func (a *Array) WildcardWords(f int) []uint64 {
	return a.wild[f]
}

// WildcardRows returns the number of rows that are wildcards on every feature.
func (a *Array) WildcardRows() int {
	words := make([]uint64, kernel.WordsFor(a.rows))
	kernel.FillOnes(words, a.rows)
	for f := range a.features {
		if a.wild[f] == nil {
			return 0
		}
		kernel.AndWords(words, a.wild[f])
	}
	return kernel.PopcountWords(words)
}

// SizeBytes returns the memory held by the bound columns.
func (a *Array) SizeBytes() int64 {
	return int64(a.rows) * int64(a.features) * 2 * int64(a.dtype.Size())
}

// Derive returns a new array whose bounds are produced by fn. For every
// feature fn receives float64 copies of the lower and upper columns and the
// column's wildcard words (nil if none) and may modify the copies. Wildcard
// rows are restored afterwards and the result is validated like any built
// array. The receiver is never modified.
func (a *Array) Derive(fn func(feature int, lower, upper []float64, wildcard []uint64)) (*Array, error) {
	out := newArray(a.rows, a.features, a.dtype)
	copy(out.values, a.values)
	copy(out.priority, a.priority)
	copy(out.leafIDs, a.leafIDs)

	lower := make([]float64, a.rows)
	upper := make([]float64, a.rows)

	for f := range a.features {
		for r := range a.rows {
			b := a.Bound(r, f)
			lower[r], upper[r] = b.Lower, b.Upper
		}

		fn(f, lower, upper, a.wild[f])

		for r := range a.rows {
			if a.IsWildcard(r, f) {
				out.set(r, f, Wildcard())
				continue
			}
			b := Range(a.dtype.Round(lower[r]), a.dtype.Round(upper[r]))
			if err := checkBound(b, a.dtype); err != nil {
				return nil, boundError(-1, a.LeafID(r), f, err)
			}
			out.set(r, f, b)
		}
	}
	return out, nil
}
