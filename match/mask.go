package match

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/campie/internal/kernel"
)

// Mask is a boolean (queries x rows) matrix. Each query owns a contiguous
// run of uint64 words; bit r of a query's words is set when row r matched.
type Mask struct {
	queries int
	rows    int
	words   int
	offset  int
	bits    []uint64
}

// NewMask returns an all-false mask.
func NewMask(queries, rows int) *Mask {
	words := kernel.WordsFor(rows)
	return &Mask{
		queries: queries,
		rows:    rows,
		words:   words,
		bits:    make([]uint64, queries*words),
	}
}

// Bytes returns the memory a mask of the given shape occupies.
func Bytes(queries, rows int) int64 {
	return int64(queries) * int64(kernel.WordsFor(rows)) * 8
}

// Queries returns the number of queries.
func (m *Mask) Queries() int { return m.queries }

// Rows returns the number of rows.
func (m *Mask) Rows() int { return m.rows }

// Offset returns the absolute index of query 0 in the original batch.
func (m *Mask) Offset() int { return m.offset }

// Words returns the packed row words of query q. The slice is shared.
func (m *Mask) Words(q int) []uint64 {
	return m.bits[q*m.words : (q+1)*m.words : (q+1)*m.words]
}

// Get reports whether query q matched row r.
func (m *Mask) Get(q, r int) bool {
	return m.bits[q*m.words+r>>6]&(1<<(uint(r)&63)) != 0
}

// Set marks row r as matched for query q.
func (m *Mask) Set(q, r int) {
	m.bits[q*m.words+r>>6] |= 1 << (uint(r) & 63)
}

// Any reports whether query q matched any row.
func (m *Mask) Any(q int) bool {
	return kernel.AnySet(m.Words(q))
}

// First returns the lowest matching row of query q, or -1.
func (m *Mask) First(q int) int {
	return kernel.FirstSet(m.Words(q))
}

// Count returns the number of rows query q matched.
func (m *Mask) Count(q int) int {
	return kernel.PopcountWords(m.Words(q))
}

// ForEach calls fn for every matching row of query q in ascending order
// until fn returns false.
func (m *Mask) ForEach(q int, fn func(row int) bool) {
	kernel.ForEachSet(m.Words(q), fn)
}

// Bitmap exports the matching rows of query q as a roaring bitmap.
func (m *Mask) Bitmap(q int) *roaring.Bitmap {
	bm := roaring.New()
	m.ForEach(q, func(r int) bool {
		bm.Add(uint32(r))
		return true
	})
	return bm
}

// Equal reports whether two masks have the same shape and bits.
func (m *Mask) Equal(o *Mask) bool {
	if m.queries != o.queries || m.rows != o.rows {
		return false
	}
	for i, w := range m.bits {
		if o.bits[i] != w {
			return false
		}
	}
	return true
}
