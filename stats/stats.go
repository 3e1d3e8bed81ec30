// Package stats accumulates match statistics across chunks.
//
// For every array row it counts how many queries matched the row and,
// when enabled, records the absolute indices of those queries in a roaring
// bitmap. Recording uses the mask offset, so statistics built chunk by
// chunk equal those of a single pass.
package stats

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/match"
	"github.com/hupe1980/campie/resolve"
)

// Stats holds per-row hit counts for every array of an ensemble.
// It is safe for concurrent use.
type Stats struct {
	mu sync.Mutex

	hits    [][]uint64
	queries [][]*roaring.Bitmap // nil unless bitmaps are enabled

	total     uint64
	matched   uint64
	unmatched uint64
}

// New returns empty statistics shaped like e. With bitmaps set, the
// matching query indices of every row are kept as well.
func New(e *cam.Ensemble, bitmaps bool) *Stats {
	s := &Stats{hits: make([][]uint64, e.Len())}
	if bitmaps {
		s.queries = make([][]*roaring.Bitmap, e.Len())
	}
	for i := range e.Len() {
		rows := e.Array(i).Rows()
		s.hits[i] = make([]uint64, rows)
		if bitmaps {
			s.queries[i] = make([]*roaring.Bitmap, rows)
			for r := range rows {
				s.queries[i][r] = roaring.New()
			}
		}
	}
	return s
}

// AddMask records the rows every query of mask matched in array i.
func (s *Stats) AddMask(i int, mask *match.Mask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[i]
	for q := range mask.Queries() {
		abs := uint32(mask.Offset() + q)
		mask.ForEach(q, func(r int) bool {
			hits[r]++
			if s.queries != nil {
				s.queries[i][r].Add(abs)
			}
			return true
		})
	}
}

// AddDecisions counts resolved and unresolved queries.
func (s *Stats) AddDecisions(ds []resolve.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range ds {
		s.total++
		if d.Matched() {
			s.matched++
		} else {
			s.unmatched++
		}
	}
}

// Merge adds the counts of o into s. Both must describe the same ensemble.
// o is copied under its own lock before s is locked, so concurrent merges
// in opposite directions do not deadlock.
func (s *Stats) Merge(o *Stats) {
	if s == o {
		return
	}
	snap := o.clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.hits {
		for r, n := range snap.hits[i] {
			s.hits[i][r] += n
		}
		if s.queries != nil && snap.queries != nil {
			for r, bm := range snap.queries[i] {
				s.queries[i][r].Or(bm)
			}
		}
	}
	s.total += snap.total
	s.matched += snap.matched
	s.unmatched += snap.unmatched
}

// clone returns a deep copy of s taken under its lock.
func (s *Stats) clone() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Stats{
		hits:      make([][]uint64, len(s.hits)),
		total:     s.total,
		matched:   s.matched,
		unmatched: s.unmatched,
	}
	for i, hits := range s.hits {
		c.hits[i] = append([]uint64(nil), hits...)
	}
	if s.queries != nil {
		c.queries = make([][]*roaring.Bitmap, len(s.queries))
		for i, bms := range s.queries {
			c.queries[i] = make([]*roaring.Bitmap, len(bms))
			for r, bm := range bms {
				c.queries[i][r] = bm.Clone()
			}
		}
	}
	return c
}

// Hits returns how many queries matched row r of array i.
func (s *Stats) Hits(i, r int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[i][r]
}

// Queries returns a copy of the query indices that matched row r of array
// i, or nil when bitmaps are disabled.
func (s *Stats) Queries(i, r int) *roaring.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queries == nil {
		return nil
	}
	return s.queries[i][r].Clone()
}

// DeadRows returns the rows of array i no query matched.
func (s *Stats) DeadRows(i int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dead []int
	for r, n := range s.hits[i] {
		if n == 0 {
			dead = append(dead, r)
		}
	}
	return dead
}

// Summary is a point-in-time copy of the totals.
type Summary struct {
	Queries   uint64
	Matched   uint64
	Unmatched uint64
	// RowHits is the sum of hits over all rows of all arrays.
	RowHits uint64
}

// MatchRate returns Matched / Queries, or 0 with no queries.
func (s Summary) MatchRate() float64 {
	if s.Queries == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Queries)
}

// Summary returns the totals.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{Queries: s.total, Matched: s.matched, Unmatched: s.unmatched}
	for _, hits := range s.hits {
		for _, n := range hits {
			sum.RowHits += n
		}
	}
	return sum
}
