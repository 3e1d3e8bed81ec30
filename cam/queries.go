package cam

// Queries is a dense row-major batch of query vectors.
//
// Slice returns views that share storage and remember their absolute
// offset in the original batch, so per-query state keyed by absolute index
// (noise streams, statistics) is independent of how a batch is chunked.
type Queries struct {
	data     []float64
	n        int
	features int
	offset   int
}

// NewQueries copies a rectangular batch. A row whose length differs from
// the first row's yields a ShapeMismatchError naming that row.
func NewQueries(rows [][]float64) (*Queries, error) {
	if len(rows) == 0 {
		return &Queries{}, nil
	}
	features := len(rows[0])
	data := make([]float64, 0, len(rows)*features)
	for i, row := range rows {
		if len(row) != features {
			return nil, &ShapeMismatchError{Expected: features, Actual: len(row), Query: i}
		}
		data = append(data, row...)
	}
	return &Queries{data: data, n: len(rows), features: features}, nil
}

// QueriesFromFlat wraps a row-major buffer without copying.
func QueriesFromFlat(data []float64, features int) (*Queries, error) {
	if features <= 0 {
		if len(data) == 0 {
			return &Queries{}, nil
		}
		return nil, &ShapeMismatchError{Expected: 1, Actual: features, Query: -1}
	}
	if len(data)%features != 0 {
		return nil, &ShapeMismatchError{Expected: features, Actual: len(data) % features, Query: len(data) / features}
	}
	return &Queries{data: data, n: len(data) / features, features: features}, nil
}

// Len returns the number of queries.
func (q *Queries) Len() int {
	if q == nil {
		return 0
	}
	return q.n
}

// Features returns the number of features per query.
func (q *Queries) Features() int {
	if q == nil {
		return 0
	}
	return q.features
}

// Offset returns the absolute index of query 0 in the batch this view was
// sliced from.
func (q *Queries) Offset() int { return q.offset }

// Row returns query i. The slice is shared.
func (q *Queries) Row(i int) []float64 {
	return q.data[i*q.features : (i+1)*q.features : (i+1)*q.features]
}

// At returns feature f of query i.
func (q *Queries) At(i, f int) float64 {
	return q.data[i*q.features+f]
}

// Slice returns the view [start, end) sharing storage with q.
func (q *Queries) Slice(start, end int) *Queries {
	return &Queries{
		data:     q.data[start*q.features : end*q.features],
		n:        end - start,
		features: q.features,
		offset:   q.offset + start,
	}
}

// Map returns a copy whose values are fn(absolute query index, feature, v).
func (q *Queries) Map(fn func(query, feature int, v float64) float64) *Queries {
	out := &Queries{
		data:     make([]float64, len(q.data)),
		n:        q.n,
		features: q.features,
		offset:   q.offset,
	}
	for i := range q.n {
		base := i * q.features
		for f := range q.features {
			out.data[base+f] = fn(q.offset+i, f, q.data[base+f])
		}
	}
	return out
}

// CheckShape returns a ShapeMismatchError unless q has exactly
// a.Features() features. A batch without a feature count (no rows and no
// declared width) fits any array.
func CheckShape(a *Array, q *Queries) error {
	if q.Features() > 0 && q.Features() != a.Features() {
		return &ShapeMismatchError{Expected: a.Features(), Actual: q.Features(), Query: -1}
	}
	return nil
}
