package resolve

import (
	"fmt"
	"math"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/match"
	"github.com/hupe1980/campie/tree"
)

// Priority resolves each query of mask to its first matching row of a.
// Class is left at NoMatch; use Resolve to label classification outputs.
func Priority(mask *match.Mask, a *cam.Array) []Decision {
	out := make([]Decision, mask.Queries())
	for q := range out {
		r := mask.First(q)
		if r < 0 {
			out[q] = noMatch()
			continue
		}
		out[q] = Decision{
			Array:        0,
			Row:          r,
			Value:        a.Value(r),
			Class:        NoMatch,
			Contributing: 1,
			Confidence:   1,
		}
	}
	return out
}

// Reduce sums the values of every matching row of a per query. Row is the
// first matching row; a query without matches has Value 0.
func Reduce(mask *match.Mask, a *cam.Array) []Decision {
	out := make([]Decision, mask.Queries())
	for q := range out {
		d := Decision{Array: NoMatch, Row: NoMatch, Class: NoMatch}
		mask.ForEach(q, func(r int) bool {
			if d.Row == NoMatch {
				d.Array, d.Row = 0, r
				d.Contributing, d.Confidence = 1, 1
			}
			d.Value += a.Value(r)
			return true
		})
		out[q] = d
	}
	return out
}

// Resolve applies policy p to the masks of every array of e.
// c is only used by PolicyAggregate.
func Resolve(p Policy, masks []*match.Mask, e *cam.Ensemble, c Combiner) ([]Decision, error) {
	if err := checkMasks(masks, e); err != nil {
		return nil, err
	}

	switch p {
	case PolicyPriority:
		out := stackedPriority(masks, e)
		if e.Task() == tree.Classification {
			for i := range out {
				if out[i].Matched() {
					out[i].Class = int(out[i].Value)
				}
			}
		}
		return out, nil
	case PolicyReduce:
		return stackedReduce(masks, e), nil
	case PolicyAggregate:
		return Aggregate(masks, e, c)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, p)
	}
}

func checkMasks(masks []*match.Mask, e *cam.Ensemble) error {
	if len(masks) != e.Len() {
		return fmt.Errorf("%w: %d masks for %d arrays", cam.ErrShapeMismatch, len(masks), e.Len())
	}
	for i, m := range masks {
		if m.Rows() != e.Array(i).Rows() {
			return fmt.Errorf("%w: mask %d has %d rows, array has %d", cam.ErrShapeMismatch, i, m.Rows(), e.Array(i).Rows())
		}
		if m.Queries() != masks[0].Queries() {
			return fmt.Errorf("%w: mask %d has %d queries, expected %d", cam.ErrShapeMismatch, i, m.Queries(), masks[0].Queries())
		}
	}
	return nil
}

// stackedPriority treats the arrays as one array with array 0's rows first.
func stackedPriority(masks []*match.Mask, e *cam.Ensemble) []Decision {
	out := make([]Decision, masks[0].Queries())
	for q := range out {
		d := noMatch()
		for i, m := range masks {
			if !m.Any(q) {
				continue
			}
			d.Contributing++
			if d.Row != NoMatch {
				continue
			}
			r := m.First(q)
			d.Array, d.Row, d.Value, d.Confidence = i, r, e.Array(i).Value(r), 1
		}
		out[q] = d
	}
	return out
}

func stackedReduce(masks []*match.Mask, e *cam.Ensemble) []Decision {
	out := make([]Decision, masks[0].Queries())
	for q := range out {
		d := Decision{Array: NoMatch, Row: NoMatch, Class: NoMatch}
		for i, m := range masks {
			a := e.Array(i)
			matched := false
			m.ForEach(q, func(r int) bool {
				if d.Row == NoMatch {
					d.Array, d.Row = i, r
				}
				matched = true
				d.Value += a.Value(r)
				return true
			})
			if matched {
				d.Contributing++
			}
		}
		if d.Contributing > 0 {
			d.Confidence = float64(d.Contributing) / float64(len(masks))
		}
		out[q] = d
	}
	return out
}

// Aggregate priority resolves every array and merges the per-array values
// with c. Arrays without a match for a query do not contribute; a query no
// array matched resolves to NoMatch with a NaN value. Weighted vote
// confidence is the winning weight over the sum of absolute weights.
func Aggregate(masks []*match.Mask, e *cam.Ensemble, c Combiner) ([]Decision, error) {
	if err := checkMasks(masks, e); err != nil {
		return nil, err
	}

	var tally []float64
	if c.votes() {
		classes, err := classCount(e)
		if err != nil {
			return nil, err
		}
		tally = make([]float64, classes)
	}

	out := make([]Decision, masks[0].Queries())
	for q := range out {
		d := noMatch()
		d.Rows = make([]int, len(masks))

		var sum, weight float64
		clear(tally)

		for i, m := range masks {
			r := m.First(q)
			d.Rows[i] = r
			if r < 0 {
				continue
			}
			if d.Row == NoMatch {
				d.Array, d.Row = i, r
			}
			d.Contributing++

			v := e.Array(i).Value(r)
			w := e.Weight(i)
			switch c {
			case MajorityVote:
				tally[int(v)]++
				weight++
			case WeightedVote:
				tally[int(v)] += w
				weight += math.Abs(w)
			case Mean:
				sum += v
			case WeightedSum:
				sum += w * v
			default:
				return nil, fmt.Errorf("%w: %d", ErrUnknownCombiner, c)
			}
		}

		if d.Contributing > 0 {
			switch {
			case c.votes():
				class := NoMatch
				for k, n := range tally {
					if n > 0 && (class == NoMatch || n > tally[class]) {
						class = k
					}
				}
				if class == NoMatch {
					// Every vote carried zero weight.
					class = int(e.Array(d.Array).Value(d.Row))
				}
				d.Class = class
				d.Value = float64(class)
				if weight > 0 {
					d.Confidence = max(tally[class], 0) / weight
				}
			case c == Mean:
				d.Value = sum / float64(d.Contributing)
				d.Confidence = float64(d.Contributing) / float64(len(masks))
			default:
				d.Value = e.BaseScore() + sum
				d.Confidence = float64(d.Contributing) / float64(len(masks))
			}
		}
		out[q] = d
	}
	return out, nil
}

// classCount returns the number of classes to tally, falling back to the
// largest label present when the ensemble does not declare it.
func classCount(e *cam.Ensemble) (int, error) {
	n := e.NumClasses()
	maxLabel := -1.0
	for i := range e.Len() {
		a := e.Array(i)
		for r := range a.Rows() {
			v := a.Value(r)
			if v < 0 || v != math.Trunc(v) {
				return 0, fmt.Errorf("vote combiner: array %d row %d value %v is not a class label", i, r, v)
			}
			maxLabel = max(maxLabel, v)
		}
	}
	return max(n, int(maxLabel)+1), nil
}
