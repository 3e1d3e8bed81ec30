package cam

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/campie/tree"
)

type buildOptions struct {
	dtype    DType
	hasDType bool
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithDType overrides the array precision. The default is the model
// precision.
func WithDType(d DType) BuildOption {
	return func(o *buildOptions) {
		o.dtype = d
		o.hasDType = true
	}
}

// Build converts every tree of m into an array and groups them into an
// Ensemble. Construction is all or nothing: the first malformed leaf aborts
// the build.
func Build(m *tree.Model, opts ...BuildOption) (*Ensemble, error) {
	if m == nil {
		return nil, malformed(-1, -1, -1, "nil model")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions{dtype: DTypeOf(m.Precision)}
	for _, fn := range opts {
		fn(&o)
	}

	pm := m
	if o.dtype.precision() != m.Precision {
		if err := checkThresholds(m, o.dtype); err != nil {
			return nil, err
		}
		cp := *m
		cp.Precision = o.dtype.precision()
		pm = &cp
	}

	arrays := make([]*Array, len(m.Trees))
	for i := range m.Trees {
		leaves, err := pm.Paths(i)
		if err != nil {
			return nil, err
		}
		if m.Task == tree.Classification {
			if err := checkClassLabels(leaves, m.NumClasses); err != nil {
				return nil, tagTree(err, i)
			}
		}
		a, err := BuildArray(leaves, m.NumFeatures, o.dtype)
		if err != nil {
			return nil, tagTree(err, i)
		}
		arrays[i] = a
	}

	return NewEnsemble(EnsembleConfig{
		Name:       m.Name,
		Task:       m.Task,
		NumClasses: m.NumClasses,
		Weights:    m.Weights,
		BaseScore:  m.BaseScore,
	}, arrays...)
}

// BuildArray converts the leaf paths of one tree into an array.
//
// Each leaf becomes one row. Features a leaf never constrains become
// wildcards; several constraints on the same feature are intersected. Rows
// are ordered by ascending Leaf.Priority with leaf order breaking ties.
func BuildArray(leaves []tree.Leaf, numFeatures int, dtype DType) (*Array, error) {
	if len(leaves) == 0 {
		return nil, malformed(-1, -1, -1, "tree has no leaves")
	}
	if numFeatures <= 0 {
		return nil, malformed(-1, -1, -1, "num_features must be positive, got %d", numFeatures)
	}

	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return leaves[x].Priority - leaves[y].Priority
	})

	a := newArray(len(leaves), numFeatures, dtype)
	row := make([]Bound, numFeatures)

	for r, li := range order {
		leaf := leaves[li]
		if err := leafBounds(leaf, li, row); err != nil {
			return nil, err
		}
		for f, b := range row {
			if err := checkBound(b, dtype); err != nil {
				return nil, boundError(-1, li, f, err)
			}
			a.set(r, f, b)
		}
		a.values[r] = leaf.Value
		a.priority[r] = int32(r)
		a.leafIDs[r] = int32(li)
	}
	return a, nil
}

// leafBounds intersects the constraints of one leaf into row.
func leafBounds(leaf tree.Leaf, li int, row []Bound) error {
	for f := range row {
		row[f] = Wildcard()
	}
	for _, c := range leaf.Constraints {
		f := c.Feature
		switch {
		case f < 0 || f >= len(row):
			return malformed(-1, li, f, "feature index out of range [0, %d)", len(row))
		case math.IsNaN(c.Lower) || math.IsNaN(c.Upper):
			return malformed(-1, li, f, "NaN threshold")
		case math.IsInf(c.Lower, 1):
			return malformed(-1, li, f, "lower bound is +Inf")
		case math.IsInf(c.Upper, -1):
			return malformed(-1, li, f, "upper bound is -Inf")
		}
		b := row[f]
		if b.Wildcard {
			row[f] = Range(c.Lower, c.Upper)
			continue
		}
		row[f] = Range(max(b.Lower, c.Lower), min(b.Upper, c.Upper))
	}
	for f, b := range row {
		if !b.Wildcard && b.Lower > b.Upper {
			return malformed(-1, li, f, "empty range: lower %v > upper %v", b.Lower, b.Upper)
		}
	}
	return nil
}

func checkClassLabels(leaves []tree.Leaf, numClasses int) error {
	for li, l := range leaves {
		v := l.Value
		if v < 0 || v != math.Trunc(v) {
			return malformed(-1, li, -1, "class label %v is not a non-negative integer", v)
		}
		if numClasses > 0 && v >= float64(numClasses) {
			return malformed(-1, li, -1, "class label %v out of range [0, %d)", v, numClasses)
		}
	}
	return nil
}

// checkThresholds verifies that every split threshold and explicit bound of
// m is exact in d.
func checkThresholds(m *tree.Model, d DType) error {
	check := func(ti int, v float64) error {
		if math.IsNaN(v) || d.representable(v) {
			return nil
		}
		return fmt.Errorf("tree %d: %w: %v in %s", ti, ErrPrecisionLoss, v, d)
	}
	for ti, t := range m.Trees {
		for _, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if err := check(ti, n.Threshold); err != nil {
				return err
			}
		}
		for _, l := range t.Leaves {
			for _, c := range l.Constraints {
				if err := check(ti, c.Lower); err != nil {
					return err
				}
				if err := check(ti, c.Upper); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func tagTree(err error, i int) error {
	var mt *MalformedTreeError
	if errors.As(err, &mt) {
		mt.Tree = i
		return mt
	}
	if errors.Is(err, ErrPrecisionLoss) {
		return fmt.Errorf("tree %d: %w", i, err)
	}
	return err
}
