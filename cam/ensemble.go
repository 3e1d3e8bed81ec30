package cam

import (
	"errors"

	"github.com/hupe1980/campie/tree"
)

// EnsembleConfig carries model-level metadata shared by all arrays.
type EnsembleConfig struct {
	Name       string
	Task       tree.Task
	NumClasses int
	// Weights scales each array's output; nil means 1 for every array.
	Weights   []float64
	BaseScore float64
}

// Ensemble is an ordered set of arrays, one per tree, that share a feature
// space.
type Ensemble struct {
	cfg    EnsembleConfig
	arrays []*Array
}

// NewEnsemble groups arrays. All arrays must have the same feature count
// and dtype.
func NewEnsemble(cfg EnsembleConfig, arrays ...*Array) (*Ensemble, error) {
	if len(arrays) == 0 {
		return nil, errors.New("ensemble needs at least one array")
	}
	if cfg.Weights != nil && len(cfg.Weights) != len(arrays) {
		return nil, malformed(-1, -1, -1, "%d weights for %d arrays", len(cfg.Weights), len(arrays))
	}
	features, dtype := arrays[0].Features(), arrays[0].DType()
	for i, a := range arrays[1:] {
		if a.Features() != features {
			return nil, &ShapeMismatchError{Expected: features, Actual: a.Features(), Query: -1}
		}
		if a.DType() != dtype {
			return nil, malformed(i+1, -1, -1, "dtype %s differs from %s", a.DType(), dtype)
		}
	}
	cfg.Weights = append([]float64(nil), cfg.Weights...)
	return &Ensemble{cfg: cfg, arrays: append([]*Array(nil), arrays...)}, nil
}

// Len returns the number of arrays.
func (e *Ensemble) Len() int { return len(e.arrays) }

// Array returns array i.
func (e *Ensemble) Array(i int) *Array { return e.arrays[i] }

// Arrays returns a copy of the array list.
func (e *Ensemble) Arrays() []*Array { return append([]*Array(nil), e.arrays...) }

// Features returns the shared feature count.
func (e *Ensemble) Features() int { return e.arrays[0].Features() }

// DType returns the shared dtype.
func (e *Ensemble) DType() DType { return e.arrays[0].DType() }

// Name returns the model name.
func (e *Ensemble) Name() string { return e.cfg.Name }

// Task returns the model task.
func (e *Ensemble) Task() tree.Task { return e.cfg.Task }

// NumClasses returns the number of classes of a classification model.
func (e *Ensemble) NumClasses() int { return e.cfg.NumClasses }

// Weight returns the weight of array i.
func (e *Ensemble) Weight(i int) float64 {
	if len(e.cfg.Weights) == 0 {
		return 1
	}
	return e.cfg.Weights[i]
}

// BaseScore returns the offset added by weighted-sum aggregation.
func (e *Ensemble) BaseScore() float64 { return e.cfg.BaseScore }

// Config returns a copy of the ensemble metadata.
func (e *Ensemble) Config() EnsembleConfig {
	cfg := e.cfg
	cfg.Weights = append([]float64(nil), e.cfg.Weights...)
	return cfg
}

// TotalRows returns the sum of rows over all arrays.
func (e *Ensemble) TotalRows() int {
	n := 0
	for _, a := range e.arrays {
		n += a.Rows()
	}
	return n
}

// MaxRows returns the row count of the largest array.
func (e *Ensemble) MaxRows() int {
	n := 0
	for _, a := range e.arrays {
		n = max(n, a.Rows())
	}
	return n
}

// SizeBytes returns the memory held by all bound columns.
func (e *Ensemble) SizeBytes() int64 {
	var n int64
	for _, a := range e.arrays {
		n += a.SizeBytes()
	}
	return n
}

// Derive applies fn to every array, returning a new ensemble.
func (e *Ensemble) Derive(fn func(i int, a *Array) (*Array, error)) (*Ensemble, error) {
	out := make([]*Array, len(e.arrays))
	for i, a := range e.arrays {
		d, err := fn(i, a)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return &Ensemble{cfg: e.Config(), arrays: out}, nil
}
