package noise

import (
	"math"
	"math/rand/v2"

	"github.com/hupe1980/campie/cam"
)

// Stream kinds keep query and bound streams of the same index apart.
const (
	streamQuery uint64 = 0
	streamBound uint64 = 1
)

// Model applies a validated Spec.
type Model struct {
	spec   Spec
	levels float64
	step   float64
}

// New validates spec and returns a Model.
func New(spec Spec) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m := &Model{spec: spec}
	if q := spec.Quantization; q.Enabled() {
		m.levels = math.Exp2(float64(q.Bits)) - 1
		m.step = (q.Max - q.Min) / m.levels
	}
	return m, nil
}

// Spec returns the configuration.
func (m *Model) Spec() Spec { return m.spec }

// Enabled reports whether the model changes anything.
func (m *Model) Enabled() bool {
	return m != nil && (m.spec.Scale > 0 || m.spec.Quantization.Enabled())
}

// AffectsQueries reports whether PerturbQueries changes values.
func (m *Model) AffectsQueries() bool {
	return m.Enabled() && (m.spec.ApplyTo == Queries || m.spec.ApplyTo == Both)
}

// AffectsBounds reports whether PerturbArray changes bounds.
func (m *Model) AffectsBounds() bool {
	return m.Enabled() && (m.spec.ApplyTo == Bounds || m.spec.ApplyTo == Both)
}

// rng returns the stream for (kind, index).
func (m *Model) rng(kind uint64, index int) *rand.Rand {
	return rand.New(rand.NewPCG(m.spec.Seed, uint64(index)<<1|kind))
}

func (m *Model) sample(r *rand.Rand) float64 {
	if m.spec.Scale == 0 {
		return 0
	}
	if m.spec.Distribution == Uniform {
		return (r.Float64()*2 - 1) * m.spec.Scale
	}
	return r.NormFloat64() * m.spec.Scale
}

// Quantize snaps v to the nearest level. Non-finite values pass through.
func (m *Model) Quantize(v float64) float64 {
	q := m.spec.Quantization
	if !q.Enabled() || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	v = min(max(v, q.Min), q.Max)
	return q.Min + math.Round((v-q.Min)/m.step)*m.step
}

// PerturbQueries returns a perturbed copy of q, or q itself when queries
// are unaffected. Query i draws from the stream of its absolute index
// q.Offset()+i. NaN values stay NaN.
func (m *Model) PerturbQueries(q *cam.Queries) *cam.Queries {
	if !m.AffectsQueries() || q.Len() == 0 {
		return q
	}

	cur := -1
	var r *rand.Rand
	return q.Map(func(query, _ int, v float64) float64 {
		if query != cur {
			cur = query
			r = m.rng(streamQuery, query)
		}
		n := m.sample(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
		return m.Quantize(v + n)
	})
}

// PerturbArray returns a perturbed copy of array index i. Wildcard and
// infinite bounds are untouched; a range inverted by noise is swapped back
// into order.
func (m *Model) PerturbArray(i int, a *cam.Array) (*cam.Array, error) {
	if !m.AffectsBounds() {
		return a, nil
	}

	r := m.rng(streamBound, i)
	return a.Derive(func(_ int, lower, upper []float64, wildcard []uint64) {
		for row := range lower {
			// Draw for every row so wildcards do not shift later rows' noise.
			nl, nu := m.sample(r), m.sample(r)
			if wildcard != nil && wildcard[row>>6]&(1<<(uint(row)&63)) != 0 {
				continue
			}
			lower[row] = m.perturbBound(lower[row], nl)
			upper[row] = m.perturbBound(upper[row], nu)
			if lower[row] > upper[row] {
				lower[row], upper[row] = upper[row], lower[row]
			}
		}
	})
}

func (m *Model) perturbBound(v, n float64) float64 {
	if math.IsInf(v, 0) {
		return v
	}
	return m.Quantize(v + n)
}

// PerturbEnsemble applies PerturbArray to every array of e.
func (m *Model) PerturbEnsemble(e *cam.Ensemble) (*cam.Ensemble, error) {
	if !m.AffectsBounds() {
		return e, nil
	}
	return e.Derive(m.PerturbArray)
}
