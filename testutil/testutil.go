package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/tree"
)

// GridStep is the spacing of thresholds and grid query values. Drawing
// both from the same grid makes queries land exactly on bounds often.
const GridStep = 0.25

// GridMax is the upper end of the threshold and query grid [0, GridMax].
const GridMax = 10.0

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float64, minVal, maxVal float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float64()*span
	}
}

// UniformQueries generates queries with values in range [0, GridMax).
// Uses a single backing array for efficiency.
func (r *RNG) UniformQueries(num, features int) [][]float64 {
	data := make([]float64, num*features)
	r.FillUniformRange(data, 0, GridMax)

	queries := make([][]float64, num)
	for i := range num {
		queries[i] = data[i*features : (i+1)*features]
	}
	return queries
}

// GridQueries generates queries whose values are multiples of GridStep in
// [0, GridMax]. Each value is NaN with probability nanRate.
func (r *RNG) GridQueries(num, features int, nanRate float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*features)
	queries := make([][]float64, num)
	for i := range num {
		q := data[i*features : (i+1)*features]
		for f := range q {
			if nanRate > 0 && r.rand.Float64() < nanRate {
				q[f] = math.NaN()
				continue
			}
			q[f] = r.gridLocked()
		}
		queries[i] = q
	}
	return queries
}

func (r *RNG) gridLocked() float64 {
	return float64(r.rand.Intn(int(GridMax/GridStep)+1)) * GridStep
}

// ModelConfig describes a random model.
type ModelConfig struct {
	Trees    int
	Depth    int
	Features int
	// Classes > 0 builds a classification model with labels in [0, Classes).
	Classes   int
	SplitRule tree.SplitRule
	// LeafProb is the chance that an inner position below the root becomes
	// a leaf early. Zero builds full trees.
	LeafProb float64
}

// Model generates a random node-based model.
func (r *RNG) Model(cfg ModelConfig) *tree.Model {
	m := &tree.Model{
		Task:        tree.Regression,
		NumFeatures: cfg.Features,
		SplitRule:   cfg.SplitRule,
		Trees:       make([]tree.Tree, cfg.Trees),
	}
	if cfg.Classes > 0 {
		m.Task = tree.Classification
		m.NumClasses = cfg.Classes
	}
	for i := range m.Trees {
		m.Trees[i] = r.Tree(cfg)
	}
	return m
}

// Tree generates one random node tree. Thresholds lie on the query grid
// and every leaf is reachable by at least one grid query.
func (r *RNG) Tree(cfg ModelConfig) tree.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := int(GridMax / GridStep)
	lo := make([]int, cfg.Features)
	hi := make([]int, cfg.Features)
	for f := range hi {
		hi[f] = steps
	}

	var t tree.Tree
	var grow func(depth int) int
	grow = func(depth int) int {
		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, tree.Node{Leaf: true, Value: r.leafValueLocked(cfg.Classes)})

		if depth >= cfg.Depth || (depth > 0 && r.rand.Float64() < cfg.LeafProb) {
			return idx
		}

		// Grid index k splits reachable indices [lo, hi] into two
		// non-empty halves.
		f := r.rand.Intn(cfg.Features)
		kMin, kMax := lo[f]+1, hi[f]
		if cfg.SplitRule == tree.SplitLessEqual {
			kMin, kMax = lo[f], hi[f]-1
		}
		if kMin > kMax {
			return idx
		}
		k := kMin + r.rand.Intn(kMax-kMin+1)

		leftHi, rightLo := k-1, k
		if cfg.SplitRule == tree.SplitLessEqual {
			leftHi, rightLo = k, k+1
		}

		savedLo, savedHi := lo[f], hi[f]
		hi[f] = leftHi
		left := grow(depth + 1)
		hi[f], lo[f] = savedHi, rightLo
		right := grow(depth + 1)
		lo[f] = savedLo

		t.Nodes[idx] = tree.Node{Feature: f, Threshold: float64(k) * GridStep, Left: left, Right: right}
		return idx
	}
	grow(0)
	return t
}

func (r *RNG) leafValueLocked(classes int) float64 {
	if classes > 0 {
		return float64(r.rand.Intn(classes))
	}
	return math.Round(r.rand.NormFloat64()*1000) / 100
}

// Leaves generates random explicit leaves. Each feature is constrained
// with probability density; the rest stay wildcards.
func (r *RNG) Leaves(num, features int, density float64) []tree.Leaf {
	r.mu.Lock()
	defer r.mu.Unlock()

	leaves := make([]tree.Leaf, num)
	for i := range leaves {
		var cs []tree.Constraint
		for f := range features {
			if r.rand.Float64() >= density {
				continue
			}
			lo, hi := r.gridLocked(), r.gridLocked()
			if lo > hi {
				lo, hi = hi, lo
			}
			switch r.rand.Intn(4) {
			case 0:
				lo = math.Inf(-1)
			case 1:
				hi = math.Inf(1)
			}
			cs = append(cs, tree.Between(f, lo, hi))
		}
		leaves[i] = tree.Leaf{Constraints: cs, Value: float64(i)}
	}
	return leaves
}

// NaiveMatch returns the rows of a matching query, one row at a time.
func NaiveMatch(a *cam.Array, query []float64) []int {
	var rows []int
	for r := range a.Rows() {
		if rowMatches(a, r, query) {
			rows = append(rows, r)
		}
	}
	return rows
}

// NaivePriority returns the first matching row of a, or -1.
func NaivePriority(a *cam.Array, query []float64) int {
	for r := range a.Rows() {
		if rowMatches(a, r, query) {
			return r
		}
	}
	return -1
}

// NaiveReduce sums the values of all rows matching query.
func NaiveReduce(a *cam.Array, query []float64) float64 {
	var sum float64
	for _, r := range NaiveMatch(a, query) {
		sum += a.Value(r)
	}
	return sum
}

func rowMatches(a *cam.Array, r int, query []float64) bool {
	for f, v := range query {
		if !a.Bound(r, f).Contains(a.DType().Round(v)) {
			return false
		}
	}
	return true
}

// Evaluate walks a node tree for x and returns the reached leaf value.
func Evaluate(t tree.Tree, rule tree.SplitRule, x []float64) float64 {
	n := t.Nodes[0]
	for !n.Leaf {
		v := x[n.Feature]
		goLeft := v < n.Threshold
		if rule == tree.SplitLessEqual {
			goLeft = v <= n.Threshold
		}
		if goLeft {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}
