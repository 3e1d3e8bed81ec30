package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Task is the learning task a model was trained for.
type Task uint8

const (
	// Classification models emit class labels as leaf values.
	Classification Task = iota
	// Regression models emit real-valued leaf values.
	Regression
)

func (t Task) String() string {
	switch t {
	case Classification:
		return "classification"
	case Regression:
		return "regression"
	default:
		return "unknown"
	}
}

// ParseTask parses a task name.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classification", "classifier":
		return Classification, nil
	case "regression", "regressor":
		return Regression, nil
	default:
		return Classification, fmt.Errorf("unknown task %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Task) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Task) UnmarshalText(b []byte) error {
	v, err := ParseTask(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Precision is the numeric precision thresholds were trained in.
type Precision uint8

const (
	// Float64 thresholds (default).
	Float64 Precision = iota
	// Float32 thresholds.
	Float32
)

func (p Precision) String() string {
	switch p {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// ParsePrecision parses a precision name.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "float64", "f64", "double":
		return Float64, nil
	case "float32", "f32", "float":
		return Float32, nil
	default:
		return Float64, fmt.Errorf("unknown precision %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precision) UnmarshalText(b []byte) error {
	v, err := ParsePrecision(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SplitRule says which side of a split the threshold itself belongs to.
type SplitRule uint8

const (
	// SplitLess sends x < threshold left (XGBoost, LightGBM).
	SplitLess SplitRule = iota
	// SplitLessEqual sends x <= threshold left (scikit-learn).
	SplitLessEqual
)

func (r SplitRule) String() string {
	switch r {
	case SplitLess:
		return "less"
	case SplitLessEqual:
		return "less_equal"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r SplitRule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *SplitRule) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "less", "<":
		*r = SplitLess
	case "less_equal", "<=":
		*r = SplitLessEqual
	default:
		return fmt.Errorf("unknown split rule %q", string(b))
	}
	return nil
}

// Node is one node of a split tree. Node 0 is the root.
type Node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Constraint is an inclusive range on one feature.
// Use -Inf / +Inf for open-ended sides.
type Constraint struct {
	Feature int
	Lower   float64
	Upper   float64
}

// Between constrains feature f to [lo, hi].
func Between(f int, lo, hi float64) Constraint {
	return Constraint{Feature: f, Lower: lo, Upper: hi}
}

// AtMost constrains feature f to (-Inf, hi].
func AtMost(f int, hi float64) Constraint {
	return Constraint{Feature: f, Lower: math.Inf(-1), Upper: hi}
}

// AtLeast constrains feature f to [lo, +Inf).
func AtLeast(f int, lo float64) Constraint {
	return Constraint{Feature: f, Lower: lo, Upper: math.Inf(1)}
}

// Equal constrains feature f to exactly v (categorical equality).
func Equal(f int, v float64) Constraint {
	return Constraint{Feature: f, Lower: v, Upper: v}
}

type constraintJSON struct {
	Feature int      `json:"feature"`
	Lower   *float64 `json:"lower,omitempty"`
	Upper   *float64 `json:"upper,omitempty"`
}

// MarshalJSON omits open-ended sides, which JSON cannot represent.
func (c Constraint) MarshalJSON() ([]byte, error) {
	aux := constraintJSON{Feature: c.Feature}
	if !math.IsInf(c.Lower, -1) {
		lo := c.Lower
		aux.Lower = &lo
	}
	if !math.IsInf(c.Upper, 1) {
		hi := c.Upper
		aux.Upper = &hi
	}
	return json.Marshal(aux)
}

// UnmarshalJSON treats a missing lower as -Inf and a missing upper as +Inf.
func (c *Constraint) UnmarshalJSON(b []byte) error {
	var aux constraintJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Feature = aux.Feature
	c.Lower = math.Inf(-1)
	c.Upper = math.Inf(1)
	if aux.Lower != nil {
		c.Lower = *aux.Lower
	}
	if aux.Upper != nil {
		c.Upper = *aux.Upper
	}
	return nil
}

// Leaf is the root-to-leaf path of a tree, expressed as constraints.
type Leaf struct {
	Constraints []Constraint `json:"constraints"`
	Value       float64      `json:"value"`
	// Priority orders CAM rows: lower values win ties. Leaves with equal
	// priority keep their order.
	Priority int `json:"priority,omitempty"`
}

// Tree is a single decision tree.
type Tree struct {
	Nodes  []Node `json:"nodes,omitempty"`
	Leaves []Leaf `json:"leaves,omitempty"`
}

// Model is a trained ensemble.
type Model struct {
	Name        string    `json:"name,omitempty"`
	Task        Task      `json:"task"`
	NumFeatures int       `json:"num_features"`
	NumClasses  int       `json:"num_classes,omitempty"`
	Precision   Precision `json:"precision"`
	SplitRule   SplitRule `json:"split_rule"`
	Trees       []Tree    `json:"trees"`
	// Weights optionally scales each tree's output in weighted combiners.
	Weights []float64 `json:"weights,omitempty"`
	// BaseScore is added by the weighted-sum combiner.
	BaseScore float64 `json:"base_score,omitempty"`
}

// Validate checks the model-level shape. Per-leaf validation happens when
// arrays are built.
func (m *Model) Validate() error {
	if m.NumFeatures <= 0 {
		return malformed(-1, -1, -1, "num_features must be positive, got %d", m.NumFeatures)
	}
	if len(m.Trees) == 0 {
		return malformed(-1, -1, -1, "model has no trees")
	}
	if len(m.Weights) != 0 && len(m.Weights) != len(m.Trees) {
		return malformed(-1, -1, -1, "%d weights for %d trees", len(m.Weights), len(m.Trees))
	}
	return nil
}
