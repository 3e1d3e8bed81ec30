package cam

import (
	"fmt"
	"strings"

	"github.com/hupe1980/campie/tree"
)

// DType is the precision bounds are stored and compared in.
type DType uint8

const (
	// Float64 stores bounds as float64.
	Float64 DType = iota
	// Float32 stores bounds as float32. Queries are rounded to float32
	// before comparison.
	Float32
)

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// Size returns the byte size of one stored bound.
func (d DType) Size() int {
	if d == Float32 {
		return 4
	}
	return 8
}

// ParseDType parses a dtype name.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float64", "f64":
		return Float64, nil
	case "float32", "f32":
		return Float32, nil
	default:
		return Float64, fmt.Errorf("unknown dtype %q", s)
	}
}

// DTypeOf returns the dtype matching a model precision.
func DTypeOf(p tree.Precision) DType {
	if p == tree.Float32 {
		return Float32
	}
	return Float64
}

func (d DType) precision() tree.Precision {
	if d == Float32 {
		return tree.Float32
	}
	return tree.Float64
}

// Round returns v as seen by a comparison in this precision.
func (d DType) Round(v float64) float64 {
	if d == Float32 {
		return float64(float32(v))
	}
	return v
}

// representable reports whether v survives a round trip through d.
func (d DType) representable(v float64) bool {
	return v != v || d.Round(v) == v
}
