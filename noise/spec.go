package noise

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownDistribution is wrapped by ConfigError for an unsupported
	// distribution.
	ErrUnknownDistribution = errors.New("unknown noise distribution")

	// ErrUnknownTarget is wrapped by ConfigError for an unsupported target.
	ErrUnknownTarget = errors.New("unknown noise target")

	// ErrInvalidConfig is wrapped by ConfigError for out-of-range values.
	ErrInvalidConfig = errors.New("invalid noise configuration")
)

// ConfigError reports an invalid noise specification.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("noise config %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Distribution is the shape of additive noise.
type Distribution uint8

const (
	// Gaussian draws N(0, Scale^2).
	Gaussian Distribution = iota
	// Uniform draws from [-Scale, Scale).
	Uniform
)

func (d Distribution) String() string {
	switch d {
	case Gaussian:
		return "gaussian"
	case Uniform:
		return "uniform"
	default:
		return fmt.Sprintf("distribution(%d)", uint8(d))
	}
}

// ParseDistribution parses a distribution name.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gaussian", "normal":
		return Gaussian, nil
	case "uniform":
		return Uniform, nil
	default:
		return Gaussian, &ConfigError{Field: "distribution", Value: s, Err: ErrUnknownDistribution}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Distribution) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Distribution) UnmarshalText(b []byte) error {
	v, err := ParseDistribution(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Target selects what noise is applied to.
type Target uint8

const (
	// Queries perturbs query values.
	Queries Target = iota
	// Bounds perturbs stored array bounds.
	Bounds
	// Both perturbs queries and bounds.
	Both
)

func (t Target) String() string {
	switch t {
	case Queries:
		return "queries"
	case Bounds:
		return "bounds"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

// ParseTarget parses a target name.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queries", "inputs":
		return Queries, nil
	case "bounds", "thresholds":
		return Bounds, nil
	case "both", "all":
		return Both, nil
	default:
		return Queries, &ConfigError{Field: "apply_to", Value: s, Err: ErrUnknownTarget}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(b []byte) error {
	v, err := ParseTarget(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Quantization snaps values to 2^Bits uniform levels over [Min, Max].
// Bits == 0 disables it.
type Quantization struct {
	Bits int     `json:"bits"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Enabled reports whether quantization is active.
func (q Quantization) Enabled() bool { return q.Bits > 0 }

// Spec configures a noise Model. Scale is the standard deviation
// (gaussian) or half-width (uniform); zero disables additive noise.
type Spec struct {
	Distribution Distribution `json:"distribution"`
	Scale        float64      `json:"scale"`
	Seed         uint64       `json:"seed"`
	ApplyTo      Target       `json:"apply_to"`
	Quantization Quantization `json:"quantization"`
}

// Disabled is the no-op spec.
var Disabled = Spec{}

// Validate checks s without building a Model.
func (s Spec) Validate() error {
	if s.Distribution > Uniform {
		return &ConfigError{Field: "distribution", Value: s.Distribution, Err: ErrUnknownDistribution}
	}
	if s.ApplyTo > Both {
		return &ConfigError{Field: "apply_to", Value: s.ApplyTo, Err: ErrUnknownTarget}
	}
	if math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) || s.Scale < 0 {
		return &ConfigError{Field: "scale", Value: s.Scale, Err: ErrInvalidConfig}
	}
	q := s.Quantization
	if q.Bits < 0 || q.Bits > 32 {
		return &ConfigError{Field: "quantization.bits", Value: q.Bits, Err: ErrInvalidConfig}
	}
	if q.Enabled() && !(q.Min < q.Max) {
		return &ConfigError{Field: "quantization.range", Value: [2]float64{q.Min, q.Max}, Err: ErrInvalidConfig}
	}
	if q.Enabled() && (math.IsInf(q.Min, 0) || math.IsInf(q.Max, 0)) {
		return &ConfigError{Field: "quantization.range", Value: [2]float64{q.Min, q.Max}, Err: ErrInvalidConfig}
	}
	return nil
}
