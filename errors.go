package campie

import (
	"github.com/hupe1980/campie/batch"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/noise"
	"github.com/hupe1980/campie/persistence"
	"github.com/hupe1980/campie/resolve"
)

// Typed errors, usable with errors.As.
type (
	// MalformedTreeError reports an invalid tree or leaf at build time.
	MalformedTreeError = cam.MalformedTreeError
	// ShapeMismatchError reports queries whose width differs from the
	// array's feature count.
	ShapeMismatchError = cam.ShapeMismatchError
	// CapacityError reports a chunk that does not fit the memory limit.
	CapacityError = batch.CapacityError
	// ConfigError reports an invalid noise or quantization setting.
	ConfigError = noise.ConfigError
	// ChecksumMismatchError reports a persisted blob failing verification.
	ChecksumMismatchError = persistence.ChecksumMismatchError
)

// Sentinel errors, usable with errors.Is.
var (
	ErrMalformedTree       = cam.ErrMalformedTree
	ErrShapeMismatch       = cam.ErrShapeMismatch
	ErrPrecisionLoss       = cam.ErrPrecisionLoss
	ErrCapacity            = batch.ErrCapacity
	ErrUnknownPolicy       = resolve.ErrUnknownPolicy
	ErrUnknownCombiner     = resolve.ErrUnknownCombiner
	ErrUnknownDistribution = noise.ErrUnknownDistribution
	ErrUnknownTarget       = noise.ErrUnknownTarget
	ErrInvalidConfig       = noise.ErrInvalidConfig
	ErrCorrupt             = persistence.ErrCorrupt
	ErrIncompatibleFormat  = persistence.ErrIncompatibleFormat
)
