package kernel

import (
	"os"
	"runtime"
	"strings"
)

// Impl identifies a kernel implementation.
type Impl uint8

const (
	// Generic is the scalar reference implementation.
	Generic Impl = iota
	// Unrolled is the 8x unrolled, branch-free implementation.
	Unrolled
)

// String returns the string representation of an Impl.
func (i Impl) String() string {
	switch i {
	case Generic:
		return "generic"
	case Unrolled:
		return "unrolled"
	default:
		return "unknown"
	}
}

// ParseImpl parses a string into an Impl value.
func ParseImpl(s string) (Impl, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "unrolled":
		return Unrolled, true
	default:
		return Generic, false
	}
}

// Package-level state - initialized once at package init.
var (
	activeImpl  Impl
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasASIMD   bool // ARM64 NEON
	hasSVE     bool // ARM64 SVE
	hasAVX2    bool // x86-64 AVX2
	hasAVX512F bool // x86-64 AVX-512 Foundation
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv("CAMPIE_KERNEL"); override != "" {
		if impl, ok := ParseImpl(override); ok {
			hasOverride = true
			use(impl)
			return
		}
		// Invalid override - fall through to the default
	}

	use(Unrolled)
}

// use installs the function pointers of the given implementation.
func use(impl Impl) {
	activeImpl = impl
	switch impl {
	case Generic:
		rangeF64Impl = rangeWordsF64Generic
		rangeF32Impl = rangeWordsF32Generic
		kernelAndWords = andWordsGeneric
		kernelOrWords = orWordsGeneric
	default:
		rangeF64Impl = rangeWordsF64Unrolled
		rangeF32Impl = rangeWordsF32Unrolled
		kernelAndWords = andWordsUnrolled
		kernelOrWords = orWordsUnrolled
	}
}

// ActiveImpl returns the currently active implementation.
func ActiveImpl() Impl {
	return activeImpl
}

// IsOverridden returns true if CAMPIE_KERNEL was set to a valid value.
func IsOverridden() bool {
	return hasOverride
}

// Features returns the vector extensions detected on this CPU.
// It is informational: the unrolled kernels rely on compiler
// auto-vectorization rather than hand-written assembly.
func Features() []string {
	var f []string
	switch runtime.GOARCH {
	case "arm64":
		if hasASIMD {
			f = append(f, "asimd")
		}
		if hasSVE {
			f = append(f, "sve")
		}
	case "amd64":
		if hasAVX2 {
			f = append(f, "avx2")
		}
		if hasAVX512F {
			f = append(f, "avx512f")
		}
	}
	return f
}
