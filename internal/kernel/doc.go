// Package kernel provides the bulk comparison and bitword primitives behind
// the match engine.
//
// # Operations
//
//   - Range: RangeWordsF32, RangeWordsF64 compare one value against a whole
//     column of inclusive [lower, upper] bounds and pack the outcome into
//     64-bit words (bit r set iff lower[r] <= v <= upper[r]).
//   - Words: AndWords, OrWords, FillOnes, PopcountWords, FirstSet, ForEachSet.
//
// # Implementations
//
// Two implementations exist: a plain scalar loop (generic) and an 8x unrolled,
// branch-free variant (unrolled) that modern compilers auto-vectorize.
// The unrolled kernels are selected by default. Set CAMPIE_KERNEL=generic to
// force the scalar fallback.
package kernel
