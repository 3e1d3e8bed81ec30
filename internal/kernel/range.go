package kernel

// Range kernels compare a single value against a column of inclusive bounds.
// Bit r of the output is set iff lower[r] <= v && v <= upper[r].
// A NaN value never satisfies a comparison, so it sets no bits.

var (
	rangeF64Impl = rangeWordsF64Unrolled
	rangeF32Impl = rangeWordsF32Unrolled
)

// WordsFor returns the number of 64-bit words needed to hold n bits.
func WordsFor(n int) int {
	return (n + 63) / 64
}

// RangeWordsF64 packs the outcome of lower[r] <= v <= upper[r] for every r
// into dst. Bits past len(lower) in the last word are cleared.
//
// SAFETY: len(upper) must equal len(lower) and len(dst) must be at least
// WordsFor(len(lower)). No bounds checks are performed beyond Go's own.
func RangeWordsF64(lower, upper []float64, v float64, dst []uint64) {
	rangeF64Impl(lower, upper, v, dst)
}

// RangeWordsF32 is the float32 variant of RangeWordsF64.
func RangeWordsF32(lower, upper []float32, v float32, dst []uint64) {
	rangeF32Impl(lower, upper, v, dst)
}

// b2u converts a bool to 0 or 1 without branching.
// The compiler typically lowers this to a SETcc/CSET.
func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func rangeWordsF64Generic(lower, upper []float64, v float64, dst []uint64) {
	n := len(lower)
	for w := range WordsFor(n) {
		dst[w] = 0
	}
	for r := range n {
		if lower[r] <= v && v <= upper[r] {
			dst[r>>6] |= 1 << (uint(r) & 63)
		}
	}
}

func rangeWordsF32Generic(lower, upper []float32, v float32, dst []uint64) {
	n := len(lower)
	for w := range WordsFor(n) {
		dst[w] = 0
	}
	for r := range n {
		if lower[r] <= v && v <= upper[r] {
			dst[r>>6] |= 1 << (uint(r) & 63)
		}
	}
}

// rangeWordsF64Unrolled builds each 64-bit word from 8 groups of 8
// comparisons with no data-dependent branches.
func rangeWordsF64Unrolled(lower, upper []float64, v float64, dst []uint64) {
	n := len(lower)
	full := n / 64
	upper = upper[:n]

	for w := 0; w < full; w++ {
		lo := lower[w*64 : w*64+64]
		hi := upper[w*64 : w*64+64]
		var word uint64
		for i := 0; i < 64; i += 8 {
			word |= b2u(lo[i] <= v && v <= hi[i])<<i |
				b2u(lo[i+1] <= v && v <= hi[i+1])<<(i+1) |
				b2u(lo[i+2] <= v && v <= hi[i+2])<<(i+2) |
				b2u(lo[i+3] <= v && v <= hi[i+3])<<(i+3) |
				b2u(lo[i+4] <= v && v <= hi[i+4])<<(i+4) |
				b2u(lo[i+5] <= v && v <= hi[i+5])<<(i+5) |
				b2u(lo[i+6] <= v && v <= hi[i+6])<<(i+6) |
				b2u(lo[i+7] <= v && v <= hi[i+7])<<(i+7)
		}
		dst[w] = word
	}

	// Handle remainder
	if rem := n - full*64; rem > 0 {
		base := full * 64
		var word uint64
		for i := 0; i < rem; i++ {
			word |= b2u(lower[base+i] <= v && v <= upper[base+i]) << i
		}
		dst[full] = word
	}
}

func rangeWordsF32Unrolled(lower, upper []float32, v float32, dst []uint64) {
	n := len(lower)
	full := n / 64
	upper = upper[:n]

	for w := 0; w < full; w++ {
		lo := lower[w*64 : w*64+64]
		hi := upper[w*64 : w*64+64]
		var word uint64
		for i := 0; i < 64; i += 8 {
			word |= b2u(lo[i] <= v && v <= hi[i])<<i |
				b2u(lo[i+1] <= v && v <= hi[i+1])<<(i+1) |
				b2u(lo[i+2] <= v && v <= hi[i+2])<<(i+2) |
				b2u(lo[i+3] <= v && v <= hi[i+3])<<(i+3) |
				b2u(lo[i+4] <= v && v <= hi[i+4])<<(i+4) |
				b2u(lo[i+5] <= v && v <= hi[i+5])<<(i+5) |
				b2u(lo[i+6] <= v && v <= hi[i+6])<<(i+6) |
				b2u(lo[i+7] <= v && v <= hi[i+7])<<(i+7)
		}
		dst[w] = word
	}

	if rem := n - full*64; rem > 0 {
		base := full * 64
		var word uint64
		for i := 0; i < rem; i++ {
			word |= b2u(lower[base+i] <= v && v <= upper[base+i]) << i
		}
		dst[full] = word
	}
}
