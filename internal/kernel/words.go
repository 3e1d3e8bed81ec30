package kernel

import "math/bits"

// Kernel function pointers for word operations.
// The unrolled implementations are the default; CAMPIE_KERNEL=generic
// switches to the scalar loops.
var (
	kernelAndWords = andWordsUnrolled
	kernelOrWords  = orWordsUnrolled
)

// AndWords performs dst[i] &= src[i] for all words.
func AndWords(dst, src []uint64) {
	kernelAndWords(dst, src)
}

// OrWords performs dst[i] |= src[i] for all words.
func OrWords(dst, src []uint64) {
	kernelOrWords(dst, src)
}

// FillOnes sets the first n bits of dst and clears every bit after them.
func FillOnes(dst []uint64, n int) {
	full := n / 64
	for i := 0; i < full; i++ {
		dst[i] = ^uint64(0)
	}
	i := full
	if rem := n % 64; rem > 0 {
		dst[i] = (uint64(1) << rem) - 1
		i++
	}
	for ; i < len(dst); i++ {
		dst[i] = 0
	}
}

// PopcountWords counts all set bits across words.
func PopcountWords(words []uint64) int {
	count := 0
	for _, w := range words {
		count += bits.OnesCount64(w)
	}
	return count
}

// AnySet reports whether any bit is set.
func AnySet(words []uint64) bool {
	for _, w := range words {
		if w != 0 {
			return true
		}
	}
	return false
}

// FirstSet returns the index of the lowest set bit, or -1 if no bit is set.
func FirstSet(words []uint64) int {
	for i, w := range words {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// ForEachSet calls fn for every set bit in ascending order.
// Iteration stops when fn returns false.
func ForEachSet(words []uint64, fn func(idx int) bool) {
	for i, w := range words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			if !fn(i*64 + bit) {
				return
			}
			w &= w - 1 // Clear lowest bit
		}
	}
}

func andWordsGeneric(dst, src []uint64) {
	for i := range dst {
		dst[i] &= src[i]
	}
}

func orWordsGeneric(dst, src []uint64) {
	for i := range dst {
		dst[i] |= src[i]
	}
}

func andWordsUnrolled(dst, src []uint64) {
	// Process 4 words at a time
	i := 0
	src = src[:len(dst)]
	for ; i+4 <= len(dst); i += 4 {
		dst[i] &= src[i]
		dst[i+1] &= src[i+1]
		dst[i+2] &= src[i+2]
		dst[i+3] &= src[i+3]
	}
	for ; i < len(dst); i++ {
		dst[i] &= src[i]
	}
}

func orWordsUnrolled(dst, src []uint64) {
	i := 0
	src = src[:len(dst)]
	for ; i+4 <= len(dst); i += 4 {
		dst[i] |= src[i]
		dst[i+1] |= src[i+1]
		dst[i+2] |= src[i+2]
		dst[i+3] |= src[i+3]
	}
	for ; i < len(dst); i++ {
		dst[i] |= src[i]
	}
}
