package kernel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naiveRange(lower, upper []float64, v float64) []bool {
	out := make([]bool, len(lower))
	for i := range lower {
		out[i] = lower[i] <= v && v <= upper[i]
	}
	return out
}

func bitsOf(words []uint64, n int) []bool {
	out := make([]bool, n)
	for i := range n {
		out[i] = words[i/64]&(1<<(uint(i)%64)) != 0
	}
	return out
}

func randomColumns(rng *rand.Rand, n int) ([]float64, []float64) {
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range n {
		a, b := rng.Float64()*10, rng.Float64()*10
		if a > b {
			a, b = b, a
		}
		lower[i], upper[i] = a, b
	}
	return lower, upper
}

func TestRangeWordsF64_MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{0, 1, 7, 63, 64, 65, 128, 200, 1000} {
		lower, upper := randomColumns(rng, n)
		for _, v := range []float64{-1, 0, 2.5, 5, 9.99, 11} {
			want := naiveRange(lower, upper, v)

			got := make([]uint64, WordsFor(n)+1)
			got[len(got)-1] = 0xdead // must stay untouched
			rangeWordsF64Unrolled(lower, upper, v, got)
			assert.Equal(t, want, bitsOf(got, n), "unrolled n=%d v=%v", n, v)
			assert.Equal(t, uint64(0xdead), got[len(got)-1])

			gen := make([]uint64, WordsFor(n))
			rangeWordsF64Generic(lower, upper, v, gen)
			assert.Equal(t, got[:WordsFor(n)], gen, "generic n=%d v=%v", n, v)
		}
	}
}

func TestRangeWordsF32_MatchesF64(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 150
	lower64, upper64 := randomColumns(rng, n)

	lower := make([]float32, n)
	upper := make([]float32, n)
	for i := range n {
		lower[i] = float32(lower64[i])
		upper[i] = float32(upper64[i])
		lower64[i] = float64(lower[i])
		upper64[i] = float64(upper[i])
	}

	for _, v := range []float32{0, 1.25, 4, 8.5} {
		want := make([]uint64, WordsFor(n))
		RangeWordsF64(lower64, upper64, float64(v), want)

		got := make([]uint64, WordsFor(n))
		rangeWordsF32Unrolled(lower, upper, v, got)
		assert.Equal(t, want, got)

		gen := make([]uint64, WordsFor(n))
		rangeWordsF32Generic(lower, upper, v, gen)
		assert.Equal(t, want, gen)
	}
}

func TestRangeWords_Inclusive(t *testing.T) {
	lower := []float64{0, 3}
	upper := []float64{5, 10}

	dst := make([]uint64, 1)
	RangeWordsF64(lower, upper, 5, dst)
	assert.Equal(t, uint64(0b11), dst[0])

	RangeWordsF64(lower, upper, 0, dst)
	assert.Equal(t, uint64(0b01), dst[0])

	RangeWordsF64(lower, upper, 10, dst)
	assert.Equal(t, uint64(0b10), dst[0])
}

func TestRangeWords_NonFinite(t *testing.T) {
	inf := math.Inf(1)
	lower := []float64{-inf, 0, -inf}
	upper := []float64{inf, inf, 0}

	dst := make([]uint64, 1)

	RangeWordsF64(lower, upper, math.NaN(), dst)
	assert.Equal(t, uint64(0), dst[0], "NaN never matches")

	RangeWordsF64(lower, upper, inf, dst)
	assert.Equal(t, uint64(0b011), dst[0])

	RangeWordsF64(lower, upper, -inf, dst)
	assert.Equal(t, uint64(0b101), dst[0])
}

func TestParseImpl(t *testing.T) {
	impl, ok := ParseImpl(" Generic ")
	require.True(t, ok)
	assert.Equal(t, Generic, impl)

	impl, ok = ParseImpl("unrolled")
	require.True(t, ok)
	assert.Equal(t, Unrolled, impl)

	_, ok = ParseImpl("avx9000")
	assert.False(t, ok)

	assert.Equal(t, "unknown", Impl(99).String())
}

func BenchmarkRangeWordsF64(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	lower, upper := randomColumns(rng, 4096)
	dst := make([]uint64, WordsFor(4096))

	b.Run("generic", func(b *testing.B) {
		for b.Loop() {
			rangeWordsF64Generic(lower, upper, 5, dst)
		}
	})
	b.Run("unrolled", func(b *testing.B) {
		for b.Loop() {
			rangeWordsF64Unrolled(lower, upper, 5, dst)
		}
	})
}
