package rating

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ExpandSize is the fixed-point scale applied to ratings before they enter
// the convolution domain (a rating of 1500.0 becomes 150000).
const ExpandSize = 100

// MaxRatingScaled is MaxRating expressed in the convolution domain's units.
const MaxRatingScaled = MaxRating * ExpandSize

// ConvolutionEngine precomputes one expected-rank curve for the whole field
// via FFT convolution, then reuses it for every participant. This is the
// production engine for large contest fields.
type ConvolutionEngine struct{}

// Delta implements Engine.
func (ConvolutionEngine) Delta(ranks []int, ratings []float64, attendedCounts []int) []float64 {
	conv := precalcConvolution(ratings)

	n := len(ranks)
	expected := make([]float64, n)
	for i := 0; i < n; i++ {
		expected[i] = expectedRatingConv(ranks[i], ratings[i], conv)
	}

	coeffs := dampingCoefficients(attendedCounts)
	out := make([]float64, n)
	for i := range out {
		out[i] = (expected[i] - ratings[i]) * coeffs[i]
	}
	return out
}

// precalcConvolution builds the linear convolution of the pairwise
// win-probability curve f[d] = 1/(1+10^(d/(400*ExpandSize))), d ranging over
// [-MaxRatingScaled, MaxRatingScaled], with g, the histogram of the field's
// scaled current ratings.
func precalcConvolution(oldRatings []float64) []float64 {
	flen := 2*MaxRatingScaled + 1
	f := make([]float64, flen)
	for i := range f {
		d := float64(i - MaxRatingScaled)
		f[i] = 1 / (1 + math.Pow(10, d/(400*ExpandSize)))
	}

	maxScaled := 0
	scaled := make([]int, len(oldRatings))
	for i, r := range oldRatings {
		s := int(math.Round(r * ExpandSize))
		if s < 0 {
			s = 0
		}
		scaled[i] = s
		if s > maxScaled {
			maxScaled = s
		}
	}
	g := make([]float64, maxScaled+1)
	for _, s := range scaled {
		g[s]++
	}

	return fftConvolveFull(f, g)[:flen]
}

// fftConvolveFull returns the full linear convolution of a and b using a
// zero-padded real FFT round trip.
func fftConvolveFull(a, b []float64) []float64 {
	n := len(a) + len(b) - 1
	size := nextPow2(n)

	pa := make([]float64, size)
	copy(pa, a)
	pb := make([]float64, size)
	copy(pb, b)

	fft := fourier.NewFFT(size)
	fa := fft.Coefficients(nil, pa)
	fb := fft.Coefficients(nil, pb)

	prod := make([]complex128, len(fa))
	for i := range prod {
		prod[i] = fa[i] * fb[i]
	}

	res := fft.Sequence(nil, prod)
	out := make([]float64, n)
	copy(out, res[:n])
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func getExpectedRank(conv []float64, x int) float64 {
	return conv[x+MaxRatingScaled] + 0.5
}

func getEquationLeft(conv []float64, x int) float64 {
	return conv[x+MaxRatingScaled] + 1
}

// binarySearchExpectedRatingConv finds the largest scaled rating x such that
// the equation-left value at x is >= meanRank.
func binarySearchExpectedRatingConv(conv []float64, meanRank float64) int {
	lo, hi := 0, MaxRatingScaled
	mid := lo
	for lo < hi {
		mid = (lo + hi) / 2
		if getEquationLeft(conv, mid) < meanRank {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return mid
}

func expectedRatingConv(rank int, rating float64, conv []float64) float64 {
	scaledRating := int(math.Round(rating * ExpandSize))
	expectedRank := getExpectedRank(conv, scaledRating)
	meanRank := math.Sqrt(expectedRank * float64(rank))
	return float64(binarySearchExpectedRatingConv(conv, meanRank)) / ExpandSize
}
