// Package rating computes per-contest rating deltas from final standings.
//
// Two engines share one contract: given parallel ranks/ratings/attended-count
// slices for a contest's field, return the rating delta for each participant.
// Iterative is the direct, quadratic-time reference form; Convolution
// precomputes one FFT-convolved expected-rank curve and is the production
// hot path for large fields.
package rating

// Engine computes rating deltas for a contest's full field in one call.
// ranks, ratings and attendedCounts must have equal length, one entry per
// participant, ordered identically; the returned slice is parallel to them.
type Engine interface {
	Delta(ranks []int, ratings []float64, attendedCounts []int) []float64
}

// NewEngine returns the engine named by kind ("convolution" or "iterative").
func NewEngine(kind string) Engine {
	switch kind {
	case "iterative":
		return IterativeEngine{}
	default:
		return ConvolutionEngine{}
	}
}
