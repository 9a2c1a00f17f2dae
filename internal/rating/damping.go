package rating

import (
	"math"
	"sync"
)

// dampingState memoizes the geometric prefix sum Σ_{j=0}^{k} (5/7)^j so
// repeated calls for the same contest field don't redo the recursion.
type dampingState struct {
	mu     sync.Mutex
	prefix map[int]float64
}

var damping = dampingState{prefix: map[int]float64{0: 1}}

// prefixSumSigma returns Σ_{j=0}^{k} (5/7)^j, memoized.
func prefixSumSigma(k int) float64 {
	if k < 0 {
		panic("prefixSumSigma: k must be non-negative")
	}

	damping.mu.Lock()
	defer damping.mu.Unlock()

	if v, ok := damping.prefix[k]; ok {
		return v
	}

	// Fill upward from the closest memoized value below k.
	j := k
	for {
		j--
		if v, ok := damping.prefix[j]; ok {
			sum := v
			for i := j + 1; i <= k; i++ {
				sum += ratio(i)
				damping.prefix[i] = sum
			}
			return sum
		}
	}
}

func ratio(j int) float64 {
	return math.Pow(5.0/7.0, float64(j))
}

// dampingCoefficient returns the weight applied to a player's rating delta
// after their k-th contest: 1/(1+Σ(5/7)^j) for k<=100, 2/9 beyond that.
func dampingCoefficient(k int) float64 {
	if k <= 100 {
		return 1 / (1 + prefixSumSigma(k))
	}
	return 2.0 / 9.0
}

// dampingCoefficients maps dampingCoefficient over a field's attended counts.
func dampingCoefficients(attendedCounts []int) []float64 {
	out := make([]float64, len(attendedCounts))
	for i, k := range attendedCounts {
		out[i] = dampingCoefficient(k)
	}
	return out
}
