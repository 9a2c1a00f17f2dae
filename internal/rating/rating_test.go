package rating

import "testing"

func TestDampingCoefficientBoundaries(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want float64
	}{
		{"k=0", 0, 0.5},
		{"k=100 matches series form", 100, 1 / (1 + prefixSumSigma(100))},
		{"k=101 uses the flat tail", 101, 2.0 / 9.0},
		{"k well beyond 100 stays flat", 500, 2.0 / 9.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dampingCoefficient(tt.k)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("dampingCoefficient(%d) = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

func TestDampingCoefficientMonotonicDecrease(t *testing.T) {
	prev := dampingCoefficient(0)
	for k := 1; k <= 100; k++ {
		cur := dampingCoefficient(k)
		if cur >= prev {
			t.Fatalf("dampingCoefficient(%d)=%v did not decrease from dampingCoefficient(%d)=%v", k, cur, k-1, prev)
		}
		prev = cur
	}
}

func TestIterativeEngineWinnerGainsLoserLoses(t *testing.T) {
	ranks := []int{1, 2, 3}
	ratings := []float64{1500, 1500, 1500}
	attended := []int{10, 10, 10}

	deltas := IterativeEngine{}.Delta(ranks, ratings, attended)

	if deltas[0] <= 0 {
		t.Errorf("rank-1 finisher should gain rating, got delta %v", deltas[0])
	}
	if deltas[2] >= 0 {
		t.Errorf("last-place finisher should lose rating, got delta %v", deltas[2])
	}
	if deltas[0] <= deltas[1] || deltas[1] <= deltas[2] {
		t.Errorf("deltas should strictly decrease with rank, got %v", deltas)
	}
}

func TestConvolutionEngineAgreesWithIterativeOnSmallField(t *testing.T) {
	ranks := []int{1, 2, 3, 4}
	ratings := []float64{1600, 1500, 1500, 1400}
	attended := []int{20, 5, 5, 1}

	iter := IterativeEngine{}.Delta(ranks, ratings, attended)
	conv := ConvolutionEngine{}.Delta(ranks, ratings, attended)

	for i := range iter {
		diff := iter[i] - conv[i]
		if diff > 1.0 || diff < -1.0 {
			t.Errorf("participant %d: iterative=%v convolution=%v, want agreement within 1 rating point", i, iter[i], conv[i])
		}
	}
}

func TestIterativeBisectionBracketCoversHighRatings(t *testing.T) {
	// A field anchored above the reference implementation's old hi=400
	// bracket must not saturate the search.
	ranks := []int{1, 2}
	ratings := []float64{3800, 3600}
	attended := []int{50, 50}

	deltas := IterativeEngine{}.Delta(ranks, ratings, attended)
	if deltas[0] <= 0 {
		t.Errorf("top-rated winner should still gain rating above the old 400 bracket, got %v", deltas[0])
	}
}
