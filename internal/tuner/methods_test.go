package tuner

import (
	"math/rand"
	"testing"
)

func TestParseMethodRejectsUnknown(t *testing.T) {
	if _, err := ParseMethod("eyeballing"); err == nil {
		t.Error("expected error for unknown method")
	}
	for _, m := range Methods() {
		if _, err := ParseMethod(string(m)); err != nil {
			t.Errorf("supported method %s rejected: %v", m, err)
		}
	}
}

func TestEstimatePercentile95CoversNormalBulk(t *testing.T) {
	// 40 standard-normal draws: the estimated bounds should bracket the
	// central mass without collapsing or exploding. With order statistics
	// at n=40 the exact values wander, so the assertion is a corridor.
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 40)
	for i := range values {
		values[i] = rng.NormFloat64()
	}

	lo, hi, err := Estimate(values, MethodPercentile95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lo >= hi {
		t.Fatalf("lo %v >= hi %v", lo, hi)
	}
	if lo > -1.0 || lo < -4.0 {
		t.Errorf("lower bound %v outside plausible corridor [-4, -1] for N(0,1)", lo)
	}
	if hi < 1.0 || hi > 4.0 {
		t.Errorf("upper bound %v outside plausible corridor [1, 4] for N(0,1)", hi)
	}
}

func TestEstimateIQRExpansion(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	lo, hi, err := Estimate(values, MethodIQRExpansion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Q1=2, Q3=6 under whole-index percentile semantics, IQR=4.
	if lo != -4 {
		t.Errorf("lower bound = %v, want -4", lo)
	}
	if hi != 12 {
		t.Errorf("upper bound = %v, want 12", hi)
	}
}

func TestEstimateConservative(t *testing.T) {
	values := []float64{0, 2, 5, 7, 10}

	lo, hi, err := Estimate(values, MethodConservative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lo != -0.5 {
		t.Errorf("lower bound = %v, want -0.5 (min - 5%% of span)", lo)
	}
	if hi != 10.5 {
		t.Errorf("upper bound = %v, want 10.5 (max + 5%% of span)", hi)
	}
}

func TestEstimateMean3Std(t *testing.T) {
	// Symmetric values: bounds must be symmetric around zero and wider
	// than the observed extremes.
	values := make([]float64, 40)
	for i := range values {
		if i%2 == 0 {
			values[i] = -1
		} else {
			values[i] = 1
		}
	}

	lo, hi, err := Estimate(values, MethodMean3Std)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lo != -hi {
		t.Errorf("bounds not symmetric: [%v, %v]", lo, hi)
	}
	if hi < 3.0 || hi > 3.1 {
		t.Errorf("upper bound = %v, want ~3.04 (3 sample sigmas)", hi)
	}
}
