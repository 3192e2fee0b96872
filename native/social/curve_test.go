package social

import (
	"math"
	"math/big"
	"testing"
)

func TestOrdinalityDiscountMatchesContinuousDecay(t *testing.T) {
	weight := big.NewInt(1_000_000)
	cases := []struct {
		eventCount uint64
		decayCount uint32
		want       float64
	}{
		{1, 100, math.Pow(0.5, 1.0/100)},  // spec §4.5 S5 worked example
		{50, 100, math.Pow(0.5, 0.5)},
		{100, 100, 0.5},
	}
	for _, tc := range cases {
		out := OrdinalityDiscount(weight, tc.eventCount, tc.decayCount)
		got, _ := new(big.Rat).SetFrac(out, weight).Float64()
		if math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("eventCount=%d decayCount=%d: discount=%.8f, want ~%.8f", tc.eventCount, tc.decayCount, got, tc.want)
		}
	}
}

func TestQuadraticCurationDiffersFromQuadratic(t *testing.T) {
	r := uint64(5_000_000)
	quad := Evaluate(CurveQuadratic, r)
	curation := Evaluate(CurveQuadraticCuration, r)
	if quad.Cmp(curation) == 0 {
		t.Fatal("quadratic_curation should not compute the same output as quadratic")
	}
	// quadratic_curation (R<<q64Scale)/(2s+R) always stays below 2^q64Scale,
	// unlike quadratic's unbounded square growth.
	scale := new(big.Int).Lsh(big.NewInt(1), q64Scale)
	if curation.Cmp(scale) >= 0 {
		t.Fatal("quadratic_curation output should stay below the fixed-point scale")
	}
}
