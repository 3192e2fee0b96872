package social

import "math/big"

// Curve selects one of the spec §4.5 reward-curve shapes.
type Curve uint8

const (
	CurveQuadratic Curve = iota
	CurveQuadraticCuration
	CurveLinear
	CurveSquareRoot
)

// curveConstant is the "s" term in the quadratic curves (spec §4.5:
// `(R+s)^2 - s^2`), grounded on the teacher's creator/math.go use of a
// fixed additive constant to keep small rewards from producing a
// degenerate near-zero curve output.
var curveConstant = big.NewInt(2_000_000)

// Evaluate computes the reward-curve output for a net_reward value R,
// using math/big so the squared terms never overflow a 64-bit
// intermediate (spec §4.5: "must match the reference mapping ... using
// 128-bit arithmetic to avoid overflow"), mirroring the teacher's
// creator/math.go big.Int share-math style.
func Evaluate(curve Curve, r uint64) *big.Int {
	switch curve {
	case CurveQuadratic:
		return quadratic(r, curveConstant)
	case CurveQuadraticCuration:
		return quadraticCuration(r, curveConstant)
	case CurveLinear:
		return big.NewInt(0).SetUint64(r)
	case CurveSquareRoot:
		return sqrtBig(big.NewInt(0).SetUint64(r))
	default:
		return big.NewInt(0)
	}
}

// quadratic computes (R+s)^2 - s^2, the reference mapping named in spec
// §4.5, expanding to R^2 + 2*R*s so the two squared terms never need to
// be materialised and subtracted (equivalent, fewer big.Int allocations).
func quadratic(r uint64, s *big.Int) *big.Int {
	rBig := big.NewInt(0).SetUint64(r)
	rSquared := new(big.Int).Mul(rBig, rBig)
	cross := new(big.Int).Mul(rBig, s)
	cross.Lsh(cross, 1)
	return rSquared.Add(rSquared, cross)
}

// q64Scale is the fixed-point scale (2^64 == 1.0) used by both
// quadraticCuration and OrdinalityDiscount below to keep sub-unity
// results as exact integers rather than truncating to zero, the same
// "shift left before dividing" trick reward.cpp applies to ESCORreward
// ahead of its own quadratic_curation division.
const q64Scale = 64

// quadraticCuration computes the teacher's original quadratic_curation
// case (reward.cpp: `uint128_t(ESCORreward.lo, 0) / (2*content_constant +
// ESCORreward)`): a saturating curve -- R/(2s+R) -- rather than
// quadratic's squared term, so curation rewards front-load small
// contributions instead of rewarding growth quadratically. R is
// pre-shifted by q64Scale bits before dividing, mirroring reward.cpp's
// own pre-shift, so the result stays an exact nonzero integer instead of
// rounding small curation rewards straight to zero.
func quadraticCuration(r uint64, s *big.Int) *big.Int {
	rBig := big.NewInt(0).SetUint64(r)
	twoAlpha := new(big.Int).Lsh(s, 1)
	denom := new(big.Int).Add(twoAlpha, rBig)
	if denom.Sign() == 0 {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Lsh(rBig, q64Scale)
	return new(big.Int).Div(scaled, denom)
}

// sqrtBig returns floor(sqrt(n)) via Newton's method, used by the
// square_root curve.
func sqrtBig(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	x := new(big.Int).Set(n)
	y := new(big.Int).Add(new(big.Int).Div(x, big.NewInt(2)), big.NewInt(1))
	for y.Cmp(x) < 0 {
		x.Set(y)
		y.Add(n, new(big.Int).Mul(x, x))
		y.Div(y, x)
		y.Add(y, x)
		y.Div(y, big.NewInt(2))
	}
	return x
}

// Weight computes the delta in curve output caused by one event: the
// per-event reward weight before the three discounts in spec §4.5.
func Weight(curve Curve, before, after uint64) *big.Int {
	b := Evaluate(curve, before)
	a := Evaluate(curve, after)
	return new(big.Int).Sub(a, b)
}

// TimeRampDiscount applies the "first N seconds get proportional share"
// linear ramp (spec §4.5 discount 1) to weight, given secondsSincePost
// and the configured curation_auction_decay_time.
func TimeRampDiscount(weight *big.Int, secondsSincePost, decayWindow int64) *big.Int {
	if decayWindow <= 0 || secondsSincePost >= decayWindow {
		return new(big.Int).Set(weight)
	}
	if secondsSincePost < 0 {
		secondsSincePost = 0
	}
	out := new(big.Int).Mul(weight, big.NewInt(secondsSincePost))
	return out.Div(out, big.NewInt(decayWindow))
}

// OrdinalityDiscount applies the `0.5^(event_count/decayCount)` discount
// (spec §4.5 discount 2): weight shrinks continuously as more events
// accumulate against the same comment, reaching exactly half at
// eventCount == decayCount rather than only at full-halving boundaries.
// Computed by decomposing the exponent into whole halvings plus a
// fractional remainder, itself approximated by repeated square-rooting
// of 0.5 via its binary expansion -- the same big.Int-only idiom
// sqrtBig already uses, generalised to a fractional exponent so the
// result stays exact-integer and deterministic rather than relying on
// floating point.
func OrdinalityDiscount(weight *big.Int, eventCount uint64, decayCount uint32) *big.Int {
	if decayCount == 0 {
		return new(big.Int).Set(weight)
	}
	factor := halfPow(eventCount, uint64(decayCount))
	out := new(big.Int).Mul(weight, factor)
	return out.Rsh(out, q64Scale)
}

// halfPow returns 0.5^(numerator/denominator) as a Q64.64 fixed-point
// value (2^64 == 1.0), accurate to 52 bits of fractional precision.
func halfPow(numerator, denominator uint64) *big.Int {
	whole := numerator / denominator
	rem := numerator % denominator
	one := new(big.Int).Lsh(big.NewInt(1), q64Scale)
	if whole >= q64Scale {
		return big.NewInt(0)
	}
	result := new(big.Int).Rsh(one, uint(whole))
	if rem == 0 {
		return result
	}

	f := big.NewRat(int64(rem), int64(denominator))
	threshold := big.NewRat(1, 2)
	term := sqrtFixed(new(big.Int).Rsh(one, 1)) // sqrt(0.5)
	for i := 0; i < 52 && f.Sign() > 0; i++ {
		if f.Cmp(threshold) >= 0 {
			result.Mul(result, term)
			result.Rsh(result, q64Scale)
			f.Sub(f, threshold)
		}
		threshold.Quo(threshold, big.NewRat(2, 1))
		term = sqrtFixed(term)
	}
	return result
}

// sqrtFixed returns floor(sqrt(v)) for v expressed in Q64.64 fixed
// point, itself returned in Q64.64 (sqrtFixed(1.0) == 1.0).
func sqrtFixed(v *big.Int) *big.Int {
	return new(big.Int).Sqrt(new(big.Int).Lsh(v, q64Scale))
}

// WeightCapDiscount enforces discount 3: the event's weight may not
// exceed the curve-output delta it caused.
func WeightCapDiscount(weight, curveDelta *big.Int) *big.Int {
	if weight.Cmp(curveDelta) > 0 {
		return new(big.Int).Set(curveDelta)
	}
	return new(big.Int).Set(weight)
}
