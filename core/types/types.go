// Package types holds the primitive value types shared across every
// consensus component: asset symbols, fixed-point amounts, prices, and the
// monotonic block-time clock described in spec.md §3 ("Identity and
// time"). Amounts use github.com/holiman/uint256 so 128-bit-plus
// intermediates in reward-curve and price-median math never silently
// wrap, matching the teacher's use of uint256 for every balance field.
package types

import (
	"fmt"
	"io"
	"regexp"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Amount is a non-negative 64-bit-scale economic quantity stored in a
// 256-bit integer so intermediate multiplications (fee/curve/price math)
// never overflow before the final division. All ledger fields use Amount.
type Amount struct {
	v *uint256.Int
}

// ZeroAmount is the additive identity.
func ZeroAmount() Amount { return Amount{v: uint256.NewInt(0)} }

// NewAmount builds an Amount from a uint64 literal.
func NewAmount(n uint64) Amount { return Amount{v: uint256.NewInt(n)} }

func (a Amount) ensure() *uint256.Int {
	if a.v == nil {
		return uint256.NewInt(0)
	}
	return a.v
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	out := new(uint256.Int).Add(a.ensure(), b.ensure())
	return Amount{v: out}
}

// Sub returns a-b and an error if the result would be negative, since
// Amount is defined over non-negative economic quantities only.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.ensure().Lt(b.ensure()) {
		return Amount{}, fmt.Errorf("types: amount underflow: %s - %s", a, b)
	}
	return Amount{v: new(uint256.Int).Sub(a.ensure(), b.ensure())}, nil
}

// MulDiv computes floor(a*num/den), using the 256-bit intermediate to
// avoid overflow, matching spec §9's "128-bit intermediate width" rule
// generalised to the widest type available.
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, fmt.Errorf("types: division by zero")
	}
	prod := new(uint256.Int).Mul(a.ensure(), uint256.NewInt(num))
	out := new(uint256.Int).Div(prod, uint256.NewInt(den))
	return Amount{v: out}, nil
}

// MulDivRoundUp is MulDiv's round-up counterpart, used where spec §9 calls
// for "multiply_and_round_up" (e.g. force-settlement fund debits).
func (a Amount) MulDivRoundUp(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, fmt.Errorf("types: division by zero")
	}
	prod := new(uint256.Int).Mul(a.ensure(), uint256.NewInt(num))
	denI := uint256.NewInt(den)
	quot, rem := new(uint256.Int).DivMod(prod, denI, new(uint256.Int))
	if !rem.IsZero() {
		quot = quot.AddUint64(quot, 1)
	}
	return Amount{v: quot}, nil
}

// Cmp compares two amounts: -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.ensure().Cmp(b.ensure()) }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.ensure().IsZero() }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Uint64 returns the amount truncated to uint64; callers must only use
// this where the value is already known to fit (display, small fee
// constants), never for ledger arithmetic.
func (a Amount) Uint64() uint64 { return a.ensure().Uint64() }

func (a Amount) String() string { return a.ensure().Dec() }

// EncodeRLP implements rlp.Encoder so Amount participates directly in the
// canonical operation/transaction/block encoding described in spec §6,
// delegating to uint256.Int's own RLP support rather than reinventing a
// big-integer wire format.
func (a Amount) EncodeRLP(w io.Writer) error {
	return a.ensure().EncodeRLP(w)
}

// DecodeRLP implements rlp.Decoder, the decode-side counterpart of
// EncodeRLP.
func (a *Amount) DecodeRLP(s *rlp.Stream) error {
	v := new(uint256.Int)
	if err := v.DecodeRLP(s); err != nil {
		return err
	}
	a.v = v
	return nil
}

// ParseAmount parses a base-10 string into an Amount, rejecting negative
// values and overflow. Grounded on the teacher's genesis loader's
// parseAmountString, generalised from math/big to this package's
// uint256-backed Amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("types: invalid amount %q: %w", s, err)
	}
	return Amount{v: v}, nil
}

// AssetSymbol is a validated 1-16 char asset ticker, spec §6: "1-16 ASCII
// chars [A-Z0-9.], leading char letter".
type AssetSymbol string

var assetSymbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,15}$`)

// ValidateAssetSymbol enforces the wire-level symbol grammar.
func ValidateAssetSymbol(s string) error {
	if !assetSymbolPattern.MatchString(s) {
		return fmt.Errorf("types: invalid asset symbol %q", s)
	}
	return nil
}

// Permlink is a validated 3-256 char post permlink, spec §6.
type Permlink string

var permlinkPattern = regexp.MustCompile(`^[a-z0-9-]{3,256}$`)

// ValidatePermlink enforces the wire-level permlink grammar.
func ValidatePermlink(s string) error {
	if !permlinkPattern.MatchString(s) {
		return fmt.Errorf("types: invalid permlink %q", s)
	}
	return nil
}

// Price is a base/quote exchange rate expressed as two (amount, symbol)
// pairs, matching the wire format in spec §6: "(base_amount, base_symbol,
// quote_amount, quote_symbol)".
type Price struct {
	BaseAmount  Amount
	BaseSymbol  AssetSymbol
	QuoteAmount Amount
	QuoteSymbol AssetSymbol
}

// Invert returns the reciprocal price (quote/base becomes base/quote).
func (p Price) Invert() Price {
	return Price{
		BaseAmount:  p.QuoteAmount,
		BaseSymbol:  p.QuoteSymbol,
		QuoteAmount: p.BaseAmount,
		QuoteSymbol: p.BaseSymbol,
	}
}

// Mul multiplies an Amount of the base asset by the price, returning the
// equivalent quote-asset amount: amount * quote/base.
func (p Price) Mul(amount Amount) (Amount, error) {
	if p.BaseAmount.IsZero() {
		return Amount{}, fmt.Errorf("types: price has zero base amount")
	}
	return amount.MulDiv(p.QuoteAmount.Uint64(), p.BaseAmount.Uint64())
}

// LessThan compares two prices of the same asset pair as base/quote
// ratios: p < q iff p.BaseAmount*q.QuoteAmount < q.BaseAmount*p.QuoteAmount.
func (p Price) LessThan(q Price) bool {
	lhs := new(uint256.Int).Mul(p.BaseAmount.ensure(), q.QuoteAmount.ensure())
	rhs := new(uint256.Int).Mul(q.BaseAmount.ensure(), p.QuoteAmount.ensure())
	return lhs.Lt(rhs)
}

// Equal reports whether two prices represent the same ratio.
func (p Price) Equal(q Price) bool {
	lhs := new(uint256.Int).Mul(p.BaseAmount.ensure(), q.QuoteAmount.ensure())
	rhs := new(uint256.Int).Mul(q.BaseAmount.ensure(), p.QuoteAmount.ensure())
	return lhs.Eq(rhs)
}

// BlockTime is the head block's timestamp (spec §3: "Time is the head
// block's timestamp, advancing in fixed block intervals"). It is measured
// in whole seconds since the Unix epoch so it serialises deterministically
// and advances only when a block is applied, never from a wall clock.
type BlockTime int64

// Add advances t by the given number of seconds.
func (t BlockTime) Add(seconds int64) BlockTime { return t + BlockTime(seconds) }

// Before reports t < u.
func (t BlockTime) Before(u BlockTime) bool { return t < u }

// After reports t > u.
func (t BlockTime) After(u BlockTime) bool { return t > u }
