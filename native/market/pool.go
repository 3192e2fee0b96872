package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability"
)

// LiquidityPool is the spec §3/§4.4 constant-product pool for one
// ordered asset pair (A < B lexically).
type LiquidityPool struct {
	Symbol    string // synthetic LP asset symbol
	AssetA    types.AssetSymbol
	AssetB    types.AssetSymbol
	BalanceA  types.Amount
	BalanceB  types.Amount
	LPSupply  types.Amount

	hourPrices []priceSample
	dayPrices  []priceSample
}

// PrimaryKey implements store.Row.
func (p LiquidityPool) PrimaryKey() string { return p.Symbol }

type priceSample struct {
	at    types.BlockTime
	price types.Price
}

// Pools owns the liquidity-pool table.
type Pools struct {
	table *store.Table[string, LiquidityPool]
}

// NewPools registers the table on s.
func NewPools(s *store.Store) *Pools {
	return &Pools{table: store.NewTable[string, LiquidityPool](s, "liquidity_pools")}
}

// poolSymbol deterministically names the LP asset for a pair.
func poolSymbol(a, b types.AssetSymbol) string { return string(a) + "-" + string(b) + ".LP" }

// CreatePool opens a new pool for (a,b), a < b lexically, seeded with
// initial liquidity; the LP token supply is minted 1:1 with the smaller
// of the two deposited amounts for a simple, overflow-safe genesis share
// price.
func (p *Pools) CreatePool(a, b types.AssetSymbol, initA, initB types.Amount) (LiquidityPool, error) {
	if a >= b {
		return LiquidityPool{}, fmt.Errorf("market: pool assets must be ordered a < b")
	}
	pool := LiquidityPool{Symbol: poolSymbol(a, b), AssetA: a, AssetB: b, BalanceA: initA, BalanceB: initB, LPSupply: initA.Min(initB)}
	if err := p.table.Insert(pool); err != nil {
		return LiquidityPool{}, err
	}
	return pool, nil
}

// Get returns the pool for (a,b).
func (p *Pools) Get(a, b types.AssetSymbol) (LiquidityPool, bool) {
	return p.table.Get(poolSymbol(a, b))
}

// Price returns the current a/b exchange price (balance_a / balance_b),
// per spec §3.
func (pool LiquidityPool) Price() types.Price {
	return types.Price{BaseAmount: pool.BalanceB, BaseSymbol: pool.AssetB, QuoteAmount: pool.BalanceA, QuoteSymbol: pool.AssetA}
}

// Deposit adds liquidity proportionally, minting LP units proportional
// to the pool's current share price, and transfers both asset legs from
// provider's liquid balance into the pool.
func (p *Pools) Deposit(l *ledger.Ledger, provider string, a, b types.AssetSymbol, amountA, amountB types.Amount) (types.Amount, error) {
	pool, ok := p.Get(a, b)
	if !ok {
		return types.Amount{}, fmt.Errorf("market: no pool for %s/%s", a, b)
	}
	// Proportional deposit: amountB must match amountA * balanceB/balanceA;
	// callers are expected to pre-compute a matching pair. LP units
	// minted are amountA/balanceA of the existing supply.
	minted, err := pool.LPSupply.MulDiv(amountA.Uint64(), pool.BalanceA.Uint64())
	if err != nil {
		return types.Amount{}, err
	}
	if err := l.Transfer(provider, marketEscrowAccount, a, amountA); err != nil {
		return types.Amount{}, err
	}
	if err := l.Transfer(provider, marketEscrowAccount, b, amountB); err != nil {
		return types.Amount{}, err
	}
	if err := p.table.Modify(pool.Symbol, func(row *LiquidityPool) {
		row.BalanceA = row.BalanceA.Add(amountA)
		row.BalanceB = row.BalanceB.Add(amountB)
		row.LPSupply = row.LPSupply.Add(minted)
	}); err != nil {
		return types.Amount{}, err
	}
	return minted, nil
}

// Withdraw burns lpUnits and returns proportional shares of both legs to
// provider.
func (p *Pools) Withdraw(l *ledger.Ledger, provider string, a, b types.AssetSymbol, lpUnits types.Amount) error {
	pool, ok := p.Get(a, b)
	if !ok {
		return fmt.Errorf("market: no pool for %s/%s", a, b)
	}
	outA, err := pool.BalanceA.MulDiv(lpUnits.Uint64(), pool.LPSupply.Uint64())
	if err != nil {
		return err
	}
	outB, err := pool.BalanceB.MulDiv(lpUnits.Uint64(), pool.LPSupply.Uint64())
	if err != nil {
		return err
	}
	if err := p.table.Modify(pool.Symbol, func(row *LiquidityPool) {
		row.BalanceA, _ = row.BalanceA.Sub(outA)
		row.BalanceB, _ = row.BalanceB.Sub(outB)
		row.LPSupply, _ = row.LPSupply.Sub(lpUnits)
	}); err != nil {
		return err
	}
	if err := l.Transfer(marketEscrowAccount, provider, a, outA); err != nil {
		return err
	}
	return l.Transfer(marketEscrowAccount, provider, b, outB)
}

// Exchange swaps amountIn of asset `in` (which must be a or b) for the
// other leg using the constant-product formula
// out = balance_out - (balance_in*balance_out)/(balance_in+amountIn),
// enforcing minOut as the worst-case price guard from spec §4.4's
// "limit-exchange enforces a worst-case price".
func (p *Pools) Exchange(l *ledger.Ledger, trader string, a, b, in types.AssetSymbol, amountIn, minOut types.Amount) (types.Amount, error) {
	pool, ok := p.Get(a, b)
	if !ok {
		return types.Amount{}, fmt.Errorf("market: no pool for %s/%s", a, b)
	}
	var balIn, balOut types.Amount
	var out types.AssetSymbol
	switch in {
	case a:
		balIn, balOut, out = pool.BalanceA, pool.BalanceB, b
	case b:
		balIn, balOut, out = pool.BalanceB, pool.BalanceA, a
	default:
		return types.Amount{}, fmt.Errorf("market: asset %q is not part of pool %s/%s", in, a, b)
	}
	newBalIn := balIn.Add(amountIn)
	product := balIn.Uint64() * balOut.Uint64()
	newBalOutRaw, err := types.NewAmount(product).MulDiv(1, newBalIn.Uint64())
	if err != nil {
		return types.Amount{}, err
	}
	amountOut, err := balOut.Sub(newBalOutRaw)
	if err != nil {
		return types.Amount{}, err
	}
	if amountOut.LessThan(minOut) {
		observability.Market().RecordError("pool_exchange", "below_minimum_out")
		return types.Amount{}, fmt.Errorf("market: exchange would produce %s, below minimum %s", amountOut, minOut)
	}
	if err := l.Transfer(trader, marketEscrowAccount, in, amountIn); err != nil {
		return types.Amount{}, err
	}
	if err := l.Transfer(marketEscrowAccount, trader, out, amountOut); err != nil {
		return types.Amount{}, err
	}
	if err := p.table.Modify(pool.Symbol, func(row *LiquidityPool) {
		switch in {
		case a:
			row.BalanceA = row.BalanceA.Add(amountIn)
			row.BalanceB, _ = row.BalanceB.Sub(amountOut)
		case b:
			row.BalanceB = row.BalanceB.Add(amountIn)
			row.BalanceA, _ = row.BalanceA.Sub(amountOut)
		}
	}); err != nil {
		return types.Amount{}, err
	}
	observability.Market().RecordPoolExchange(pool.Symbol)
	return amountOut, nil
}

// RecordPriceSample appends the current pool price to both the rolling
// 1-hour and 1-day windows, trimming samples older than each window
// (spec §3: "rolling 1-hour and 1-day median prices").
func (p *Pools) RecordPriceSample(a, b types.AssetSymbol, now types.BlockTime) error {
	pool, ok := p.Get(a, b)
	if !ok {
		return fmt.Errorf("market: no pool for %s/%s", a, b)
	}
	sample := priceSample{at: now, price: pool.Price()}
	return p.table.Modify(pool.Symbol, func(row *LiquidityPool) {
		row.hourPrices = trimSamples(append(row.hourPrices, sample), now, 3600)
		row.dayPrices = trimSamples(append(row.dayPrices, sample), now, 86400)
	})
}

func trimSamples(samples []priceSample, now types.BlockTime, window int64) []priceSample {
	cutoff := now.Add(-window)
	out := samples[:0]
	for _, s := range samples {
		if s.at.After(cutoff) || s.at == cutoff {
			out = append(out, s)
		}
	}
	return out
}

// HourMedianPrice returns the median of the rolling 1-hour price window.
func (pool LiquidityPool) HourMedianPrice() (types.Price, bool) { return medianOf(pool.hourPrices) }

// DayMedianPrice returns the median of the rolling 1-day price window.
func (pool LiquidityPool) DayMedianPrice() (types.Price, bool) { return medianOf(pool.dayPrices) }

func medianOf(samples []priceSample) (types.Price, bool) {
	if len(samples) == 0 {
		return types.Price{}, false
	}
	sorted := make([]priceSample, len(samples))
	copy(sorted, samples)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].price.LessThan(sorted[j-1].price); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[len(sorted)/2].price, true
}
