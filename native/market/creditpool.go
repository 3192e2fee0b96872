package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// CreditPool is the spec §3/§4.4 per-asset lending pool: depositors mint
// a derived credit-pool asset against base_balance; borrowers draw
// borrowed_balance against collateral priced in a paired asset.
type CreditPool struct {
	BaseAsset        types.AssetSymbol
	BaseBalance      types.Amount
	BorrowedBalance  types.Amount
	CreditAssetSupply types.Amount
	LastCreditPrice  types.Price // base_balance/credit_asset_supply at last update
	MinInterestBPS   uint32
	VariableInterestBPS uint32
}

// PrimaryKey implements store.Row.
func (p CreditPool) PrimaryKey() string { return string(p.BaseAsset) }

// CreditPools owns the credit-pool table.
type CreditPools struct {
	table *store.Table[string, CreditPool]
}

// NewCreditPools registers the table on s.
func NewCreditPools(s *store.Store) *CreditPools {
	return &CreditPools{table: store.NewTable[string, CreditPool](s, "credit_pools")}
}

// Open creates a new credit pool for baseAsset seeded with an initial
// deposit, minting the derived credit-asset supply 1:1 for a simple
// genesis share price.
func (c *CreditPools) Open(baseAsset types.AssetSymbol, initBase types.Amount, minBPS, variableBPS uint32) error {
	return c.table.Insert(CreditPool{
		BaseAsset:           baseAsset,
		BaseBalance:         initBase,
		CreditAssetSupply:   initBase,
		MinInterestBPS:      minBPS,
		VariableInterestBPS: variableBPS,
	})
}

// Get returns the pool for baseAsset.
func (c *CreditPools) Get(baseAsset types.AssetSymbol) (CreditPool, bool) { return c.table.Get(string(baseAsset)) }

// utilizationBPS returns borrowed_balance / (base_balance+borrowed_balance)
// in basis points -- the unlent portion has already left base_balance on
// draw, so total pool size is base+borrowed.
func (p CreditPool) utilizationBPS() uint32 {
	total := p.BaseBalance.Add(p.BorrowedBalance)
	if total.IsZero() {
		return 0
	}
	v, err := p.BorrowedBalance.MulDiv(10000, total.Uint64())
	if err != nil {
		return 0
	}
	return uint32(v.Uint64())
}

// InterestRateBPS implements spec §4.4's `pool.interest_rate(min, variable)`:
// the minimum rate plus the variable rate scaled by utilisation.
func (p CreditPool) InterestRateBPS() uint32 {
	util := p.utilizationBPS()
	variable := uint64(p.VariableInterestBPS) * uint64(util) / 10000
	return p.MinInterestBPS + uint32(variable)
}

// Deposit mints credit-asset units proportional to the pool's current
// share price and moves baseAmount from provider's liquid balance into
// the pool.
func (c *CreditPools) Deposit(l *ledger.Ledger, provider string, baseAsset types.AssetSymbol, baseAmount types.Amount) (types.Amount, error) {
	pool, ok := c.Get(baseAsset)
	if !ok {
		return types.Amount{}, fmt.Errorf("market: no credit pool for %s", baseAsset)
	}
	total := pool.BaseBalance.Add(pool.BorrowedBalance)
	var minted types.Amount
	if total.IsZero() || pool.CreditAssetSupply.IsZero() {
		minted = baseAmount
	} else {
		v, err := pool.CreditAssetSupply.MulDiv(baseAmount.Uint64(), total.Uint64())
		if err != nil {
			return types.Amount{}, err
		}
		minted = v
	}
	if err := l.Transfer(provider, marketEscrowAccount, baseAsset, baseAmount); err != nil {
		return types.Amount{}, err
	}
	if err := c.table.Modify(string(baseAsset), func(row *CreditPool) {
		row.BaseBalance = row.BaseBalance.Add(baseAmount)
		row.CreditAssetSupply = row.CreditAssetSupply.Add(minted)
	}); err != nil {
		return types.Amount{}, err
	}
	return minted, nil
}

// Withdraw burns creditUnits and returns the provider's proportional
// share of base_balance (the lent-out portion is unavailable until
// repaid, so a withdrawal larger than base_balance fails).
func (c *CreditPools) Withdraw(l *ledger.Ledger, provider string, baseAsset types.AssetSymbol, creditUnits types.Amount) error {
	pool, ok := c.Get(baseAsset)
	if !ok {
		return fmt.Errorf("market: no credit pool for %s", baseAsset)
	}
	total := pool.BaseBalance.Add(pool.BorrowedBalance)
	out, err := total.MulDiv(creditUnits.Uint64(), pool.CreditAssetSupply.Uint64())
	if err != nil {
		return err
	}
	if pool.BaseBalance.LessThan(out) {
		return fmt.Errorf("market: credit pool %s has insufficient liquidity for withdrawal", baseAsset)
	}
	if err := c.table.Modify(string(baseAsset), func(row *CreditPool) {
		row.BaseBalance, _ = row.BaseBalance.Sub(out)
		row.CreditAssetSupply, _ = row.CreditAssetSupply.Sub(creditUnits)
	}); err != nil {
		return err
	}
	return l.Transfer(marketEscrowAccount, provider, baseAsset, out)
}

// Borrow draws amount from the pool against collateral, enforcing spec
// §4.4's credit_open_ratio at the supplied hour-median collateral price
// (collateral value must be ≥ openRatioBPS/10000 × debt value).
func (c *CreditPools) Borrow(l *ledger.Ledger, borrower string, baseAsset types.AssetSymbol, amount types.Amount, collateralValue types.Amount, openRatioBPS uint32) error {
	pool, ok := c.Get(baseAsset)
	if !ok {
		return fmt.Errorf("market: no credit pool for %s", baseAsset)
	}
	if pool.BaseBalance.LessThan(amount) {
		return fmt.Errorf("market: credit pool %s has insufficient liquidity", baseAsset)
	}
	required, err := amount.MulDivRoundUp(uint64(openRatioBPS), 10000)
	if err != nil {
		return err
	}
	if collateralValue.LessThan(required) {
		return fmt.Errorf("market: collateral value %s below required %s for borrow of %s", collateralValue, required, amount)
	}
	if err := c.table.Modify(string(baseAsset), func(row *CreditPool) {
		row.BaseBalance, _ = row.BaseBalance.Sub(amount)
		row.BorrowedBalance = row.BorrowedBalance.Add(amount)
	}); err != nil {
		return err
	}
	return l.Mint(borrower, baseAsset, amount)
}

// Repay returns amount of debt to the pool, burning it from the
// repaying account; interest already folded into amount by the caller.
func (c *CreditPools) Repay(l *ledger.Ledger, repayer string, baseAsset types.AssetSymbol, amount types.Amount) error {
	if err := l.Burn(repayer, baseAsset, amount); err != nil {
		return err
	}
	return c.table.Modify(string(baseAsset), func(row *CreditPool) {
		row.BaseBalance = row.BaseBalance.Add(amount)
		row.BorrowedBalance, _ = row.BorrowedBalance.Sub(amount)
	})
}

// AccrueInterest charges linear interest on debtAmount over elapsedSecs
// at the pool's current InterestRateBPS, annualised over a 365-day year,
// per spec §4.4 "interest accrues linearly over time".
func (p CreditPool) AccrueInterest(debtAmount types.Amount, elapsedSecs int64) (types.Amount, error) {
	const secondsPerYear = 365 * 86400
	rateBPS := p.InterestRateBPS()
	scaled, err := debtAmount.MulDiv(uint64(rateBPS), 10000)
	if err != nil {
		return types.Amount{}, err
	}
	return scaled.MulDiv(uint64(elapsedSecs), secondsPerYear)
}
