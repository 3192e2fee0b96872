package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// MarginOrder is the spec §3 MarginOrder entity: a credit-pool loan
// combined with a limit order on the borrowed position, per spec §4.4
// "margin orders combine a credit-pool loan with a limit order".
type MarginOrder struct {
	ID                  uint64
	Owner               string
	Debt                types.AssetSymbol
	DebtAmount          types.Amount
	Collateral          types.AssetSymbol
	CollateralAmount    types.Amount
	Position            types.AssetSymbol // the asset the borrowed funds were converted into
	PositionAmount      types.Amount
	StopLossPrice       *types.Price
	TakeProfitPrice     *types.Price
	LimitPrice          *types.Price
	Liquidating         bool
	LastInterestAt      types.BlockTime
}

// PrimaryKey implements store.Row.
func (m MarginOrder) PrimaryKey() uint64 { return m.ID }

// MarginOrders owns the margin-order table.
type MarginOrders struct {
	table  *store.Table[uint64, MarginOrder]
	nextID uint64
}

// NewMarginOrders registers the table on s.
func NewMarginOrders(s *store.Store) *MarginOrders {
	return &MarginOrders{table: store.NewTable[uint64, MarginOrder](s, "margin_orders")}
}

// collateralizationBPS returns collateral value over debt value in basis
// points at the given collateral/debt price (base=collateral,
// quote=debt).
func (m MarginOrder) collateralizationBPS(price types.Price) (uint32, error) {
	if m.DebtAmount.IsZero() {
		return 0, fmt.Errorf("market: margin order has zero debt")
	}
	collateralValueInDebt, err := price.Mul(m.CollateralAmount)
	if err != nil {
		return 0, err
	}
	ratio, err := collateralValueInDebt.MulDiv(10000, m.DebtAmount.Uint64())
	if err != nil {
		return 0, err
	}
	return uint32(ratio.Uint64()), nil
}

// Open borrows debtAmount from the credit pool against collateralAmount
// and immediately exchanges it into position via the liquidity pool,
// enforcing creditOpenRatioBPS at open time (spec §8 invariant 7: "for
// every open margin order, collateralization ≥ margin_open_ratio at
// creation").
func (mo *MarginOrders) Open(l *ledger.Ledger, pools *Pools, credit *CreditPools, owner string, debt, collateral, position types.AssetSymbol, collateralAmount, debtAmount types.Amount, collateralPrice types.Price, openRatioBPS uint32, now types.BlockTime) (uint64, error) {
	if err := l.Transfer(owner, marketEscrowAccount, collateral, collateralAmount); err != nil {
		return 0, err
	}
	collateralValueInDebt, err := collateralPrice.Mul(collateralAmount)
	if err != nil {
		return 0, err
	}
	if err := credit.Borrow(l, marketEscrowAccount, debt, debtAmount, collateralValueInDebt, openRatioBPS); err != nil {
		return 0, err
	}

	var positionAmount types.Amount
	if position == debt {
		positionAmount = debtAmount
	} else {
		a, b := debt, position
		reversed := false
		if a > b {
			a, b = b, a
			reversed = true
		}
		in := debt
		var minOut types.Amount
		out, err := pools.Exchange(l, marketEscrowAccount, a, b, in, debtAmount, minOut)
		if err != nil {
			return 0, err
		}
		_ = reversed
		positionAmount = out
	}

	mo.nextID++
	order := MarginOrder{
		ID: mo.nextID, Owner: owner, Debt: debt, DebtAmount: debtAmount,
		Collateral: collateral, CollateralAmount: collateralAmount,
		Position: position, PositionAmount: positionAmount, LastInterestAt: now,
	}
	bps, err := order.collateralizationBPS(collateralPrice)
	if err != nil {
		return 0, err
	}
	if bps < openRatioBPS {
		return 0, fmt.Errorf("market: margin order collateralisation %d%% below open ratio %d%%", bps/100, openRatioBPS/100)
	}
	if err := mo.table.Insert(order); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// AccrueInterest charges linear interest on an open margin order's debt
// since LastInterestAt, adding it to DebtAmount (spec §4.4: combined
// credit-pool loan accrues interest like any other pool debt).
func (mo *MarginOrders) AccrueInterest(pool CreditPool, id uint64, now types.BlockTime) error {
	order, ok := mo.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown margin order %d", id)
	}
	elapsed := int64(now - order.LastInterestAt)
	if elapsed <= 0 {
		return nil
	}
	interest, err := pool.AccrueInterest(order.DebtAmount, elapsed)
	if err != nil {
		return err
	}
	return mo.table.Modify(id, func(row *MarginOrder) {
		row.DebtAmount = row.DebtAmount.Add(interest)
		row.LastInterestAt = now
	})
}

// CheckTriggers flips Liquidating (or marks for limit conversion) when
// the position price crosses a configured stop-loss, take-profit, or
// limit threshold (spec §4.4: "stop-loss/take-profit/limit prices
// trigger automatic close or conversion to limit order").
func (mo *MarginOrders) CheckTriggers(id uint64, currentPrice types.Price) (bool, error) {
	order, ok := mo.table.Get(id)
	if !ok {
		return false, fmt.Errorf("market: unknown margin order %d", id)
	}
	triggered := false
	if order.StopLossPrice != nil && currentPrice.LessThan(*order.StopLossPrice) {
		triggered = true
	}
	if order.TakeProfitPrice != nil && order.TakeProfitPrice.LessThan(currentPrice) {
		triggered = true
	}
	if order.LimitPrice != nil && !currentPrice.LessThan(*order.LimitPrice) {
		triggered = true
	}
	if triggered && !order.Liquidating {
		if err := mo.table.Modify(id, func(row *MarginOrder) { row.Liquidating = true }); err != nil {
			return false, err
		}
	}
	return triggered, nil
}

// Close liquidates an order flagged Liquidating: converts the position
// back to the debt asset through the liquidity pool, repays the credit
// pool, and returns any remaining collateral and position surplus to
// the owner.
func (mo *MarginOrders) Close(l *ledger.Ledger, pools *Pools, credit *CreditPools, id uint64) error {
	order, ok := mo.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown margin order %d", id)
	}
	if !order.Liquidating {
		return fmt.Errorf("market: margin order %d is not flagged for liquidation", id)
	}

	var proceeds types.Amount
	if order.Position == order.Debt {
		proceeds = order.PositionAmount
	} else {
		a, b := order.Debt, order.Position
		if a > b {
			a, b = b, a
		}
		var minOut types.Amount
		out, err := pools.Exchange(l, marketEscrowAccount, a, b, order.Position, order.PositionAmount, minOut)
		if err != nil {
			return err
		}
		proceeds = out
	}

	repayAmount := proceeds.Min(order.DebtAmount)
	if err := credit.Repay(l, marketEscrowAccount, order.Debt, repayAmount); err != nil {
		return err
	}
	surplusDebt, err := proceeds.Sub(repayAmount)
	if err != nil {
		surplusDebt = types.ZeroAmount()
	}
	if !surplusDebt.IsZero() {
		if err := l.Transfer(marketEscrowAccount, order.Owner, order.Debt, surplusDebt); err != nil {
			return err
		}
	}
	if err := l.Transfer(marketEscrowAccount, order.Owner, order.Collateral, order.CollateralAmount); err != nil {
		return err
	}
	return mo.table.Remove(id)
}
