package market

import (
	"fmt"
	"sort"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability"
)

// CallOrder is the spec §3 CallOrder entity: a debt position backed by
// collateral, valid only for bitassets.
type CallOrder struct {
	ID                    uint64
	Borrower              string
	Debt                  types.AssetSymbol
	Collateral            types.Amount
	CollateralAsset       types.AssetSymbol
	DebtAmount            types.Amount
	TargetCollateralRatioBPS uint32 // 0 means "none set"
}

// PrimaryKey implements store.Row.
func (c CallOrder) PrimaryKey() uint64 { return c.ID }

// collateralizationBPS returns collateral-value/debt-value in basis
// points at the given feed price (quote=collateral asset, base=debt
// asset), i.e. 15000 == 150%.
func (c CallOrder) collateralizationBPS(feed types.Price) (uint32, error) {
	if c.DebtAmount.IsZero() {
		return 0, fmt.Errorf("market: call order has zero debt")
	}
	debtValueInCollateral, err := feed.Mul(c.DebtAmount)
	if err != nil {
		return 0, err
	}
	if debtValueInCollateral.IsZero() {
		return 0, fmt.Errorf("market: feed produced zero debt value")
	}
	ratio, err := c.Collateral.MulDiv(10000, debtValueInCollateral.Uint64())
	if err != nil {
		return 0, err
	}
	return uint32(ratio.Uint64()), nil
}

// CallOrders owns the call-order table for one bitasset, ordered by
// ascending collateralisation so check_call_orders processes the
// weakest positions first (spec §4.4).
type CallOrders struct {
	table   *store.Table[uint64, CallOrder]
	nextID  uint64
}

// NewCallOrders registers the call-order table for symbol on s.
func NewCallOrders(s *store.Store, symbol types.AssetSymbol) *CallOrders {
	t := store.NewTable[uint64, CallOrder](s, "call_orders:"+string(symbol))
	return &CallOrders{table: t}
}

// Open inserts a new call order (borrow debtAmount of the bitasset
// against collateral units), requiring collateralisation at least
// MaintenanceCollateralBPS at the current median feed.
func (c *CallOrders) Open(borrower string, debt, collateralAsset types.AssetSymbol, collateral, debtAmount types.Amount, feed types.Price, minBPS uint32) (uint64, error) {
	c.nextID++
	order := CallOrder{ID: c.nextID, Borrower: borrower, Debt: debt, Collateral: collateral, CollateralAsset: collateralAsset, DebtAmount: debtAmount}
	ratio, err := order.collateralizationBPS(feed)
	if err != nil {
		return 0, err
	}
	if ratio < minBPS {
		return 0, fmt.Errorf("market: call order collateralisation %d%% below maintenance %d%%", ratio/100, minBPS/100)
	}
	if err := c.table.Insert(order); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// AdjustCollateral changes an open call order's collateral by delta
// (signed via add bool).
func (c *CallOrders) AdjustCollateral(id uint64, delta types.Amount, add bool) error {
	return c.table.Modify(id, func(o *CallOrder) {
		if add {
			o.Collateral = o.Collateral.Add(delta)
		} else {
			reduced, err := o.Collateral.Sub(delta)
			if err == nil {
				o.Collateral = reduced
			}
		}
	})
}

// sortedByCollateralization returns call-order ids ascending by
// collateralisation ratio at feed, the iteration order check_call_orders
// must use (spec §4.4).
func (c *CallOrders) sortedByCollateralization(feed types.Price) ([]uint64, error) {
	type ranked struct {
		id  uint64
		bps uint32
	}
	var ranks []ranked
	var outerErr error
	c.table.All(func(o CallOrder) bool {
		bps, err := o.collateralizationBPS(feed)
		if err != nil {
			outerErr = err
			return false
		}
		ranks = append(ranks, ranked{id: o.id(), bps: bps})
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].bps != ranks[j].bps {
			return ranks[i].bps < ranks[j].bps
		}
		return ranks[i].id < ranks[j].id
	})
	ids := make([]uint64, len(ranks))
	for i, r := range ranks {
		ids[i] = r.id
	}
	return ids, nil
}

func (o CallOrder) id() uint64 { return o.ID }

// CheckCallOrders implements spec §4.4's check_call_orders: iterate call
// orders ascending by collateralisation, liquidating any below
// maintenance against the matched limit order book, until either the
// book is exhausted, no more undercollateralised positions remain, or a
// black-swan condition is reached (the weakest position still
// undercollateralised with no opposing liquidity left -- settlement_fund
// becomes the aggregate collateral and settlement_price the median
// feed).
func (e *Engine) CheckCallOrders(bitassets *Bitassets, calls *CallOrders, symbol, collateralAsset types.AssetSymbol, maintenanceBPS uint32) (bool, error) {
	data, ok := bitassets.Get(symbol)
	if !ok {
		return false, fmt.Errorf("market: unknown bitasset %q", symbol)
	}
	if data.SettlementPrice != nil {
		return false, nil // already globally settled.
	}
	feed := data.MedianFeed.SettlementPrice
	if feed.BaseAmount.IsZero() {
		return false, nil // no usable feed yet.
	}

	ids, err := calls.sortedByCollateralization(feed)
	if err != nil {
		return false, err
	}

	for _, id := range ids {
		order, ok := calls.table.Get(id)
		if !ok {
			continue
		}
		bps, err := order.collateralizationBPS(feed)
		if err != nil {
			return false, err
		}
		if bps >= maintenanceBPS {
			break // positions are sorted ascending; nothing weaker remains undercollateralised.
		}

		observability.Market().RecordCallOrderMarginCalled(string(symbol))
		filled, err := e.liquidateAgainstBook(calls, order, feed, maintenanceBPS)
		if err != nil {
			return false, err
		}
		if !filled {
			// No opposing liquidity could absorb this debt: black swan.
			return true, e.triggerGlobalSettlement(bitassets, calls, symbol, feed)
		}
	}
	return false, nil
}

// liquidateAgainstBook closes (or partially closes) an undercollateralised
// call order by filling it as a market taker against the opposing
// limit-order book for debt/collateralAsset -- debt holders resting
// orders to sell their debt-asset units for collateral (spec §4.4:
// liquidation is "matched against the matched limit-order book"). It
// walks that book best-price-first, retiring debt and releasing
// collateral order by order, stopping once the call order's debt is
// fully retired, its collateral is used up, or the book runs dry.
//
// Retired debt is burned out of the counter orders' escrow, the same way
// AssetSettle burns redeemed bitasset units; the collateral paid out is
// minted to each counter order's owner against the call order's own
// Collateral balance, mirroring how settlement_fund pays out of the
// aggregate collateral rather than a per-order ledger escrow (call
// orders never escrow their collateral through the ledger -- Open only
// records it on the row, the same abstraction triggerGlobalSettlement
// already relies on).
//
// Returns false only if, after consuming whatever the book offered, the
// order is still below maintenanceBPS -- the black-swan trigger.
func (e *Engine) liquidateAgainstBook(calls *CallOrders, order CallOrder, feed types.Price, maintenanceBPS uint32) (bool, error) {
	opposing := e.book(order.Debt, order.CollateralAsset)

	remainingDebt := order.DebtAmount
	remainingCollateral := order.Collateral
	var filled []uint64
	var debtTaken []types.Amount
	var collateralPaid []types.Amount

	opposing.byRate.Ascending(func(counter LimitOrder) bool {
		if remainingDebt.IsZero() || remainingCollateral.IsZero() {
			return false
		}
		tradeDebt := counter.ForSale.Min(remainingDebt)
		cost, err := counter.SellPrice.Mul(tradeDebt)
		if err != nil {
			return false
		}
		if remainingCollateral.LessThan(cost) {
			// Collateral runs out before this resting order is fully
			// consumed; cap the trade to what's left.
			affordable, err := counter.SellPrice.Invert().Mul(remainingCollateral)
			if err != nil || affordable.IsZero() {
				return false
			}
			tradeDebt = tradeDebt.Min(affordable)
			cost, err = counter.SellPrice.Mul(tradeDebt)
			if err != nil || tradeDebt.IsZero() {
				return false
			}
		}
		filled = append(filled, counter.ID)
		debtTaken = append(debtTaken, tradeDebt)
		collateralPaid = append(collateralPaid, cost)
		remainingDebt, _ = remainingDebt.Sub(tradeDebt)
		remainingCollateral, _ = remainingCollateral.Sub(cost)
		return true
	})

	for i, id := range filled {
		counter, ok := opposing.orders.Get(id)
		if !ok {
			continue
		}
		if err := e.ledger.Burn(marketEscrowAccount, order.Debt, debtTaken[i]); err != nil {
			return false, err
		}
		if err := e.ledger.Mint(counter.Owner, order.CollateralAsset, collateralPaid[i]); err != nil {
			return false, err
		}
		newForSale, err := counter.ForSale.Sub(debtTaken[i])
		if err != nil {
			return false, err
		}
		if newForSale.IsZero() {
			if err := opposing.orders.Remove(id); err != nil {
				return false, err
			}
		} else if err := opposing.orders.Modify(id, func(o *LimitOrder) { o.ForSale = newForSale }); err != nil {
			return false, err
		}
	}

	if remainingDebt.IsZero() {
		return true, calls.table.Remove(order.ID)
	}

	if err := calls.table.Modify(order.ID, func(o *CallOrder) {
		o.DebtAmount = remainingDebt
		o.Collateral = remainingCollateral
	}); err != nil {
		return false, err
	}
	bps, err := CallOrder{DebtAmount: remainingDebt, Collateral: remainingCollateral}.collateralizationBPS(feed)
	if err != nil {
		return false, err
	}
	return bps >= maintenanceBPS, nil
}

// triggerGlobalSettlement marks a bitasset globally settled: sets
// settlement_price to the current median feed, and settlement_fund to the
// aggregate collateral across every open call order, draining each order
// as it is folded in (spec §4.4). It does not block new borrowing:
// CallOrders.Open does not check the settlement state.
func (e *Engine) triggerGlobalSettlement(bitassets *Bitassets, calls *CallOrders, symbol types.AssetSymbol, feed types.Price) error {
	var total types.Amount
	var ids []uint64
	calls.table.All(func(o CallOrder) bool {
		total = total.Add(o.Collateral)
		ids = append(ids, o.ID)
		return true
	})
	for _, id := range ids {
		if err := calls.table.Remove(id); err != nil {
			return err
		}
	}
	return bitassets.table.Modify(string(symbol), func(row *BitassetData) {
		p := feed
		row.SettlementPrice = &p
		row.SettlementFund = total
	})
}
