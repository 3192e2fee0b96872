// Package market implements the Market Engine (spec component C4):
// limit order books, bitasset price feeds and margin calls, global
// settlement, liquidity pools, and credit pools. Grounded on the
// teacher's native/swap/engine.go (order lifecycle + oracle feed shape)
// and native/lending/engine.go + interest.go (collateralised borrowing,
// interest accrual, liquidation thresholds).
package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability"
)

// LimitOrder is the spec §3 LimitOrder entity.
type LimitOrder struct {
	ID         uint64
	Owner      string
	ForSale    types.Amount
	SellPrice  types.Price // base = asset for sale, quote = asset wanted
	CreatedAt  types.BlockTime
	Expiration types.BlockTime
}

// PrimaryKey implements store.Row.
func (o LimitOrder) PrimaryKey() uint64 { return o.ID }

// bookKey groups the order book by asset pair: orders selling Sell for
// Want are matched against the mirrored book selling Want for Sell.
func bookKey(sell, want types.AssetSymbol) string { return string(sell) + "/" + string(want) }

// Book is one side of a limit-order market: all orders selling `Sell`
// for `Want`, ordered best-price-first with creation-time and id
// tie-breaks (spec §4.4: "better price wins; at equal price, earlier
// creation wins; at equal time, lower id wins").
type Book struct {
	orders *store.Table[uint64, LimitOrder]
	byRate *store.OrderedIndexHandle[uint64, LimitOrder, rateKey]
}

// rateKey orders asc by (quote/base) rate then by creation time then id,
// i.e. the best *selling* price (fewest quote units wanted per base
// unit) sorts first.
type rateKey struct {
	quotePerBaseNum uint64
	quotePerBaseDen uint64
	createdAt       int64
	id              uint64
}

func lessRateKey(a, b rateKey) bool {
	lhs := a.quotePerBaseNum * b.quotePerBaseDen
	rhs := b.quotePerBaseNum * a.quotePerBaseDen
	if lhs != rhs {
		return lhs < rhs
	}
	if a.createdAt != b.createdAt {
		return a.createdAt < b.createdAt
	}
	return a.id < b.id
}

// Engine owns every order book and order-id counter; one per chain.
type Engine struct {
	store   *store.Store
	ledger  *ledger.Ledger
	books   map[string]*Book
	nextID  uint64
}

// New constructs a market Engine bound to the shared store and ledger.
func New(s *store.Store, l *ledger.Ledger) *Engine {
	return &Engine{store: s, ledger: l, books: make(map[string]*Book)}
}

func (e *Engine) book(sell, want types.AssetSymbol) *Book {
	key := bookKey(sell, want)
	b, ok := e.books[key]
	if ok {
		return b
	}
	tableName := "limit_orders:" + key
	t := store.NewTable[uint64, LimitOrder](e.store, tableName)
	idx := store.AddIndex(t, store.IndexSpec[uint64, LimitOrder, rateKey]{
		Name: "by_rate",
		KeyFn: func(o LimitOrder) rateKey {
			return rateKey{
				quotePerBaseNum: o.SellPrice.QuoteAmount.Uint64(),
				quotePerBaseDen: o.SellPrice.BaseAmount.Uint64(),
				createdAt:       int64(o.CreatedAt),
				id:              o.ID,
			}
		},
		Less: lessRateKey,
	}).Bind(t)
	b = &Book{orders: t, byRate: idx}
	e.books[key] = b
	return b
}

// PlaceLimitOrder opens a new order selling `forSale` units of sell for
// at least sellPrice (quote/base), matching immediately against the
// mirrored book. fillOrKill rejects any remainder instead of resting it.
func (e *Engine) PlaceLimitOrder(owner string, sell, want types.AssetSymbol, forSale types.Amount, sellPrice types.Price, expiration, now types.BlockTime, fillOrKill bool) (uint64, error) {
	if forSale.IsZero() {
		return 0, fmt.Errorf("market: order amount must be positive")
	}
	bal := e.ledger.Balance(owner, sell)
	if bal.Liquid.LessThan(forSale) {
		observability.Market().RecordError("place_limit_order", "insufficient_balance")
		return 0, fmt.Errorf("market: insufficient liquid %s balance", sell)
	}
	if err := e.ledger.Transfer(owner, marketEscrowAccount, sell, forSale); err != nil {
		return 0, err
	}

	e.nextID++
	order := LimitOrder{ID: e.nextID, Owner: owner, ForSale: forSale, SellPrice: sellPrice, CreatedAt: now, Expiration: expiration}
	observability.Market().RecordOrderPlaced(bookKey(sell, want), "limit")

	remaining, err := e.matchAgainstBook(&order, sell, want)
	if err != nil {
		return 0, err
	}
	if remaining.IsZero() {
		return order.ID, nil
	}
	if fillOrKill {
		// Refund whatever wasn't matched and reject the remainder.
		if err := e.ledger.Transfer(marketEscrowAccount, owner, sell, remaining); err != nil {
			return 0, err
		}
		observability.Market().RecordError("place_limit_order", "fill_or_kill_unfilled")
		return 0, fmt.Errorf("market: fill-or-kill order could not be fully filled")
	}
	order.ForSale = remaining
	book := e.book(sell, want)
	if err := book.orders.Insert(order); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// marketEscrowAccount holds units backing resting limit orders; it is an
// internal ledger account, never reachable by ordinary transfer
// operations.
const marketEscrowAccount = "__market_escrow__"

// matchAgainstBook fills `order` against the opposing book (selling
// `want` for `sell`) best-price-first until either order is fully
// filled or the book no longer crosses order's price. Returns the
// unfilled remainder of order.ForSale.
func (e *Engine) matchAgainstBook(order *LimitOrder, sell, want types.AssetSymbol) (types.Amount, error) {
	opposing := e.book(want, sell)
	remaining := order.ForSale
	var filled []uint64
	var fillAmounts []types.Amount

	opposing.byRate.Ascending(func(counter LimitOrder) bool {
		if remaining.IsZero() {
			return false
		}
		// counter sells `want` for `sell` at counter.SellPrice
		// (base=want, quote=sell); our order crosses it iff
		// order.SellPrice (base=sell,quote=want) is the same or better,
		// i.e. 1/order.SellPrice <= counter.SellPrice.
		if !crosses(order.SellPrice, counter.SellPrice) {
			return false
		}
		tradeBase := counter.ForSale.Min(remaining)
		filled = append(filled, counter.ID)
		fillAmounts = append(fillAmounts, tradeBase)
		remaining, _ = remaining.Sub(tradeBase)
		return true
	})

	for i, id := range filled {
		counter, ok := opposing.orders.Get(id)
		if !ok {
			continue
		}
		tradeWant := fillAmounts[i] // units of `want` leaving the counter order
		tradeSellEquivalent, err := counter.SellPrice.Mul(tradeWant)
		if err != nil {
			return remaining, err
		}
		// Deliver: our side receives `want` units from the counter's
		// escrow; the counter receives `sell` units from our escrow.
		if err := e.ledger.Transfer(marketEscrowAccount, order.Owner, want, tradeWant); err != nil {
			return remaining, err
		}
		if err := e.ledger.Transfer(marketEscrowAccount, counter.Owner, sell, tradeSellEquivalent); err != nil {
			return remaining, err
		}
		observability.Market().RecordOrderMatched(bookKey(sell, want))
		newForSale, err := counter.ForSale.Sub(tradeWant)
		if err != nil {
			return remaining, err
		}
		if newForSale.IsZero() {
			if err := opposing.orders.Remove(id); err != nil {
				return remaining, err
			}
		} else {
			if err := opposing.orders.Modify(id, func(o *LimitOrder) { o.ForSale = newForSale }); err != nil {
				return remaining, err
			}
		}
	}
	return remaining, nil
}

// crosses reports whether a resting order at restingPrice would accept a
// taker quoting takerPrice for the mirrored pair: the taker's
// quote/base ratio must be at least as generous as the resting order's
// implied rate.
func crosses(taker, resting types.Price) bool {
	// taker: base=sell, quote=want. resting: base=want, quote=sell.
	// Taker offers quote(want)/base(sell) = taker.QuoteAmount/taker.BaseAmount.
	// Resting wants sell/want = resting.QuoteAmount/resting.BaseAmount of
	// the taker's asset per unit of want, i.e. taker must offer at least
	// that many `want` per `sell`... expressed as taker.Quote/taker.Base
	// >= resting.Base/resting.Quote.
	lhs := taker.QuoteAmount.Uint64() * resting.QuoteAmount.Uint64()
	rhs := taker.BaseAmount.Uint64() * resting.BaseAmount.Uint64()
	return lhs >= rhs
}

// CancelLimitOrder removes a resting order and refunds its remaining
// escrowed balance to its owner.
func (e *Engine) CancelLimitOrder(sell, want types.AssetSymbol, id uint64) error {
	book := e.book(sell, want)
	order, ok := book.orders.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown order %d", id)
	}
	if err := e.ledger.Transfer(marketEscrowAccount, order.Owner, sell, order.ForSale); err != nil {
		return err
	}
	return book.orders.Remove(id)
}

// ExpireLimitOrders sweeps every order past its expiration on both sides
// of sell/want, refunding escrow, bounded by maxWork per spec §5.
func (e *Engine) ExpireLimitOrders(sell, want types.AssetSymbol, now types.BlockTime, maxWork int) error {
	book := e.book(sell, want)
	var expired []uint64
	book.orders.All(func(o LimitOrder) bool {
		if len(expired) >= maxWork {
			return false
		}
		if o.Expiration != 0 && o.Expiration.Before(now) {
			expired = append(expired, o.ID)
		}
		return true
	})
	for _, id := range expired {
		if err := e.CancelLimitOrder(sell, want, id); err != nil {
			return err
		}
	}
	return nil
}
