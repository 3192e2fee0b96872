package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// AuctionOrder is the spec §3 AuctionOrder entity: a single-leg sell
// that participates in the periodic curation auction match rather than
// resting on a continuous limit book (spec §4.4).
type AuctionOrder struct {
	ID              uint64
	Owner           string
	Sell            types.AssetSymbol
	Want            types.AssetSymbol
	Amount          types.Amount
	MinExchangeRate types.Price // minimum acceptable want/sell rate
	Expiration      types.BlockTime
}

// PrimaryKey implements store.Row.
func (a AuctionOrder) PrimaryKey() uint64 { return a.ID }

// AuctionOrders owns the auction-order table for one sell/want pair.
type AuctionOrders struct {
	table  *store.Table[uint64, AuctionOrder]
	nextID uint64
}

// NewAuctionOrders registers the table for sell/want on s.
func NewAuctionOrders(s *store.Store, sell, want types.AssetSymbol) *AuctionOrders {
	t := store.NewTable[uint64, AuctionOrder](s, "auction_orders:"+bookKey(sell, want))
	return &AuctionOrders{table: t}
}

// Place escrows amount of sell and enters the auction.
func (a *AuctionOrders) Place(l *ledger.Ledger, owner string, sell, want types.AssetSymbol, amount types.Amount, minRate types.Price, expiration types.BlockTime) (uint64, error) {
	if amount.IsZero() {
		return 0, fmt.Errorf("market: auction order amount must be positive")
	}
	if err := l.Transfer(owner, marketEscrowAccount, sell, amount); err != nil {
		return 0, err
	}
	a.nextID++
	order := AuctionOrder{ID: a.nextID, Owner: owner, Sell: sell, Want: want, Amount: amount, MinExchangeRate: minRate, Expiration: expiration}
	if err := a.table.Insert(order); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// Cancel refunds an auction order's escrow to its owner.
func (a *AuctionOrders) Cancel(l *ledger.Ledger, id uint64) error {
	order, ok := a.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown auction order %d", id)
	}
	if err := l.Transfer(marketEscrowAccount, order.Owner, order.Sell, order.Amount); err != nil {
		return err
	}
	return a.table.Remove(id)
}

// SettleAt takes up to maxWork auction orders and settles them against a
// single clearing rate (derived by the caller, typically the paired
// liquidity pool's day-median price): expired orders are refunded,
// orders whose MinExchangeRate the clearing rate satisfies are filled at
// that rate, and the rest stay resting. This collapses the auction to one atomic clearing event
// rather than continuous matching, per spec §4.4's distinction between
// auction and limit orders.
func (a *AuctionOrders) SettleAt(l *ledger.Ledger, clearingRate types.Price, now types.BlockTime, maxWork int) error {
	var ids []uint64
	a.table.All(func(o AuctionOrder) bool {
		if len(ids) >= maxWork {
			return false
		}
		ids = append(ids, o.ID)
		return true
	})
	for _, id := range ids {
		order, ok := a.table.Get(id)
		if !ok {
			continue
		}
		if order.Expiration != 0 && order.Expiration.Before(now) {
			if err := a.Cancel(l, id); err != nil {
				return err
			}
			continue
		}
		if order.MinExchangeRate.LessThan(clearingRate) {
			continue // clearing rate doesn't satisfy this order's floor; leave resting.
		}
		proceeds, err := clearingRate.Mul(order.Amount)
		if err != nil {
			return err
		}
		if err := l.Transfer(marketEscrowAccount, order.Owner, order.Want, proceeds); err != nil {
			return err
		}
		if err := a.table.Remove(id); err != nil {
			return err
		}
	}
	return nil
}
