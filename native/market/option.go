package market

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// OptionPosition is long or short, spec §3 OptionOrder "option position".
type OptionPosition int

const (
	// OptionLong holds the right to exercise.
	OptionLong OptionPosition = iota
	// OptionShort has written the option and holds the collateral.
	OptionShort
)

// OptionOrder is the spec §3 OptionOrder entity: a European-style
// call written against underlying_amount of the underlying asset at
// strike, cash-settled in the strike asset's quote leg at exercise.
type OptionOrder struct {
	ID               uint64
	Owner            string
	Underlying       types.AssetSymbol
	UnderlyingAmount types.Amount
	Position         OptionPosition
	Strike           types.Price // base=underlying, quote=settlement asset
	Expiration       types.BlockTime
	Exercised        bool
}

// PrimaryKey implements store.Row.
func (o OptionOrder) PrimaryKey() uint64 { return o.ID }

// OptionOrders owns the option-order table for one underlying/strike
// settlement asset pair.
type OptionOrders struct {
	table  *store.Table[uint64, OptionOrder]
	nextID uint64
}

// NewOptionOrders registers the table on s.
func NewOptionOrders(s *store.Store, underlying, settlement types.AssetSymbol) *OptionOrders {
	t := store.NewTable[uint64, OptionOrder](s, "option_orders:"+bookKey(underlying, settlement))
	return &OptionOrders{table: t}
}

// Write opens a short position: the writer escrows underlyingAmount as
// collateral and the order is available to be taken.
func (oo *OptionOrders) Write(l *ledger.Ledger, writer string, underlying types.AssetSymbol, underlyingAmount types.Amount, strike types.Price, expiration types.BlockTime) (uint64, error) {
	if err := l.Transfer(writer, marketEscrowAccount, underlying, underlyingAmount); err != nil {
		return 0, err
	}
	oo.nextID++
	order := OptionOrder{ID: oo.nextID, Owner: writer, Underlying: underlying, UnderlyingAmount: underlyingAmount, Position: OptionShort, Strike: strike, Expiration: expiration}
	if err := oo.table.Insert(order); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// Take transfers a written option's long side to holder in exchange for
// the premium (paid peer-to-peer by the caller's evaluator before
// invoking Take; premium pricing is an evaluator concern, not this
// entity's).
func (oo *OptionOrders) Take(id uint64, holder string) error {
	order, ok := oo.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown option order %d", id)
	}
	if order.Position != OptionShort {
		return fmt.Errorf("market: option order %d already has a long holder", id)
	}
	return oo.table.Modify(id, func(row *OptionOrder) {
		row.Owner = holder
		row.Position = OptionLong
	})
}

// Exercise settles an in-the-money long position before expiration:
// pays the long holder the intrinsic value (settlementPrice - strike)
// per underlying unit, funded from the escrowed collateral, and returns
// the remaining collateral... exercise is all-or-nothing against the
// full UnderlyingAmount.
func (oo *OptionOrders) Exercise(l *ledger.Ledger, writer string, id uint64, settlementPrice types.Price, now types.BlockTime) error {
	order, ok := oo.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown option order %d", id)
	}
	if order.Position != OptionLong {
		return fmt.Errorf("market: option order %d has no long holder to exercise", id)
	}
	if order.Exercised {
		return fmt.Errorf("market: option order %d already exercised", id)
	}
	if order.Expiration != 0 && order.Expiration.Before(now) {
		return fmt.Errorf("market: option order %d has expired", id)
	}
	if !settlementPrice.LessThan(order.Strike) {
		return fmt.Errorf("market: option order %d is not in the money", id)
	}
	intrinsicPerUnit, err := settlementPrice.QuoteAmount.Sub(order.Strike.QuoteAmount)
	if err != nil {
		return err
	}
	payout, err := intrinsicPerUnit.MulDiv(order.UnderlyingAmount.Uint64(), settlementPrice.BaseAmount.Uint64())
	if err != nil {
		return err
	}
	payout = payout.Min(order.UnderlyingAmount)
	if err := l.Transfer(marketEscrowAccount, order.Owner, order.Underlying, payout); err != nil {
		return err
	}
	remainder, err := order.UnderlyingAmount.Sub(payout)
	if err != nil {
		return err
	}
	if !remainder.IsZero() {
		if err := l.Transfer(marketEscrowAccount, writer, order.Underlying, remainder); err != nil {
			return err
		}
	}
	return oo.table.Modify(id, func(row *OptionOrder) { row.Exercised = true })
}

// Expire returns the full escrowed collateral to writer once an
// unexercised option passes its expiration.
func (oo *OptionOrders) Expire(l *ledger.Ledger, writer string, id uint64, now types.BlockTime) error {
	order, ok := oo.table.Get(id)
	if !ok {
		return fmt.Errorf("market: unknown option order %d", id)
	}
	if order.Exercised {
		return fmt.Errorf("market: option order %d already exercised", id)
	}
	if order.Expiration == 0 || !order.Expiration.Before(now) {
		return fmt.Errorf("market: option order %d has not yet expired", id)
	}
	if err := l.Transfer(marketEscrowAccount, writer, order.Underlying, order.UnderlyingAmount); err != nil {
		return err
	}
	return oo.table.Remove(id)
}
