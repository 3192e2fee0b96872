// Package ledger implements the Balance Ledger (spec component C2): the
// per-(account, asset) sub-balance record and the helpers that are the
// only legal way to mutate it, so that every transfer preserves the
// global supply invariant from spec §8. Grounded on the teacher's
// native/bank/transfer.go (single helper routing every balance mutation)
// generalised from one liquid balance to the full sub-balance set.
package ledger

import (
	"fmt"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/observability"
)

// accountAsset is the composite primary key for the balance table.
type accountAsset struct {
	Account string
	Symbol  types.AssetSymbol
}

func (k accountAsset) String() string { return k.Account + "/" + string(k.Symbol) }

// Balance is one (account, asset) row (spec §3 "AccountBalance").
type Balance struct {
	Account  string
	Symbol   types.AssetSymbol
	Liquid   types.Amount
	Staked   types.Amount
	Reward   types.Amount
	Savings  types.Amount
	Delegated types.Amount
	Receiving types.Amount

	ToStake        types.Amount
	TotalStaked    types.Amount
	StakeRate      types.Amount
	NextStakeTime  types.BlockTime

	ToUnstake       types.Amount
	TotalUnstaked   types.Amount
	UnstakeRate     types.Amount
	NextUnstakeTime types.BlockTime
}

// PrimaryKey implements store.Row; the composite key is serialised as a
// single string so it satisfies the comparable ordered-index constraint.
func (b Balance) PrimaryKey() string { return accountAsset{b.Account, b.Symbol}.String() }

// UnstakingRemainder is total_to_unstake minus total_unstaked, the
// in-flight portion of an unstake schedule still counted against staked
// balance per spec §3's invariant.
func (b Balance) UnstakingRemainder() types.Amount {
	r, err := b.ToUnstake.Sub(b.TotalUnstaked)
	if err != nil {
		return types.ZeroAmount()
	}
	return r
}

// CheckInvariants validates the two per-account-per-asset invariants
// from spec §8 item 2.
func (b Balance) CheckInvariants() error {
	if b.Staked.LessThan(b.Delegated) {
		return fmt.Errorf("ledger: %s/%s staked < delegated", b.Account, b.Symbol)
	}
	avail, err := b.Staked.Sub(b.Delegated)
	if err != nil {
		return err
	}
	avail, err = avail.Sub(b.UnstakingRemainder())
	if err != nil {
		return fmt.Errorf("ledger: %s/%s staked-delegated-unstaking < 0", b.Account, b.Symbol)
	}
	_ = avail
	if b.Receiving.Cmp(types.ZeroAmount()) < 0 {
		return fmt.Errorf("ledger: %s/%s negative receiving balance", b.Account, b.Symbol)
	}
	return nil
}

// Ledger is the C2 component: the balance table plus every mutation
// helper. Every helper that moves units between two sub-balances (or
// between an account and the asset's dynamic-data supply) goes through
// here so that conservation can never be broken by a one-off evaluator.
type Ledger struct {
	balances *store.Table[string, Balance]
	registry *assets.Registry
}

// New wires a Ledger to the store's balance table and the asset registry
// it must keep in lockstep.
func New(s *store.Store, registry *assets.Registry) *Ledger {
	return &Ledger{
		balances: store.NewTable[string, Balance](s, "balances"),
		registry: registry,
	}
}

func (l *Ledger) get(account string, symbol types.AssetSymbol) Balance {
	key := accountAsset{account, symbol}.String()
	b, ok := l.balances.Get(key)
	if !ok {
		b = Balance{Account: account, Symbol: symbol}
	}
	return b
}

func (l *Ledger) put(b Balance) error {
	key := b.PrimaryKey()
	if _, ok := l.balances.Get(key); ok {
		return l.balances.Modify(key, func(row *Balance) { *row = b })
	}
	return l.balances.Insert(b)
}

// Balance returns a snapshot of the row for (account, symbol).
func (l *Ledger) Balance(account string, symbol types.AssetSymbol) Balance {
	return l.get(account, symbol)
}

// field selects one mutable sub-balance of Balance for the generic
// credit/debit helpers below.
type field int

const (
	fieldLiquid field = iota
	fieldStaked
	fieldReward
	fieldSavings
	fieldDelegated
	fieldReceiving
)

func getField(b Balance, f field) types.Amount {
	switch f {
	case fieldLiquid:
		return b.Liquid
	case fieldStaked:
		return b.Staked
	case fieldReward:
		return b.Reward
	case fieldSavings:
		return b.Savings
	case fieldDelegated:
		return b.Delegated
	case fieldReceiving:
		return b.Receiving
	}
	return types.ZeroAmount()
}

func setField(b *Balance, f field, v types.Amount) {
	switch f {
	case fieldLiquid:
		b.Liquid = v
	case fieldStaked:
		b.Staked = v
	case fieldReward:
		b.Reward = v
	case fieldSavings:
		b.Savings = v
	case fieldDelegated:
		b.Delegated = v
	case fieldReceiving:
		b.Receiving = v
	}
}

func (f field) supplyField() assets.SupplyField {
	switch f {
	case fieldLiquid:
		return assets.FieldLiquid
	case fieldStaked:
		return assets.FieldStaked
	case fieldReward:
		return assets.FieldReward
	case fieldSavings:
		return assets.FieldSavings
	case fieldDelegated:
		return assets.FieldDelegated
	case fieldReceiving:
		return assets.FieldReceiving
	}
	panic("ledger: unknown field")
}

// transferField moves amount from one account's field to another
// account's field (or the same account, different field), leaving total
// supply untouched. Transfer and SlashStaked route through it; Mint,
// Burn, MintStaked and the stake/unstake schedule, delegation and
// savings helpers update the balance rows directly.
func (l *Ledger) transferField(fromAcct string, fromField field, toAcct string, toField field, symbol types.AssetSymbol, amount types.Amount) error {
	if amount.IsZero() {
		return nil
	}
	from := l.get(fromAcct, symbol)
	cur := getField(from, fromField)
	next, err := cur.Sub(amount)
	if err != nil {
		return fmt.Errorf("ledger: insufficient %s balance for %s: %w", fieldName(fromField), fromAcct, err)
	}
	setField(&from, fromField, next)
	if err := from.CheckInvariants(); err != nil {
		return err
	}
	if err := l.put(from); err != nil {
		return err
	}

	to := l.get(toAcct, symbol)
	setField(&to, toField, getField(to, toField).Add(amount))
	if err := l.put(to); err != nil {
		return err
	}
	if fromField != toField {
		if err := l.registry.MoveSupply(symbol, fromField.supplyField(), toField.supplyField(), amount); err != nil {
			return err
		}
	}
	return nil
}

func fieldName(f field) string {
	switch f {
	case fieldLiquid:
		return "liquid"
	case fieldStaked:
		return "staked"
	case fieldReward:
		return "reward"
	case fieldSavings:
		return "savings"
	case fieldDelegated:
		return "delegated"
	case fieldReceiving:
		return "receiving"
	}
	return "unknown"
}

// Transfer moves amount of symbol from->to's liquid balances (S1 in
// spec §8).
func (l *Ledger) Transfer(from, to string, symbol types.AssetSymbol, amount types.Amount) error {
	if err := l.transferField(from, fieldLiquid, to, fieldLiquid, symbol, amount); err != nil {
		return err
	}
	observability.Events().RecordTransfer(string(symbol))
	return nil
}

// Mint credits amount of symbol to account's liquid balance and the
// asset's total supply; used by genesis and reward-engine payouts.
func (l *Ledger) Mint(account string, symbol types.AssetSymbol, amount types.Amount) error {
	if amount.IsZero() {
		return nil
	}
	b := l.get(account, symbol)
	b.Liquid = b.Liquid.Add(amount)
	if err := l.put(b); err != nil {
		return err
	}
	return l.registry.Mint(symbol, assets.FieldLiquid, amount)
}

// MintStaked credits amount of symbol directly to account's staked
// balance and the asset's total/staked supply, used by the reward
// engine's "a staked portion of every claimed reward converts directly
// to staked balance" rule (spec §4.6) so the conversion never passes
// through liquid.
func (l *Ledger) MintStaked(account string, symbol types.AssetSymbol, amount types.Amount) error {
	if amount.IsZero() {
		return nil
	}
	b := l.get(account, symbol)
	b.Staked = b.Staked.Add(amount)
	if err := l.put(b); err != nil {
		return err
	}
	return l.registry.Mint(symbol, assets.FieldStaked, amount)
}

// Burn debits amount of symbol from account's liquid balance and the
// asset's total supply.
func (l *Ledger) Burn(account string, symbol types.AssetSymbol, amount types.Amount) error {
	if amount.IsZero() {
		return nil
	}
	b := l.get(account, symbol)
	next, err := b.Liquid.Sub(amount)
	if err != nil {
		return err
	}
	b.Liquid = next
	if err := l.put(b); err != nil {
		return err
	}
	return l.registry.Burn(symbol, assets.FieldLiquid, amount)
}

// SlashStaked moves amount of symbol directly from one account's staked
// balance to another's, without passing through liquid, for the producer
// protocol's double-sign/equivocation penalty (spec §4.8): the reporter is
// paid out of the violator's bonded stake, not the violator's spendable
// funds.
func (l *Ledger) SlashStaked(from, to string, symbol types.AssetSymbol, amount types.Amount) error {
	return l.transferField(from, fieldStaked, to, fieldStaked, symbol, amount)
}
