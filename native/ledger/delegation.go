package ledger

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
)

// DelegationKey identifies one delegator->delegatee relationship for one
// asset.
type DelegationKey struct {
	Delegator string
	Delegatee string
	Symbol    types.AssetSymbol
}

func (k DelegationKey) String() string {
	return k.Delegator + ">" + k.Delegatee + "/" + string(k.Symbol)
}

// Delegation is the spec §4.3 asset-delegation record: staked units the
// delegator has made available to the delegatee's receiving balance.
type Delegation struct {
	Delegator string
	Delegatee string
	Symbol    types.AssetSymbol
	Amount    types.Amount

	// PendingDecrease/ExpiresAt describe a decrease in flight: it still
	// counts against the delegator's delegated balance but has already
	// been removed from the delegatee's receiving balance, until the
	// expiration interval unlocks it back to the delegator.
	PendingDecrease types.Amount
	ExpiresAt       types.BlockTime
}

// PrimaryKey implements store.Row.
func (d Delegation) PrimaryKey() string {
	return DelegationKey{d.Delegator, d.Delegatee, d.Symbol}.String()
}

// DelegationExpirationInterval is the unlock delay for decreasing
// delegations (spec §4.3). It is a package variable; nothing sets it
// from the chain parameters.
var DelegationExpirationInterval int64 = 5 * 24 * 3600

// Delegations is a thin table wrapper kept alongside Ledger so evaluators
// can look up and mutate delegation records through the same undo
// discipline as balances.
type Delegations struct {
	table *store.Table[string, Delegation]
}

// NewDelegations registers the delegation table on s.
func NewDelegations(s *store.Store) *Delegations {
	return &Delegations{table: store.NewTable[string, Delegation](s, "delegations")}
}

// Delegate sets the delegation from delegator to delegatee to newTotal.
// Increases take effect immediately; decreases are deferred per spec §4.3.
func (l *Ledger) Delegate(d *Delegations, delegator, delegatee string, symbol types.AssetSymbol, newTotal types.Amount, now types.BlockTime) error {
	key := DelegationKey{delegator, delegatee, symbol}.String()
	existing, ok := d.table.Get(key)
	if !ok {
		existing = Delegation{Delegator: delegator, Delegatee: delegatee, Symbol: symbol}
	}
	current := existing.Amount
	switch {
	case newTotal.Cmp(current) > 0:
		delta, err := newTotal.Sub(current)
		if err != nil {
			return err
		}
		delegatorBal := l.get(delegator, symbol)
		unencumbered, err := delegatorBal.Staked.Sub(delegatorBal.Delegated)
		if err != nil || unencumbered.LessThan(delta) {
			return fmt.Errorf("ledger: insufficient unencumbered staked balance to delegate")
		}
		delegatorBal.Delegated = delegatorBal.Delegated.Add(delta)
		if err := l.put(delegatorBal); err != nil {
			return err
		}
		delegateeBal := l.get(delegatee, symbol)
		delegateeBal.Receiving = delegateeBal.Receiving.Add(delta)
		if err := l.put(delegateeBal); err != nil {
			return err
		}
		existing.Amount = newTotal
	case newTotal.Cmp(current) < 0:
		delta, err := current.Sub(newTotal)
		if err != nil {
			return err
		}
		delegateeBal := l.get(delegatee, symbol)
		recv, err := delegateeBal.Receiving.Sub(delta)
		if err != nil {
			return fmt.Errorf("ledger: delegatee receiving balance underflow")
		}
		delegateeBal.Receiving = recv
		if err := l.put(delegateeBal); err != nil {
			return err
		}
		existing.Amount = newTotal
		existing.PendingDecrease = existing.PendingDecrease.Add(delta)
		existing.ExpiresAt = now.Add(DelegationExpirationInterval)
	default:
		return nil
	}
	if ok {
		return d.table.Modify(key, func(row *Delegation) { *row = existing })
	}
	return d.table.Insert(existing)
}

// ReleaseExpiredDecreases runs during maintenance: any pending decrease
// whose expiry has elapsed returns the delegated units to the
// delegator's unencumbered staked balance by shrinking Delegated.
func (l *Ledger) ReleaseExpiredDecreases(d *Delegations, now types.BlockTime) error {
	var toRelease []string
	d.table.All(func(row Delegation) bool {
		if !row.PendingDecrease.IsZero() && !row.ExpiresAt.After(now) {
			toRelease = append(toRelease, row.PrimaryKey())
		}
		return true
	})
	for _, key := range toRelease {
		row, ok := d.table.Get(key)
		if !ok {
			continue
		}
		delegatorBal := l.get(row.Delegator, row.Symbol)
		released, err := delegatorBal.Delegated.Sub(row.PendingDecrease)
		if err != nil {
			return err
		}
		delegatorBal.Delegated = released
		if err := l.put(delegatorBal); err != nil {
			return err
		}
		if err := d.table.Modify(key, func(r *Delegation) {
			r.PendingDecrease = types.ZeroAmount()
			r.ExpiresAt = 0
		}); err != nil {
			return err
		}
	}
	return nil
}
