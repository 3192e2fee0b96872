package ledger

import (
	"fmt"

	"chainforge/core/assets"
	"chainforge/core/types"
)

// StakeInterval is the fixed period between scheduled stake/unstake
// advancements. It is a package variable; nothing copies the chain
// parameters' StakeIntervalSecs into it.
var StakeInterval int64 = 7 * 24 * 3600 // one week, in seconds.

// ScheduleStake sets up (or cancels, if amount is zero) a linear stake
// schedule for account: amount/intervals moves from liquid to staked
// every StakeInterval until amount is exhausted (spec §4.3).
func (l *Ledger) ScheduleStake(account string, symbol types.AssetSymbol, amount types.Amount, intervals uint32, now types.BlockTime) error {
	b := l.get(account, symbol)
	if amount.IsZero() {
		b.ToStake = types.ZeroAmount()
		b.TotalStaked = types.ZeroAmount()
		b.StakeRate = types.ZeroAmount()
		b.NextStakeTime = 0
		return l.put(b)
	}
	if intervals == 0 {
		return fmt.Errorf("ledger: stake intervals must be > 0")
	}
	if b.Liquid.LessThan(amount) {
		return fmt.Errorf("ledger: insufficient liquid balance to schedule stake")
	}
	// Unlike unstake schedules, the scheduled amount stays counted as
	// liquid (spec §8 invariant 1 sums liquid+staked+...+to_unstake
	// remainder, with no to_stake term) until each interval actually
	// moves a rate-unit across in AdvanceStakeSchedules.
	rate, err := amount.MulDiv(1, uint64(intervals))
	if err != nil {
		return err
	}
	b.ToStake = amount
	b.TotalStaked = types.ZeroAmount()
	b.StakeRate = rate
	b.NextStakeTime = now.Add(StakeInterval)
	return l.put(b)
}

// AdvanceStakeSchedules runs once per maintenance phase: every account
// whose NextStakeTime has arrived has one rate-unit moved from liquid
// reserve into staked, until TotalStaked reaches ToStake.
func (l *Ledger) AdvanceStakeSchedules(now types.BlockTime, accounts []string, symbol types.AssetSymbol) error {
	for _, account := range accounts {
		b := l.get(account, symbol)
		if b.ToStake.IsZero() || b.NextStakeTime == 0 || b.NextStakeTime.After(now) {
			continue
		}
		remaining, err := b.ToStake.Sub(b.TotalStaked)
		if err != nil {
			continue
		}
		step := b.StakeRate.Min(remaining)
		if b.Liquid.LessThan(step) {
			// The account spent its liquid balance out from under the
			// schedule elsewhere; cap this step at what remains so the
			// schedule degrades gracefully instead of going negative.
			step = b.Liquid
		}
		if step.IsZero() {
			continue
		}
		liquid, err := b.Liquid.Sub(step)
		if err != nil {
			return err
		}
		b.Liquid = liquid
		b.Staked = b.Staked.Add(step)
		b.TotalStaked = b.TotalStaked.Add(step)
		if err := l.registry.MoveSupply(symbol, assets.FieldLiquid, assets.FieldStaked, step); err != nil {
			return err
		}
		if b.TotalStaked.Cmp(b.ToStake) >= 0 {
			b.ToStake = types.ZeroAmount()
			b.StakeRate = types.ZeroAmount()
			b.NextStakeTime = 0
		} else {
			b.NextStakeTime = now.Add(StakeInterval)
		}
		if err := l.put(b); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleUnstake mirrors ScheduleStake for the reverse direction:
// staked units are released back to liquid over `intervals` periods.
func (l *Ledger) ScheduleUnstake(account string, symbol types.AssetSymbol, amount types.Amount, intervals uint32, now types.BlockTime) error {
	b := l.get(account, symbol)
	if amount.IsZero() {
		b.ToUnstake = types.ZeroAmount()
		b.TotalUnstaked = types.ZeroAmount()
		b.UnstakeRate = types.ZeroAmount()
		b.NextUnstakeTime = 0
		return l.put(b)
	}
	if intervals == 0 {
		return fmt.Errorf("ledger: unstake intervals must be > 0")
	}
	available, err := b.Staked.Sub(b.Delegated)
	if err != nil {
		return fmt.Errorf("ledger: insufficient unencumbered staked balance: %w", err)
	}
	if available.LessThan(amount) {
		return fmt.Errorf("ledger: unstake amount exceeds unencumbered staked balance")
	}
	rate, err := amount.MulDiv(1, uint64(intervals))
	if err != nil {
		return err
	}
	b.ToUnstake = amount
	b.TotalUnstaked = types.ZeroAmount()
	b.UnstakeRate = rate
	b.NextUnstakeTime = now.Add(StakeInterval)
	return l.put(b)
}

// UnstakeRoute is one recipient of a scheduled unstake payout: percent is
// expressed in basis points and all routes for one schedule must sum to
// <= 10000 (spec §4.3: "up to N recipients by percent summing to <=100%").
type UnstakeRoute struct {
	Recipient  string
	PercentBPS uint32
}

// AdvanceUnstakeSchedules releases one rate-unit per account per call,
// distributing it across routes (falling back to the owner itself for
// any undistributed remainder).
func (l *Ledger) AdvanceUnstakeSchedules(now types.BlockTime, symbol types.AssetSymbol, routes map[string][]UnstakeRoute) error {
	for account, rs := range routes {
		b := l.get(account, symbol)
		if b.ToUnstake.IsZero() || b.NextUnstakeTime == 0 || b.NextUnstakeTime.After(now) {
			continue
		}
		remaining, err := b.ToUnstake.Sub(b.TotalUnstaked)
		if err != nil {
			continue
		}
		step := b.UnstakeRate.Min(remaining)
		b.Staked, err = b.Staked.Sub(step)
		if err != nil {
			return err
		}
		b.TotalUnstaked = b.TotalUnstaked.Add(step)
		if err := l.registry.MoveSupply(symbol, assets.FieldStaked, assets.FieldLiquid, step); err != nil {
			return err
		}
		if err := l.put(b); err != nil {
			return err
		}
		if err := l.distributeUnstakeStep(account, rs, symbol, step); err != nil {
			return err
		}
		b = l.get(account, symbol)
		if b.TotalUnstaked.Cmp(b.ToUnstake) >= 0 {
			b.ToUnstake = types.ZeroAmount()
			b.TotalUnstaked = types.ZeroAmount()
			b.UnstakeRate = types.ZeroAmount()
			b.NextUnstakeTime = 0
		} else {
			b.NextUnstakeTime = now.Add(StakeInterval)
		}
		if err := l.put(b); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) distributeUnstakeStep(owner string, routes []UnstakeRoute, symbol types.AssetSymbol, step types.Amount) error {
	var totalBPS uint32
	distributed := types.ZeroAmount()
	for _, r := range routes {
		totalBPS += r.PercentBPS
		portion, err := step.MulDiv(uint64(r.PercentBPS), 10000)
		if err != nil {
			return err
		}
		recipient := l.get(r.Recipient, symbol)
		recipient.Liquid = recipient.Liquid.Add(portion)
		if err := l.put(recipient); err != nil {
			return err
		}
		distributed = distributed.Add(portion)
	}
	if totalBPS > 10000 {
		return fmt.Errorf("ledger: unstake routes exceed 100%%")
	}
	remainder, err := step.Sub(distributed)
	if err != nil {
		return err
	}
	if !remainder.IsZero() {
		o := l.get(owner, symbol)
		o.Liquid = o.Liquid.Add(remainder)
		if err := l.put(o); err != nil {
			return err
		}
	}
	return nil
}
