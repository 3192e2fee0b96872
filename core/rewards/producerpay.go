package rewards

import (
	"sort"

	"chainforge/core/types"
)

// Weight is one participant's share weight in a fund distribution: a
// producer's accumulated weighted stake vote, or a miner's decayed
// mining power (spec §4.6: "top voting producers share the producer
// fund by stake-weighted vote; top miners share the POW fund by
// decayed mining power").
type Weight struct {
	Account string
	Power   types.Amount
}

// Distribute splits fund proportionally to each entry's Power among the
// given weights, handing any floor-division remainder to the
// alphabetically-first accounts one unit at a time so the sum of
// payouts exactly equals fund and the outcome is deterministic
// regardless of map iteration order. Entries with zero total power
// receive nothing.
func Distribute(fund types.Amount, weights []Weight) map[string]types.Amount {
	out := make(map[string]types.Amount, len(weights))
	if fund.IsZero() || len(weights) == 0 {
		return out
	}
	var total types.Amount
	for _, w := range weights {
		total = total.Add(w.Power)
	}
	if total.IsZero() {
		return out
	}

	type share struct {
		account string
		amount  types.Amount
	}
	shares := make([]share, 0, len(weights))
	var distributed types.Amount
	for _, w := range weights {
		base, err := fund.MulDiv(w.Power.Uint64(), total.Uint64())
		if err != nil {
			base = types.ZeroAmount()
		}
		shares = append(shares, share{account: w.Account, amount: base})
		distributed = distributed.Add(base)
	}
	leftover, err := fund.Sub(distributed)
	if err != nil {
		leftover = types.ZeroAmount()
	}

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].account < shares[j].account })
	for i := range shares {
		if leftover.IsZero() {
			break
		}
		shares[i].amount = shares[i].amount.Add(types.NewAmount(1))
		leftover, _ = leftover.Sub(types.NewAmount(1))
	}

	for _, s := range shares {
		out[s.account] = s.amount
	}
	return out
}
