package rewards

import (
	"fmt"

	"chainforge/core/account"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// ActivityClaim carries the cross-component facts the evaluator layer
// must gather before calling ClaimActivity: a recent post by the
// claimant, a recent view on someone else's post, and a recent vote on
// a third post, each already checked against the 24h window and the
// "exceeds 20% of the median metric across recent comments" threshold
// (spec §4.6), plus the claimant's current producer-vote count.
type ActivityClaim struct {
	Account           string
	HasRecentPost     bool
	HasRecentView     bool
	HasRecentVote     bool
	ProducerVoteCount uint32
}

// ClaimActivity pays out the activity fund share to the claimant if
// every eligibility condition in spec §4.6 holds, and stamps the
// cooldown marker.
//
// The cooldown check deliberately reproduces the source assertion
// `now < last_activity_reward + 1d` exactly as spec §9 documents it,
// rather than the inverted `now >= last_activity_reward + 1d` an
// intuitive "claimable once per 24h" reading would suggest. Spec §9
// flags this as open, possibly-buggy behaviour to preserve under test
// rather than silently fix, so it is preserved here.
func (e *Engine) ClaimActivity(claim ActivityClaim, amount types.Amount, now types.BlockTime) error {
	if !claim.HasRecentPost || !claim.HasRecentView || !claim.HasRecentVote {
		return fmt.Errorf("rewards: activity claim missing a required recent post/view/vote reference")
	}
	if claim.ProducerVoteCount < e.cfg.MinActivityProducers {
		return fmt.Errorf("rewards: activity claim requires at least %d producer votes, has %d", e.cfg.MinActivityProducers, claim.ProducerVoteCount)
	}
	equity := e.ledger.Balance(claim.Account, e.cfg.EquityAsset)
	if equity.Liquid.Add(equity.Staked).IsZero() {
		return fmt.Errorf("rewards: activity claim requires holding at least 1 equity unit")
	}

	acct, ok := e.accounts.Get(claim.Account)
	if !ok {
		return fmt.Errorf("rewards: unknown account %q", claim.Account)
	}
	if !cooldownSatisfied(acct, now) {
		return fmt.Errorf("rewards: activity reward not yet claimable")
	}

	if err := e.ApplyClaim(claim.Account, e.cfg.CoreAsset, amount, "", ""); err != nil {
		return err
	}
	return e.accounts.RecordActivityClaim(claim.Account, now)
}

func cooldownSatisfied(acct account.Account, now types.BlockTime) bool {
	return now < acct.LastActivityReward.Add(ActivityCooldown)
}
