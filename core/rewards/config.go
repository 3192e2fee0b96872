// Package rewards implements the Reward Engine (spec component C5):
// per-block inflation splitting, producer/POW payout distribution,
// activity-reward claims, and the staked-portion conversion every
// claimed reward passes through. Grounded on the teacher's
// core/rewards/engine.go (index-based accrual, APR-in-basis-points
// shape) and native/potso/rewards.go (stake/engagement-weighted payout
// distribution across winners).
package rewards

import "chainforge/core/types"

// Config holds the chain-parameter-tunable reward knobs from spec §4.6
// and the chain-parameters list in §6 ("content reward decay rate,
// credit open/liquidation/min-interest/variable-interest..." and the
// sibling reward-fund parameters implied by the same governance-voted
// parameter set).
type Config struct {
	// InflationRateBPS is the per-block inflation rate applied to
	// current total supply of the chain's core asset.
	InflationRateBPS uint32

	// Fund shares of the per-block inflation pool, basis points of the
	// inflation pool summing to <=10000.
	ContentFundBPS  uint32
	CurationFundBPS uint32
	ProducerFundBPS uint32
	POWFundBPS      uint32
	ActivityFundBPS uint32

	// Floors below which a fund is topped up regardless of the
	// percentage split (spec: "minimums are enforced, never below
	// MIN_*_REWARD").
	MinContentReward  types.Amount
	MinCurationReward types.Amount
	MinProducerReward types.Amount
	MinPOWReward      types.Amount
	MinActivityReward types.Amount

	// StakedRewardRatioBPS is the fixed portion of every claimed reward
	// that converts directly to staked balance; the remainder goes
	// liquid.
	StakedRewardRatioBPS uint32

	// EquityRevenueShareBPS and CreditRevenueShareBPS are the
	// percentages of a revenue-share-enabled business account's claimed
	// rewards siphoned into the equity and credit pool objects before
	// the rest reaches the account.
	EquityRevenueShareBPS uint32
	CreditRevenueShareBPS uint32

	// CoreAsset is the symbol inflation is minted in.
	CoreAsset types.AssetSymbol
	// EquityAsset is the symbol activity-reward eligibility checks
	// against ("hold >= 1 equity unit").
	EquityAsset types.AssetSymbol

	MinActivityProducers uint32
}

// ActivityCooldown is the once-per-24h claim interval from spec §4.6.
const ActivityCooldown int64 = 86400
