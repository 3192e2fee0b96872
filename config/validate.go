package config

import "fmt"

// MinVotingPeriodSeconds is a timing floor exposed as a package var so
// genesis tooling can reference it directly; Validate does not apply it
// to any ChainParams field.
var MinVotingPeriodSeconds = uint64(3600)

// Validate enforces the chain-parameter invariants every parameter set
// must satisfy: the block size, mempool byte limit and per-block
// transaction limit are positive, every rate/ratio stays within
// [0,100000] basis points, and the credit ratios stay internally
// consistent (liquidation below open ratio). Interval fields are not
// checked; zero is accepted for them.
func (p ChainParams) Validate() error {
	if p.MaxBlockSize == 0 {
		return fmt.Errorf("config: max block size must be positive")
	}
	for name, bps := range map[string]uint32{
		"VoteReserveRateBPS":        p.VoteReserveRateBPS,
		"ViewReserveRateBPS":        p.ViewReserveRateBPS,
		"ShareReserveRateBPS":       p.ShareReserveRateBPS,
		"CommentReserveRateBPS":     p.CommentReserveRateBPS,
		"ContentRewardDecayRateBPS": p.ContentRewardDecayRateBPS,
		"CreditOpenRatioBPS":        p.CreditOpenRatioBPS,
		"CreditLiquidationRatioBPS": p.CreditLiquidationRatioBPS,
		"CreditMinInterestBPS":      p.CreditMinInterestBPS,
		"CreditVariableInterestBPS": p.CreditVariableInterestBPS,
		"MarginOpenRatioBPS":        p.MarginOpenRatioBPS,
		"EscrowBondPctBPS":          p.EscrowBondPctBPS,
	} {
		if bps > 100000 {
			return fmt.Errorf("config: %s out of range: %d", name, bps)
		}
	}
	if p.CreditLiquidationRatioBPS >= p.CreditOpenRatioBPS {
		return fmt.Errorf("config: credit liquidation ratio must be below the open ratio")
	}
	if err := p.Reward.Validate(); err != nil {
		return err
	}
	if p.Mempool.MaxBytes <= 0 {
		return fmt.Errorf("config: mempool max bytes must be positive")
	}
	if p.Blocks.MaxTxs <= 0 {
		return fmt.Errorf("config: blocks max txs must be positive")
	}
	return nil
}

// Validate enforces that the five inflation-fund shares never exceed
// the whole pool and the staked-reward split stays within bounds.
func (r RewardParams) Validate() error {
	total := uint64(r.ContentFundBPS) + uint64(r.CurationFundBPS) + uint64(r.ProducerFundBPS) + uint64(r.POWFundBPS) + uint64(r.ActivityFundBPS)
	if total > 10000 {
		return fmt.Errorf("config: reward fund shares sum to %d bps, exceeding 10000", total)
	}
	if r.StakedRewardRatioBPS > 10000 {
		return fmt.Errorf("config: staked reward ratio out of range: %d", r.StakedRewardRatioBPS)
	}
	if r.EquityRevenueShareBPS+r.CreditRevenueShareBPS > 10000 {
		return fmt.Errorf("config: revenue share percentages exceed 10000 bps")
	}
	return nil
}
