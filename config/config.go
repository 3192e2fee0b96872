// Package config loads and validates the chain-parameter set the
// consensus components read at genesis (spec §6). No code in this
// module replaces a loaded set with a median of producer proposals.
// Grounded on the teacher's config package's load/default/validate
// trio, generalised from network/process settings to the spec's
// governance-tunable chain parameters.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads a ChainParams file from path, writing and returning
// Default() if no file exists yet.
func Load(path string) (*ChainParams, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &ChainParams{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the genesis chain-parameter set.
func Default() ChainParams {
	return ChainParams{
		AccountCreationFee:  1,
		MaxBlockSize:        1 << 20,
		StakeIntervalSecs:   7 * 86400,
		UnstakeIntervalSecs: 7 * 86400,

		MembershipBasePrice: 5,
		MembershipMidPrice:  50,
		MembershipTopPrice:  500,

		VoteReserveRateBPS:    2000,
		ViewReserveRateBPS:    2000,
		ShareReserveRateBPS:   2000,
		CommentReserveRateBPS: 2000,
		EnergyRechargeSecs:    5 * 86400,

		CurationAuctionDecaySecs:  600,
		VoteCurationDecayCount:    100,
		ViewCurationDecayCount:    100,
		ShareCurationDecayCount:   100,
		CommentCurationDecayCount: 100,

		ContentRewardDecayRateBPS: 9000,

		CreditOpenRatioBPS:        12500,
		CreditLiquidationRatioBPS: 9000,
		CreditMinInterestBPS:      500,
		CreditVariableInterestBPS: 2000,

		MarginOpenRatioBPS: 12500,
		EscrowBondPctBPS:   1000,

		Reward: RewardParams{
			InflationRateBPS:      100,
			ContentFundBPS:        5000,
			CurationFundBPS:       2500,
			ProducerFundBPS:       1500,
			POWFundBPS:            500,
			ActivityFundBPS:       500,
			StakedRewardRatioBPS:  5000,
			EquityRevenueShareBPS: 1000,
			CreditRevenueShareBPS: 500,
			MinActivityProducers:  3,
		},
		Producer: ProducerParams{
			RoundSlotCount:           21,
			TopVotingProducerCount:   20,
			TopMiningProducerCount:   1,
			IrreversibleThresholdBPS: 6700,
			MiningPowerDecayBPS:      9900,
		},
		Mempool: MempoolParams{MaxBytes: 64 << 20},
		Blocks:  BlockParams{MaxTxs: 10000},
	}
}

func createDefault(path string) (*ChainParams, error) {
	cfg := Default()
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
