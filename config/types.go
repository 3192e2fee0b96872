package config

// ChainParams is the spec §6 set of governance-tunable chain
// parameters, plus the nested reward, producer, mempool and block
// groups. Nothing in this module updates it from producers' proposed
// values: consensus/producer keeps a ProposedParams field per producer
// but computes no median over them.
type ChainParams struct {
	AccountCreationFee  uint64 `toml:"AccountCreationFee"`
	MaxBlockSize        uint64 `toml:"MaxBlockSize"`
	StakeIntervalSecs   uint64 `toml:"StakeIntervalSecs"`
	UnstakeIntervalSecs uint64 `toml:"UnstakeIntervalSecs"`

	MembershipBasePrice uint64 `toml:"MembershipBasePrice"`
	MembershipMidPrice  uint64 `toml:"MembershipMidPrice"`
	MembershipTopPrice  uint64 `toml:"MembershipTopPrice"`

	VoteReserveRateBPS    uint32 `toml:"VoteReserveRateBPS"`
	ViewReserveRateBPS    uint32 `toml:"ViewReserveRateBPS"`
	ShareReserveRateBPS   uint32 `toml:"ShareReserveRateBPS"`
	CommentReserveRateBPS uint32 `toml:"CommentReserveRateBPS"`
	EnergyRechargeSecs    uint64 `toml:"EnergyRechargeSecs"`

	CurationAuctionDecaySecs  int64  `toml:"CurationAuctionDecaySecs"`
	VoteCurationDecayCount    uint32 `toml:"VoteCurationDecayCount"`
	ViewCurationDecayCount    uint32 `toml:"ViewCurationDecayCount"`
	ShareCurationDecayCount   uint32 `toml:"ShareCurationDecayCount"`
	CommentCurationDecayCount uint32 `toml:"CommentCurationDecayCount"`

	ContentRewardDecayRateBPS uint32 `toml:"ContentRewardDecayRateBPS"`

	CreditOpenRatioBPS        uint32 `toml:"CreditOpenRatioBPS"`
	CreditLiquidationRatioBPS uint32 `toml:"CreditLiquidationRatioBPS"`
	CreditMinInterestBPS      uint32 `toml:"CreditMinInterestBPS"`
	CreditVariableInterestBPS uint32 `toml:"CreditVariableInterestBPS"`

	MarginOpenRatioBPS uint32 `toml:"MarginOpenRatioBPS"`
	EscrowBondPctBPS   uint32 `toml:"EscrowBondPctBPS"`

	Reward   RewardParams   `toml:"Reward"`
	Producer ProducerParams `toml:"Producer"`
	Mempool  MempoolParams  `toml:"Mempool"`
	Blocks   BlockParams    `toml:"Blocks"`
}

// RewardParams mirrors core/rewards.Config's governance-tunable fields
// so they can be loaded from the same chain-parameters file rather than
// hardcoded at genesis.
type RewardParams struct {
	InflationRateBPS      uint32 `toml:"InflationRateBPS"`
	ContentFundBPS        uint32 `toml:"ContentFundBPS"`
	CurationFundBPS       uint32 `toml:"CurationFundBPS"`
	ProducerFundBPS       uint32 `toml:"ProducerFundBPS"`
	POWFundBPS            uint32 `toml:"POWFundBPS"`
	ActivityFundBPS       uint32 `toml:"ActivityFundBPS"`
	StakedRewardRatioBPS  uint32 `toml:"StakedRewardRatioBPS"`
	EquityRevenueShareBPS uint32 `toml:"EquityRevenueShareBPS"`
	CreditRevenueShareBPS uint32 `toml:"CreditRevenueShareBPS"`
	MinActivityProducers  uint32 `toml:"MinActivityProducers"`
}

// ProducerParams controls the producer-protocol scheduling and
// finality thresholds (spec §4.8).
type ProducerParams struct {
	RoundSlotCount           uint32 `toml:"RoundSlotCount"`
	TopVotingProducerCount   uint32 `toml:"TopVotingProducerCount"`
	TopMiningProducerCount   uint32 `toml:"TopMiningProducerCount"`
	IrreversibleThresholdBPS uint32 `toml:"IrreversibleThresholdBPS"`
	MiningPowerDecayBPS      uint32 `toml:"MiningPowerDecayBPS"`
}

// MempoolParams bounds transaction admission (spec §5's "bounded by a
// per-block maximum work unit" maintenance-sweep policy generalised to
// inbound admission).
type MempoolParams struct {
	MaxBytes int64 `toml:"MaxBytes"`
}

// BlockParams bounds per-block transaction counts.
type BlockParams struct {
	MaxTxs int64 `toml:"MaxTxs"`
}
