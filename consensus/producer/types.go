// Package producer implements the Producer Protocol (C8): round-robin
// schedule derivation over top-voting and top-mining producers, block
// production, verify-then-commit finality, violation slashing, and
// proof-of-work mining. The teacher's consensus/bft engine is a
// networked, goroutine-driven BFT implementation; spec §5 instead calls
// for a synchronous, suspension-point-free, single-writer state machine,
// so only its deterministic sub-patterns (weighted selection, threshold
// math, commit bookkeeping) are adapted here as plain methods on the
// store, alongside native/potso's decay/heartbeat interval-gating shape
// for mining-power refresh.
package producer

import (
	"fmt"

	"chainforge/core/types"
)

// Producer is the spec §3 "Producer" entity.
type Producer struct {
	Owner      string
	SigningKey string
	URL        string
	Details    string

	Latitude  float64
	Longitude float64

	// MiningPower is the decayed accumulator backing top-mining selection;
	// MiningCount is the raw lifetime count of accepted proofs of work.
	MiningPower uint64
	MiningCount uint64

	LastCommitHeight  uint64
	LastCommitBlockID string

	Active bool

	// VoteWeight is the accumulated stake-weighted approval total backing
	// top-voting selection, maintained incrementally by Vote.
	VoteWeight types.Amount

	// EncumberedStake tracks commitment_stake committed but not yet
	// released across this producer's open BlockValidation rows (spec
	// §4.8: "that producer's stake amount equal to commitment_stake is
	// encumbered"). It is bookkeeping only; it does not itself restrict
	// ledger spendability, since the spec text assigns it no further
	// operational effect beyond tracking.
	EncumberedStake types.Amount

	ProposedParams ProposedParams
}

// PrimaryKey implements store.Row.
func (p Producer) PrimaryKey() string { return p.Owner }

// ProposedParams is the subset of chain parameters a producer proposes.
// It is a plain field of the Producer row: the engine neither sets it
// nor computes a median across producers' proposals.
type ProposedParams struct {
	AccountCreationFee uint64
	MaxBlockSize       uint64
}

// producerVote is one (voter, producer) approval record. A voter has at
// most one live vote per producer; Vote replaces any prior weight from
// the same voter atomically so VoteWeight never double-counts a stale
// cast (spec §4.8: "top voting producers share... by stake-weighted
// vote").
type producerVote struct {
	Voter    string
	Producer string
	Weight   types.Amount
}

func (v producerVote) PrimaryKey() string { return v.Voter + "/" + v.Producer }

// ProducerSchedule is the spec §3 "ProducerSchedule" entity: the derived
// per-round dispatch order. There is exactly one live schedule, keyed by
// the constant "schedule".
type ProducerSchedule struct {
	Round     uint64
	TopVoting []string
	TopMining []string
	// Dispatch is the ordered per-slot producer sequence for the round,
	// cycling round-robin over TopVoting++TopMining (spec §4.8 step 1).
	Dispatch []string
}

// PrimaryKey implements store.Row.
func (ProducerSchedule) PrimaryKey() string { return "schedule" }

// verification is one (verifier, height, block) verify_block broadcast,
// referenced by later commit_block calls to satisfy the unique-prior-
// verification threshold.
type verification struct {
	Verifier string
	Height   uint64
	BlockID  string
}

func (v verification) PrimaryKey() string { return verificationKey(v.Verifier, v.Height, v.BlockID) }

func verificationKey(verifier string, height uint64, blockID string) string {
	return fmt.Sprintf("%s/%d/%s", verifier, height, blockID)
}

// BlockValidation is the spec §3 "BlockValidation" entity: one
// producer's commit_block record for a given (producer, height,
// block_id) triple. A producer may hold more than one such record at
// the same height only as proof of equivocation (spec §4.8 "violation
// slashing").
type BlockValidation struct {
	Producer        string
	Height          uint64
	BlockID         string
	CommitTime      types.BlockTime
	CommitmentStake types.Amount
	Verifications   []string
}

// PrimaryKey implements store.Row.
func (b BlockValidation) PrimaryKey() string { return blockValidationKey(b.Producer, b.Height, b.BlockID) }

func blockValidationKey(producer string, height uint64, blockID string) string {
	return fmt.Sprintf("%s/%d/%s", producer, height, blockID)
}

// CommitViolation records a proven double-commit at (producer, height),
// rejecting any further report for the same pair (spec §4.8, scenario S6).
type CommitViolation struct {
	Producer   string
	Height     uint64
	ReportedBy string
	Slashed    types.Amount
	ReportedAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (c CommitViolation) PrimaryKey() string { return violationKey(c.Producer, c.Height) }

func violationKey(producer string, height uint64) string {
	return fmt.Sprintf("%s/%d", producer, height)
}

// DynamicGlobalProperties is the spec §3 singleton tracking head and
// irreversibility state. There is exactly one row, keyed "dgp".
type DynamicGlobalProperties struct {
	HeadBlockNumber uint64
	HeadBlockID     string
	HeadBlockTime   types.BlockTime

	LastIrreversibleBlockNumber uint64
	LastIrreversibleBlockID     string
	LastCommittedBlockNumber    uint64
	LastCommittedBlockID        string

	CurrentProducer string

	AccumulatedNetworkRevenue types.Amount

	MedianEquityPrice types.Amount
	MedianUSDPrice    types.Amount

	TotalVotingPower types.Amount

	// RecentSlotsFilled is a bitmap shifted on every produced slot, the
	// most recent slot occupying the low bit (spec §4.8 step 3).
	RecentSlotsFilled   uint64
	CurrentAbsoluteSlot uint64
}

// PrimaryKey implements store.Row.
func (DynamicGlobalProperties) PrimaryKey() string { return "dgp" }
