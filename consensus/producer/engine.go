package producer

import (
	"math/big"
	"sort"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability"
)

// stakeAsset is the symbol every commitment-stake and slash amount is
// denominated in (spec §4.8, §8 scenario S6: "P.staked(COIN)").
const stakeAsset = types.AssetSymbol("COIN")

// Config mirrors config.ProducerParams, the governance-tunable knobs the
// schedule and finality thresholds read every round.
type Config struct {
	RoundSlotCount           int
	TopVotingCount           int
	TopMiningCount           int
	IrreversibleThresholdBPS uint32
	MiningPowerDecayBPS      uint32
}

// Engine is the C8 component: producer registration and voting,
// schedule derivation, block production bookkeeping, verify-then-commit
// finality, violation slashing, and proof-of-work mining.
type Engine struct {
	ledger *ledger.Ledger

	producers    *store.Table[string, Producer]
	votes        *store.Table[string, producerVote]
	schedule     *store.Table[string, ProducerSchedule]
	verifications *store.Table[string, verification]
	validations  *store.Table[string, BlockValidation]
	violations   *store.Table[string, CommitViolation]
	dgp          *store.Table[string, DynamicGlobalProperties]

	cfg Config
}

// New wires an Engine to the store's producer-protocol tables and the
// ledger it reads staked balances from and slashes against.
func New(s *store.Store, l *ledger.Ledger, cfg Config) *Engine {
	e := &Engine{
		ledger:        l,
		producers:     store.NewTable[string, Producer](s, "producers"),
		votes:         store.NewTable[string, producerVote](s, "producer_votes"),
		schedule:      store.NewTable[string, ProducerSchedule](s, "producer_schedule"),
		verifications: store.NewTable[string, verification](s, "block_verifications"),
		validations:   store.NewTable[string, BlockValidation](s, "block_validations"),
		violations:    store.NewTable[string, CommitViolation](s, "commit_violations"),
		dgp:           store.NewTable[string, DynamicGlobalProperties](s, "dynamic_global_properties"),
		cfg:           cfg,
	}
	if _, ok := e.dgp.Get("dgp"); !ok {
		_ = e.dgp.Insert(DynamicGlobalProperties{})
	}
	return e
}

// RegisterProducer publishes (or republishes) a producer's candidacy,
// activating it.
func (e *Engine) RegisterProducer(owner, signingKey, url, details string, lat, lon float64) error {
	if _, ok := e.producers.Get(owner); ok {
		return e.producers.Modify(owner, func(p *Producer) {
			p.SigningKey = signingKey
			p.URL = url
			p.Details = details
			p.Latitude = lat
			p.Longitude = lon
			p.Active = true
		})
	}
	return e.producers.Insert(Producer{
		Owner:      owner,
		SigningKey: signingKey,
		URL:        url,
		Details:    details,
		Latitude:   lat,
		Longitude:  lon,
		Active:     true,
		VoteWeight: types.ZeroAmount(),
	})
}

// Producer returns a snapshot of the named producer's row.
func (e *Engine) Producer(owner string) (Producer, bool) { return e.producers.Get(owner) }

// Deactivate marks a producer inactive so it drops out of future
// schedule derivations.
func (e *Engine) Deactivate(owner string) error {
	return e.producers.Modify(owner, func(p *Producer) { p.Active = false })
}

// Vote casts (or replaces) voter's stake-weighted approval of producer,
// accumulating into the producer's VoteWeight (spec §4.8: top-voting
// producers share the fund "by stake-weighted vote").
func (e *Engine) Vote(voter, producerOwner string, weight types.Amount) error {
	if _, ok := e.producers.Get(producerOwner); !ok {
		return errUnknownProducer
	}
	if err := e.retractVoteLocked(voter, producerOwner); err != nil {
		return err
	}
	if err := e.votes.Insert(producerVote{Voter: voter, Producer: producerOwner, Weight: weight}); err != nil {
		return err
	}
	return e.producers.Modify(producerOwner, func(p *Producer) {
		p.VoteWeight = p.VoteWeight.Add(weight)
	})
}

// Unvote withdraws voter's prior approval of producer, if any.
func (e *Engine) Unvote(voter, producerOwner string) error {
	return e.retractVoteLocked(voter, producerOwner)
}

func (e *Engine) retractVoteLocked(voter, producerOwner string) error {
	key := voter + "/" + producerOwner
	prior, ok := e.votes.Get(key)
	if !ok {
		return nil
	}
	if err := e.votes.Remove(key); err != nil {
		return err
	}
	return e.producers.Modify(producerOwner, func(p *Producer) {
		if next, err := p.VoteWeight.Sub(prior.Weight); err == nil {
			p.VoteWeight = next
		}
	})
}

// DeriveSchedule computes the round's top-voting and top-mining
// producer sets and the round-robin dispatch sequence over their union
// (spec §4.8 step 1). Tie-breaks fall to ascending owner name so the
// derivation is reproducible given identical producer state.
//
// The spec names the dispatch rule only as "round-robin over
// {top-voting, top-mining}" without specifying how the two pools
// interleave; this engine tiles top-voting then top-mining into one
// pool and cycles it to RoundSlotCount, a decision recorded as an open
// question resolution rather than left ambiguous.
func (e *Engine) DeriveSchedule(round uint64) (ProducerSchedule, error) {
	var active []Producer
	e.producers.All(func(p Producer) bool {
		if p.Active {
			active = append(active, p)
		}
		return true
	})

	voting := append([]Producer(nil), active...)
	sort.Slice(voting, func(i, j int) bool {
		if voting[i].VoteWeight.Cmp(voting[j].VoteWeight) != 0 {
			return voting[i].VoteWeight.Cmp(voting[j].VoteWeight) > 0
		}
		return voting[i].Owner < voting[j].Owner
	})
	if len(voting) > e.cfg.TopVotingCount {
		voting = voting[:e.cfg.TopVotingCount]
	}

	mining := append([]Producer(nil), active...)
	sort.Slice(mining, func(i, j int) bool {
		if mining[i].MiningPower != mining[j].MiningPower {
			return mining[i].MiningPower > mining[j].MiningPower
		}
		return mining[i].Owner < mining[j].Owner
	})
	if len(mining) > e.cfg.TopMiningCount {
		mining = mining[:e.cfg.TopMiningCount]
	}

	topVoting := make([]string, len(voting))
	for i, p := range voting {
		topVoting[i] = p.Owner
	}
	topMining := make([]string, len(mining))
	for i, p := range mining {
		topMining[i] = p.Owner
	}

	pool := append(append([]string(nil), topVoting...), topMining...)
	if len(pool) == 0 {
		return ProducerSchedule{}, errEmptySchedule
	}
	dispatch := make([]string, e.cfg.RoundSlotCount)
	for i := range dispatch {
		dispatch[i] = pool[i%len(pool)]
	}

	sched := ProducerSchedule{Round: round, TopVoting: topVoting, TopMining: topMining, Dispatch: dispatch}
	if _, ok := e.schedule.Get("schedule"); ok {
		if err := e.schedule.Modify("schedule", func(s *ProducerSchedule) { *s = sched }); err != nil {
			return ProducerSchedule{}, err
		}
	} else if err := e.schedule.Insert(sched); err != nil {
		return ProducerSchedule{}, err
	}
	observability.Consensus().RecordScheduleSize(len(dispatch))
	return sched, nil
}

// Schedule returns the current round's schedule.
func (e *Engine) Schedule() (ProducerSchedule, bool) { return e.schedule.Get("schedule") }

// ProduceBlock finalises one slot (spec §4.8 steps 1-3): it checks owner
// is the producer scheduled for the current absolute slot, then advances
// head state and shifts the participation bitmap. Witness pay itself is
// distributed by the reward engine (C5), which reads DynamicGlobalProperties
// for the current producer.
func (e *Engine) ProduceBlock(owner, blockID string, now types.BlockTime) error {
	sched, ok := e.schedule.Get("schedule")
	if !ok || len(sched.Dispatch) == 0 {
		return errEmptySchedule
	}
	p, ok := e.producers.Get(owner)
	if !ok {
		return errUnknownProducer
	}
	if !p.Active {
		return errProducerInactive
	}

	dgp, _ := e.dgp.Get("dgp")
	slot := dgp.CurrentAbsoluteSlot
	scheduled := sched.Dispatch[int(slot)%len(sched.Dispatch)]
	if scheduled != owner {
		return errNotScheduled
	}

	return e.dgp.Modify("dgp", func(d *DynamicGlobalProperties) {
		d.HeadBlockNumber++
		d.HeadBlockID = blockID
		d.HeadBlockTime = now
		d.CurrentProducer = owner
		d.CurrentAbsoluteSlot++
		d.RecentSlotsFilled = (d.RecentSlotsFilled << 1) | 1
	})
}

// DynamicGlobalProperties returns the current head-state snapshot.
func (e *Engine) DynamicGlobalProperties() DynamicGlobalProperties {
	d, _ := e.dgp.Get("dgp")
	return d
}

// VerifyBlock records verifier's verify_block broadcast for a block at
// height, past last-irreversible (spec §4.8: "every top producer or
// miner broadcasts verify_block... for any block at height >
// last-irreversible").
func (e *Engine) VerifyBlock(verifier, blockID string, height uint64) error {
	dgp, _ := e.dgp.Get("dgp")
	if height <= dgp.LastIrreversibleBlockNumber {
		return errVerifyBeforeHead
	}
	key := verificationKey(verifier, height, blockID)
	if _, ok := e.verifications.Get(key); ok {
		return errAlreadyVerified
	}
	return e.verifications.Insert(verification{Verifier: verifier, Height: height, BlockID: blockID})
}

// CommitBlock records producer's commit_block broadcast, referencing
// verifications that must each resolve to a distinct, genuine
// VerifyBlock call for (blockID, height). It requires at least
// IRREVERSIBLE_THRESHOLD * (len(TopVoting)+len(TopMining)) unique such
// references, then encumbers commitmentStake against the producer's
// staked COIN balance (spec §4.8).
func (e *Engine) CommitBlock(producerOwner, blockID string, height uint64, commitmentStake types.Amount, verifications []string, now types.BlockTime) error {
	if _, ok := e.producers.Get(producerOwner); !ok {
		return errUnknownProducer
	}
	sched, ok := e.schedule.Get("schedule")
	if !ok {
		return errEmptySchedule
	}

	producerCount := len(sched.TopVoting) + len(sched.TopMining)
	threshold := thresholdCount(e.cfg.IrreversibleThresholdBPS, producerCount)

	seen := make(map[string]bool, len(verifications))
	unique := 0
	for _, verifier := range verifications {
		if seen[verifier] {
			continue
		}
		seen[verifier] = true
		if _, ok := e.verifications.Get(verificationKey(verifier, height, blockID)); ok {
			unique++
		}
	}
	if unique < threshold {
		return errInsufficientProofs
	}

	staked := e.ledger.Balance(producerOwner, stakeAsset).Staked
	if staked.LessThan(commitmentStake) {
		return errCommitStakeExceeds
	}

	key := blockValidationKey(producerOwner, height, blockID)
	if _, exists := e.validations.Get(key); !exists {
		if err := e.validations.Insert(BlockValidation{
			Producer:        producerOwner,
			Height:          height,
			BlockID:         blockID,
			CommitTime:      now,
			CommitmentStake: commitmentStake,
			Verifications:   verifications,
		}); err != nil {
			return err
		}
		if err := e.producers.Modify(producerOwner, func(row *Producer) {
			row.EncumberedStake = row.EncumberedStake.Add(commitmentStake)
			row.LastCommitHeight = height
			row.LastCommitBlockID = blockID
		}); err != nil {
			return err
		}
	}

	return e.tryAdvanceCommitted(height, blockID)
}

// tryAdvanceCommitted sums committed stake across every BlockValidation
// row at (height, blockID) and, once it crosses IRREVERSIBLE_THRESHOLD
// of total voting power, advances last_committed_block_num (spec §4.8:
// "when such commits cover threshold stake at a height").
func (e *Engine) tryAdvanceCommitted(height uint64, blockID string) error {
	dgp, _ := e.dgp.Get("dgp")
	if height <= dgp.LastCommittedBlockNumber {
		return nil
	}

	total := types.ZeroAmount()
	e.validations.All(func(v BlockValidation) bool {
		if v.Height == height && v.BlockID == blockID {
			total = total.Add(v.CommitmentStake)
		}
		return true
	})

	needed, err := dgp.TotalVotingPower.MulDivRoundUp(uint64(e.cfg.IrreversibleThresholdBPS), 10000)
	if err != nil || needed.IsZero() {
		return nil
	}
	if total.LessThan(needed) {
		return nil
	}
	return e.dgp.Modify("dgp", func(d *DynamicGlobalProperties) {
		d.LastCommittedBlockNumber = height
		d.LastCommittedBlockID = blockID
	})
}

// thresholdCount returns ceil(bps/10000 * n).
func thresholdCount(bps uint32, n int) int {
	if n <= 0 {
		return 0
	}
	num := int64(bps) * int64(n)
	den := int64(10000)
	q := num / den
	if num%den != 0 {
		q++
	}
	return int(q)
}

// ReportViolation proves producer equivocated at height by presenting
// two distinct committed block ids and slashes
// min(max(stakeA, stakeB), producer.staked(COIN)) from the producer to
// reporter (spec §4.8, scenario S6). At most one violation is accepted
// per (producer, height).
func (e *Engine) ReportViolation(reporter, producerOwner string, height uint64, blockA, blockB string, now types.BlockTime) error {
	if blockA == blockB {
		return errViolationSameBlock
	}
	if _, ok := e.violations.Get(violationKey(producerOwner, height)); ok {
		return errViolationDuplicate
	}
	a, okA := e.validations.Get(blockValidationKey(producerOwner, height, blockA))
	b, okB := e.validations.Get(blockValidationKey(producerOwner, height, blockB))
	if !okA || !okB {
		return errViolationNoCommits
	}

	staked := e.ledger.Balance(producerOwner, stakeAsset).Staked
	worse := a.CommitmentStake
	if b.CommitmentStake.Cmp(worse) > 0 {
		worse = b.CommitmentStake
	}
	slash := worse
	if staked.LessThan(slash) {
		slash = staked
	}

	if err := e.ledger.SlashStaked(producerOwner, reporter, stakeAsset, slash); err != nil {
		return err
	}
	return e.violations.Insert(CommitViolation{
		Producer:   producerOwner,
		Height:     height,
		ReportedBy: reporter,
		Slashed:    slash,
		ReportedAt: now,
	})
}

// Violation returns the recorded violation, if any, for (producer, height).
func (e *Engine) Violation(producerOwner string, height uint64) (CommitViolation, bool) {
	return e.violations.Get(violationKey(producerOwner, height))
}

// SubmitProofOfWork validates a proof_of_work presentation against the
// current head block id and a target threshold, bundling a new owner
// key into a freshly mined producer account or refreshing an existing
// miner's decayed power (spec §4.8 "POW"), matching the teacher's
// potso Meter's decay-then-increment refresh shape.
func (e *Engine) SubmitProofOfWork(miner, signingKey, prevBlockID string, powSummary, targetPow *big.Int) error {
	dgp, _ := e.dgp.Get("dgp")
	if prevBlockID != dgp.HeadBlockID {
		return errPowStalePrevBlock
	}
	if powSummary.Cmp(targetPow) >= 0 {
		return errPowTargetNotMet
	}

	if p, ok := e.producers.Get(miner); ok {
		return e.producers.Modify(miner, func(row *Producer) {
			row.MiningPower = (p.MiningPower*uint64(e.cfg.MiningPowerDecayBPS))/10000 + 1
			row.MiningCount++
		})
	}
	return e.producers.Insert(Producer{
		Owner:       miner,
		SigningKey:  signingKey,
		Active:      true,
		MiningPower: 1,
		MiningCount: 1,
		VoteWeight:  types.ZeroAmount(),
	})
}
