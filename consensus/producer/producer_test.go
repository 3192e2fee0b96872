package producer

import (
	"math/big"
	"testing"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

func newTestEngine(t *testing.T) (*store.Store, *ledger.Ledger, *Engine) {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	if err := reg.Create(assets.Asset{Symbol: "COIN", Kind: assets.KindStandard, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	l := ledger.New(s, reg)
	cfg := Config{
		RoundSlotCount:           6,
		TopVotingCount:           2,
		TopMiningCount:           1,
		IrreversibleThresholdBPS: 6700,
		MiningPowerDecayBPS:      9900,
	}
	return s, l, New(s, l, cfg)
}

func TestDeriveScheduleOrdersByVoteWeightThenMiningPowerWithTieBreak(t *testing.T) {
	_, _, e := newTestEngine(t)
	for _, owner := range []string{"alice", "bob", "carol"} {
		if err := e.RegisterProducer(owner, "key-"+owner, "", "", 0, 0); err != nil {
			t.Fatalf("register %s: %v", owner, err)
		}
	}
	if err := e.Vote("voter1", "bob", types.NewAmount(500)); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := e.Vote("voter2", "alice", types.NewAmount(500)); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := e.SubmitProofOfWork("carol", "key-carol", "", big.NewInt(1), big.NewInt(2)); err != nil {
		t.Fatalf("pow: %v", err)
	}

	sched, err := e.DeriveSchedule(1)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(sched.TopVoting) != 2 || sched.TopVoting[0] != "alice" || sched.TopVoting[1] != "bob" {
		t.Fatalf("expected [alice bob] tied-weight tie-break by name, got %+v", sched.TopVoting)
	}
	if len(sched.TopMining) != 1 || sched.TopMining[0] != "carol" {
		t.Fatalf("expected carol as top miner, got %+v", sched.TopMining)
	}
	if len(sched.Dispatch) != 6 {
		t.Fatalf("expected dispatch tiled to round slot count, got %d", len(sched.Dispatch))
	}
	want := []string{"alice", "bob", "carol", "alice", "bob", "carol"}
	for i, w := range want {
		if sched.Dispatch[i] != w {
			t.Fatalf("dispatch[%d] = %s, want %s (%+v)", i, sched.Dispatch[i], w, sched.Dispatch)
		}
	}
}

func TestProduceBlockRejectsUnscheduledProducer(t *testing.T) {
	_, _, e := newTestEngine(t)
	if err := e.RegisterProducer("alice", "key", "", "", 0, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.RegisterProducer("bob", "key", "", "", 0, 0); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.Vote("voter1", "alice", types.NewAmount(100)); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := e.DeriveSchedule(1); err != nil {
		t.Fatalf("derive: %v", err)
	}
	if err := e.ProduceBlock("bob", "block-1", 1000); err != errNotScheduled {
		t.Fatalf("expected errNotScheduled, got %v", err)
	}
	if err := e.ProduceBlock("alice", "block-1", 1000); err != nil {
		t.Fatalf("produce: %v", err)
	}
	dgp := e.DynamicGlobalProperties()
	if dgp.HeadBlockNumber != 1 || dgp.HeadBlockID != "block-1" || dgp.CurrentProducer != "alice" {
		t.Fatalf("unexpected dgp after produce: %+v", dgp)
	}
	if dgp.RecentSlotsFilled&1 == 0 {
		t.Fatalf("expected recent_slots_filled low bit set")
	}
}

func TestCommitBlockRequiresThresholdVerificationsAndStake(t *testing.T) {
	_, l, e := newTestEngine(t)
	if err := l.MintStaked("alice", "COIN", types.NewAmount(1000)); err != nil {
		t.Fatalf("mint staked: %v", err)
	}

	for _, owner := range []string{"alice", "bob", "carol"} {
		if err := e.RegisterProducer(owner, "key-"+owner, "", "", 0, 0); err != nil {
			t.Fatalf("register %s: %v", owner, err)
		}
		if err := e.Vote("voter-"+owner, owner, types.NewAmount(100)); err != nil {
			t.Fatalf("vote %s: %v", owner, err)
		}
	}
	if _, err := e.DeriveSchedule(1); err != nil {
		t.Fatalf("derive: %v", err)
	}
	// threshold = ceil(0.67 * 3) = 3, so all three verifiers must back the commit.
	for _, verifier := range []string{"alice", "bob", "carol"} {
		if err := e.VerifyBlock(verifier, "block-10", 10); err != nil {
			t.Fatalf("verify %s: %v", verifier, err)
		}
	}
	if err := e.CommitBlock("alice", "block-10", 10, types.NewAmount(500), []string{"bob"}, 1000); err != errInsufficientProofs {
		t.Fatalf("expected errInsufficientProofs with one verifier, got %v", err)
	}
	if err := e.CommitBlock("alice", "block-10", 10, types.NewAmount(500), []string{"alice", "bob", "carol"}, 1000); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p, _ := e.Producer("alice")
	if p.EncumberedStake.Cmp(types.NewAmount(500)) != 0 {
		t.Fatalf("expected 500 encumbered, got %s", p.EncumberedStake)
	}
	if err := e.CommitBlock("alice", "block-10", 10, types.NewAmount(2000), []string{"alice", "bob", "carol"}, 1000); err != errCommitStakeExceeds {
		t.Fatalf("expected errCommitStakeExceeds, got %v", err)
	}
}

func TestReportViolationSlashesMinOfMaxStakeAndStakedBalance(t *testing.T) {
	_, l, e := newTestEngine(t)
	if err := l.MintStaked("alice", "COIN", types.NewAmount(300)); err != nil {
		t.Fatalf("mint staked: %v", err)
	}
	for _, owner := range []string{"alice", "bob", "carol"} {
		if err := e.RegisterProducer(owner, "key-"+owner, "", "", 0, 0); err != nil {
			t.Fatalf("register %s: %v", owner, err)
		}
		if err := e.Vote("voter-"+owner, owner, types.NewAmount(100)); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if _, err := e.DeriveSchedule(1); err != nil {
		t.Fatalf("derive: %v", err)
	}
	for _, verifier := range []string{"alice", "bob", "carol"} {
		if err := e.VerifyBlock(verifier, "block-a", 10); err != nil {
			t.Fatalf("verify a: %v", err)
		}
		if err := e.VerifyBlock(verifier, "block-b", 10); err != nil {
			t.Fatalf("verify b: %v", err)
		}
	}
	if err := e.CommitBlock("alice", "block-a", 10, types.NewAmount(100), []string{"alice", "bob", "carol"}, 1000); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if err := e.CommitBlock("alice", "block-b", 10, types.NewAmount(300), []string{"alice", "bob", "carol"}, 1000); err != nil {
		t.Fatalf("commit b: %v", err)
	}
	// Drain alice's staked balance below the larger commitment so the
	// eventual slash must be capped at what remains, not what was committed.
	if err := l.SlashStaked("alice", "elsewhere", "COIN", types.NewAmount(250)); err != nil {
		t.Fatalf("drain stake: %v", err)
	}

	if err := e.ReportViolation("reporter", "alice", 10, "block-a", "block-b", 2000); err != nil {
		t.Fatalf("report violation: %v", err)
	}
	// max(100,300)=300, capped at alice's remaining 50 staked.
	if bal := l.Balance("reporter", "COIN").Staked; bal.Cmp(types.NewAmount(50)) != 0 {
		t.Fatalf("expected reporter to receive 50, got %s", bal)
	}
	if bal := l.Balance("alice", "COIN").Staked; !bal.IsZero() {
		t.Fatalf("expected alice's staked balance exhausted, got %s", bal)
	}
	if err := e.ReportViolation("reporter2", "alice", 10, "block-a", "block-b", 2000); err != errViolationDuplicate {
		t.Fatalf("expected errViolationDuplicate, got %v", err)
	}
}
