package governance

import (
	"testing"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

func newTestEngine(t *testing.T) (*ledger.Ledger, *Engine) {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	if err := reg.Create(assets.Asset{Symbol: "COIN", Kind: assets.KindStandard, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	l := ledger.New(s, reg)
	cfg := Config{
		Requirements: BoardRequirements{
			MinEquityHeld:               types.NewAmount(100),
			MinAccountDAU:               100,
			MinOfficersAcrossRoles:      3,
			RequireTopProducerOfficer:   true,
			MinVoterApprovals:           100,
			MinVoterApprovalPowerBps:    1000,
			MinProducerApprovals:        20,
			MinProducerApprovalPowerBps: 1000,
			MinCreditAssetPriceMicroUSD: 900000,
		},
		MinMilestoneApprovals:    2,
		DisbursementIntervalSecs: 86400,
	}
	return l, New(s, l, cfg)
}

func TestOfficerVoteTallyOrdersByPowerThenName(t *testing.T) {
	_, e := newTestEngine(t)
	if err := e.PublishCandidacy("alice", RoleDevelopment, false, 0); err != nil {
		t.Fatalf("publish alice: %v", err)
	}
	if err := e.PublishCandidacy("bob", RoleDevelopment, false, 0); err != nil {
		t.Fatalf("publish bob: %v", err)
	}
	if err := e.Vote("voter1", RoleDevelopment, "alice", 500, 10); err != nil {
		t.Fatalf("vote 1: %v", err)
	}
	if err := e.Vote("voter2", RoleDevelopment, "bob", 500, 10); err != nil {
		t.Fatalf("vote 2: %v", err)
	}
	tally := e.Tally(RoleDevelopment)
	if len(tally) != 2 || tally[0].PowerBps != tally[1].PowerBps {
		t.Fatalf("expected a tie, got %+v", tally)
	}
	if tally[0].Candidate != "alice" {
		t.Fatalf("tie-break should favour alice alphabetically, got %+v", tally)
	}
}

func TestEvaluateBoardRejectsUntilAllConditionsMet(t *testing.T) {
	_, e := newTestEngine(t)
	snapshot := BoardEligibilitySnapshot{
		EquityHeld:               types.NewAmount(50),
		SupernodeDAU:             10,
		InterfaceDAU:             10,
		GovernanceDAU:            10,
		OfficersByRole:           map[OfficerRole]int{RoleDevelopment: 1},
		HasTopProducerOfficer:    false,
		VoterApprovals:           5,
		VoterApprovalPowerBps:    100,
		ProducerApprovals:        1,
		ProducerApprovalPowerBps: 100,
		CreditAssetPriceMicroUSD: 500000,
	}
	reasons, err := e.EvaluateBoard(snapshot, []string{"alice"}, 100)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(reasons) == 0 {
		t.Fatal("expected unmet reasons for a clearly deficient snapshot")
	}
	if _, ok := e.Board(); ok {
		t.Fatal("board should not form while requirements are unmet")
	}

	snapshot = BoardEligibilitySnapshot{
		EquityHeld:               types.NewAmount(150),
		SupernodeDAU:             150,
		InterfaceDAU:             150,
		GovernanceDAU:            150,
		OfficersByRole:           map[OfficerRole]int{RoleDevelopment: 1, RoleMarketing: 1, RoleAdvocacy: 1},
		HasTopProducerOfficer:    true,
		VoterApprovals:           120,
		VoterApprovalPowerBps:    1500,
		ProducerApprovals:        25,
		ProducerApprovalPowerBps: 1500,
		CreditAssetPriceMicroUSD: 950000,
	}
	reasons, err = e.EvaluateBoard(snapshot, []string{"alice", "bob", "carol"}, 200)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(reasons) != 0 {
		t.Fatalf("expected no unmet reasons, got %v", reasons)
	}
	board, ok := e.Board()
	if !ok {
		t.Fatal("expected board to be formed")
	}
	if len(board.Members) != 3 {
		t.Fatalf("member count = %d, want 3", len(board.Members))
	}
}

func TestEnterpriseProposalMilestoneLifecycleAndDisbursement(t *testing.T) {
	l, e := newTestEngine(t)
	if err := l.Mint("fund", "COIN", types.NewAmount(1000)); err != nil {
		t.Fatalf("mint fund: %v", err)
	}
	milestones := []MilestoneShare{{Percent: 50}, {Percent: 50}}
	id, err := e.SubmitEnterpriseProposal("builder", "fund", "COIN", types.NewAmount(100), milestones, 1000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := e.DisburseDaily(id, 1000); err != nil {
		t.Fatalf("expected initial disbursement (0 claimed <= 0 approved): %v", err)
	}

	if err := e.ApproveMilestone(id, 0); err != nil {
		t.Fatalf("approve 1: %v", err)
	}
	if err := e.ApproveMilestone(id, 0); err != nil {
		t.Fatalf("approve 2: %v", err)
	}
	proposal, _ := e.Proposal(id)
	if proposal.ApprovedMilestones != 1 || proposal.PendingMilestones != 1 {
		t.Fatalf("unexpected milestone counters: %+v", proposal)
	}

	if err := e.ClaimMilestone(id, 0); err != nil {
		t.Fatalf("claim: %v", err)
	}
	proposal, _ = e.Proposal(id)
	if proposal.ClaimedMilestones != 1 {
		t.Fatalf("claimed milestones = %d, want 1", proposal.ClaimedMilestones)
	}

	if err := e.DisburseDaily(id, 1000+86400); err != nil {
		t.Fatalf("disburse after interval: %v", err)
	}
	if err := e.DisburseDaily(id, 1000+86400+10); err == nil {
		t.Fatal("expected disbursement-not-due rejection inside the same day")
	}

	if _, err := e.SubmitEnterpriseProposal("builder", "fund", "COIN", types.NewAmount(10), []MilestoneShare{{Percent: 40}}, 2000); err == nil {
		t.Fatal("expected rejection of a milestone vector that does not sum to 100")
	}
}
