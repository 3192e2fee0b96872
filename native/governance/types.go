// Package governance implements the Governance component (C7): network
// officer candidacy and voting, executive board eligibility gating, and
// enterprise proposals with milestone-based daily budget disbursement.
// Grounded on the teacher's native/governance/engine.go and types.go
// (proposal/vote/tally shape), generalised from param-update DAO
// proposals to this spec's officer/board/enterprise-milestone model.
package governance

import (
	"fmt"

	"chainforge/core/types"
)

// OfficerRole enumerates the three network officer roles (spec §4.7).
type OfficerRole uint8

const (
	RoleDevelopment OfficerRole = iota
	RoleMarketing
	RoleAdvocacy
)

// Officer is a published officer candidacy (spec §4.7: "Network officers
// (development, marketing, advocacy) publish candidacy"). A fresh record
// is always active, mirroring the first-create-is-active rule spec.md
// §9 documents for update_network_officer.
type Officer struct {
	Account     string
	Role        OfficerRole
	TopProducer bool
	Active      bool
	CreatedAt   types.BlockTime
}

// PrimaryKey implements store.Row.
func (o Officer) PrimaryKey() string { return o.Account }

// OfficerVote is one token holder's ranked-slot ballot for a role (spec
// §4.7: "token holders vote by ranked slot"). A voter holds at most one
// ballot per role, replaced on re-vote.
type OfficerVote struct {
	Voter     string
	Role      OfficerRole
	Candidate string
	PowerBps  uint32
	CreatedAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (v OfficerVote) PrimaryKey() string { return voteKey(v.Voter, v.Role) }

func voteKey(voter string, role OfficerRole) string { return fmt.Sprintf("%s/%d", voter, role) }

// OfficerTallyEntry is one candidate's accumulated ballot power for a role.
type OfficerTallyEntry struct {
	Candidate string
	PowerBps  uint32
}

// BoardRequirements is the spec §4.7 fixed threshold vector an executive
// board must simultaneously satisfy. MinCreditAssetPriceMicroUSD scales
// USD by 1e6, so the spec's "> USD 0.90" is 900000.
type BoardRequirements struct {
	MinEquityHeld                types.Amount
	MinAccountDAU                uint64
	MinOfficersAcrossRoles       int
	RequireTopProducerOfficer    bool
	MinVoterApprovals            int
	MinVoterApprovalPowerBps     uint32
	MinProducerApprovals         int
	MinProducerApprovalPowerBps  uint32
	MinCreditAssetPriceMicroUSD  uint64
}

// BoardEligibilitySnapshot is the aggregate network state an executive
// board formation is checked against. The engine does not compute this
// itself — callers assemble it from C1-C6 (equity balances, active-user
// counters, the officer roster, vote tallies) and pass it in, the same
// explicit-argument convention native/market's credit pools use for
// tunable ratios rather than reaching into other components directly.
type BoardEligibilitySnapshot struct {
	EquityHeld               types.Amount
	SupernodeDAU             uint64
	InterfaceDAU             uint64
	GovernanceDAU            uint64
	OfficersByRole           map[OfficerRole]int
	HasTopProducerOfficer    bool
	VoterApprovals           int
	VoterApprovalPowerBps    uint32
	ProducerApprovals        int
	ProducerApprovalPowerBps uint32
	CreditAssetPriceMicroUSD uint64
}

// Unmet evaluates snapshot against r and returns one reason string per
// unsatisfied condition; an empty result means every condition holds
// simultaneously, per spec §4.7's "require simultaneous satisfaction".
func (r BoardRequirements) Unmet(s BoardEligibilitySnapshot) []string {
	var reasons []string
	if s.EquityHeld.LessThan(r.MinEquityHeld) {
		reasons = append(reasons, "insufficient equity held")
	}
	if s.SupernodeDAU < r.MinAccountDAU {
		reasons = append(reasons, "supernode account DAU below threshold")
	}
	if s.InterfaceDAU < r.MinAccountDAU {
		reasons = append(reasons, "interface account DAU below threshold")
	}
	if s.GovernanceDAU < r.MinAccountDAU {
		reasons = append(reasons, "governance account DAU below threshold")
	}
	officerCount := 0
	for _, n := range s.OfficersByRole {
		officerCount += n
	}
	if officerCount < r.MinOfficersAcrossRoles {
		reasons = append(reasons, "fewer than required officers across roles")
	}
	if r.RequireTopProducerOfficer && !s.HasTopProducerOfficer {
		reasons = append(reasons, "no top-producer officer")
	}
	if s.VoterApprovals < r.MinVoterApprovals || s.VoterApprovalPowerBps < r.MinVoterApprovalPowerBps {
		reasons = append(reasons, "insufficient voter approvals")
	}
	if s.ProducerApprovals < r.MinProducerApprovals || s.ProducerApprovalPowerBps < r.MinProducerApprovalPowerBps {
		reasons = append(reasons, "insufficient producer approvals")
	}
	if s.CreditAssetPriceMicroUSD <= r.MinCreditAssetPriceMicroUSD {
		reasons = append(reasons, "credit asset price at or below floor")
	}
	return reasons
}

// ExecutiveBoard is the singleton board entity (spec §4.7).
type ExecutiveBoard struct {
	Members  []string
	FormedAt types.BlockTime
	Active   bool
}

// PrimaryKey implements store.Row; the board has exactly one row.
func (b ExecutiveBoard) PrimaryKey() string { return "board" }

// MilestoneShare is one milestone in an enterprise proposal's vector
// (spec §4.7: "milestone vectors (percent shares summing to 100),
// per-milestone approval counters").
type MilestoneShare struct {
	Percent   uint32
	Approvals int
	Claimed   bool
}

// EnterpriseProposal is the spec §4.7 enterprise proposal entity, keyed
// by a generated correlation id (SPEC_FULL.md domain stack: uuid for
// enterprise-proposal ids).
type EnterpriseProposal struct {
	ID                 string
	Proposer           string
	FundAccount        string
	RewardAsset        types.AssetSymbol
	DailyBudget        types.Amount
	Milestones         []MilestoneShare
	ApprovedMilestones uint32
	ClaimedMilestones  uint32
	PendingMilestones  uint32
	Active             bool
	CreatedAt          types.BlockTime
	LastDisbursedAt    types.BlockTime
}

// PrimaryKey implements store.Row.
func (p EnterpriseProposal) PrimaryKey() string { return p.ID }
