package governance

import (
	"sort"

	"github.com/google/uuid"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

// Config is the governance engine's tunable policy, passed explicitly
// rather than imported from the config package, matching
// native/market's credit-pool ratio convention.
type Config struct {
	Requirements             BoardRequirements
	MinMilestoneApprovals    int
	DisbursementIntervalSecs int64
}

// Engine is the C7 Governance component.
type Engine struct {
	ledger    *ledger.Ledger
	officers  *store.Table[string, Officer]
	votes     *store.Table[string, OfficerVote]
	board     *store.Table[string, ExecutiveBoard]
	proposals *store.Table[string, EnterpriseProposal]
	cfg       Config
}

// New registers the governance tables on s.
func New(s *store.Store, l *ledger.Ledger, cfg Config) *Engine {
	return &Engine{
		ledger:    l,
		officers:  store.NewTable[string, Officer](s, "officers"),
		votes:     store.NewTable[string, OfficerVote](s, "officer_votes"),
		board:     store.NewTable[string, ExecutiveBoard](s, "executive_board"),
		proposals: store.NewTable[string, EnterpriseProposal](s, "enterprise_proposals"),
		cfg:       cfg,
	}
}

// PublishCandidacy registers account as an officer candidate for role,
// or updates an existing candidacy's role/top-producer flag.
func (e *Engine) PublishCandidacy(account string, role OfficerRole, topProducer bool, now types.BlockTime) error {
	if _, ok := e.officers.Get(account); ok {
		return e.officers.Modify(account, func(o *Officer) {
			o.Role = role
			o.TopProducer = topProducer
		})
	}
	return e.officers.Insert(Officer{Account: account, Role: role, TopProducer: topProducer, Active: true, CreatedAt: now})
}

// Officer returns a candidate's record.
func (e *Engine) Officer(account string) (Officer, bool) { return e.officers.Get(account) }

// Vote casts voter's ranked-slot ballot for candidate in role, replacing
// any prior ballot for that (voter, role) pair (spec §4.7).
func (e *Engine) Vote(voter string, role OfficerRole, candidate string, powerBps uint32, now types.BlockTime) error {
	if _, ok := e.officers.Get(candidate); !ok {
		return errUnknownOfficer
	}
	key := voteKey(voter, role)
	row := OfficerVote{Voter: voter, Role: role, Candidate: candidate, PowerBps: powerBps, CreatedAt: now}
	if _, ok := e.votes.Get(key); ok {
		return e.votes.Modify(key, func(v *OfficerVote) { *v = row })
	}
	return e.votes.Insert(row)
}

// Tally returns each candidate's accumulated voting power for role,
// ordered by descending power then ascending account name for a
// deterministic tie-break (spec §5: "iteration over indexes uses key
// order", generalised here to a derived ranking rather than a stored
// index).
func (e *Engine) Tally(role OfficerRole) []OfficerTallyEntry {
	totals := make(map[string]uint32)
	e.votes.All(func(v OfficerVote) bool {
		if v.Role == role {
			totals[v.Candidate] += v.PowerBps
		}
		return true
	})
	entries := make([]OfficerTallyEntry, 0, len(totals))
	for candidate, power := range totals {
		entries = append(entries, OfficerTallyEntry{Candidate: candidate, PowerBps: power})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PowerBps != entries[j].PowerBps {
			return entries[i].PowerBps > entries[j].PowerBps
		}
		return entries[i].Candidate < entries[j].Candidate
	})
	return entries
}

// EvaluateBoard checks snapshot against the configured requirements. If
// every condition holds simultaneously it forms (or refreshes) the
// singleton executive board with members and returns no reasons;
// otherwise it leaves the board untouched and returns the unmet
// conditions.
func (e *Engine) EvaluateBoard(snapshot BoardEligibilitySnapshot, members []string, now types.BlockTime) ([]string, error) {
	if reasons := e.cfg.Requirements.Unmet(snapshot); len(reasons) > 0 {
		return reasons, nil
	}
	row := ExecutiveBoard{Members: append([]string(nil), members...), FormedAt: now, Active: true}
	if _, ok := e.board.Get(row.PrimaryKey()); ok {
		return nil, e.board.Modify(row.PrimaryKey(), func(b *ExecutiveBoard) { *b = row })
	}
	return nil, e.board.Insert(row)
}

// Board returns the current executive board, if one has been formed.
func (e *Engine) Board() (ExecutiveBoard, bool) { return e.board.Get("board") }

// SubmitEnterpriseProposal validates that the milestone vector's percent
// shares sum to 100 and registers a new proposal under a fresh
// correlation id (spec §4.7).
func (e *Engine) SubmitEnterpriseProposal(proposer, fundAccount string, asset types.AssetSymbol, dailyBudget types.Amount, milestones []MilestoneShare, now types.BlockTime) (string, error) {
	var total uint32
	for _, m := range milestones {
		total += m.Percent
	}
	if total != 100 {
		return "", errMilestoneSharesInvalid
	}
	proposal := EnterpriseProposal{
		ID:                uuid.NewString(),
		Proposer:          proposer,
		FundAccount:       fundAccount,
		RewardAsset:       asset,
		DailyBudget:       dailyBudget,
		Milestones:        append([]MilestoneShare(nil), milestones...),
		PendingMilestones: uint32(len(milestones)),
		Active:            true,
		CreatedAt:         now,
	}
	if err := e.proposals.Insert(proposal); err != nil {
		return "", err
	}
	return proposal.ID, nil
}

// Proposal returns an enterprise proposal's current state.
func (e *Engine) Proposal(id string) (EnterpriseProposal, bool) { return e.proposals.Get(id) }

// ApproveMilestone records one approval against milestone index. Once a
// milestone's approval count reaches the configured quorum it moves from
// pending to approved (spec §4.7: "per-milestone approval counters,
// pending/claimed/approved milestone counters").
func (e *Engine) ApproveMilestone(id string, index int) error {
	proposal, ok := e.proposals.Get(id)
	if !ok {
		return errProposalNotFound
	}
	if index < 0 || index >= len(proposal.Milestones) {
		return errMilestoneIndexOutOfRange
	}
	return e.proposals.Modify(id, func(p *EnterpriseProposal) {
		m := &p.Milestones[index]
		if m.Claimed {
			return
		}
		wasApproved := m.Approvals >= e.cfg.MinMilestoneApprovals
		m.Approvals++
		if !wasApproved && m.Approvals >= e.cfg.MinMilestoneApprovals {
			p.ApprovedMilestones++
			p.PendingMilestones--
		}
	})
}

// ClaimMilestone moves one approved milestone to claimed. Claiming
// requires the milestone to already have cleared the approval quorum;
// claimed milestones can never exceed approved ones, so
// ApprovedMilestones >= ClaimedMilestones holds as an invariant.
func (e *Engine) ClaimMilestone(id string, index int) error {
	proposal, ok := e.proposals.Get(id)
	if !ok {
		return errProposalNotFound
	}
	if index < 0 || index >= len(proposal.Milestones) {
		return errMilestoneIndexOutOfRange
	}
	if proposal.Milestones[index].Approvals < e.cfg.MinMilestoneApprovals {
		return errNoApprovedMilestones
	}
	if proposal.Milestones[index].Claimed {
		return errMilestoneAlreadyClaimed
	}
	return e.proposals.Modify(id, func(p *EnterpriseProposal) {
		p.Milestones[index].Claimed = true
		p.ClaimedMilestones++
	})
}

// DisburseDaily pays DailyBudget from the fund account to the proposer,
// gated on the proposal being active, approved milestones still
// outnumbering (or matching) claimed ones, and at least
// DisbursementIntervalSecs having elapsed since the last payout (spec
// §4.7: "the fund disburses daily_budget each day while
// approved_milestones >= claimed_milestones and active").
func (e *Engine) DisburseDaily(id string, now types.BlockTime) error {
	proposal, ok := e.proposals.Get(id)
	if !ok {
		return errProposalNotFound
	}
	if !proposal.Active {
		return errProposalInactive
	}
	if proposal.ApprovedMilestones < proposal.ClaimedMilestones {
		return errNoApprovedMilestones
	}
	if proposal.LastDisbursedAt != 0 && now-proposal.LastDisbursedAt < types.BlockTime(e.cfg.DisbursementIntervalSecs) {
		return errDisbursementNotDue
	}
	if err := e.ledger.Transfer(proposal.FundAccount, proposal.Proposer, proposal.RewardAsset, proposal.DailyBudget); err != nil {
		return err
	}
	return e.proposals.Modify(id, func(p *EnterpriseProposal) { p.LastDisbursedAt = now })
}

// Deactivate stops further disbursement for a proposal.
func (e *Engine) Deactivate(id string) error {
	if _, ok := e.proposals.Get(id); !ok {
		return errProposalNotFound
	}
	return e.proposals.Modify(id, func(p *EnterpriseProposal) { p.Active = false })
}
