package evaluator

import (
	"fmt"
	"time"

	"chainforge/consensus/producer"
	"chainforge/core/account"
	"chainforge/core/assets"
	"chainforge/core/rewards"
	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/governance"
	"chainforge/native/ledger"
	"chainforge/native/market"
	"chainforge/native/social"
	"chainforge/observability"
)

// Dispatcher is the C9 component: it holds a reference onto every
// other component engine and routes operations to them (spec §4.9).
// It never duplicates those engines' own invariant checks; it only
// resolves the signatory, verifies the presented signatures satisfy
// the required authority, checks business authority, and forwards.
type Dispatcher struct {
	Store       *store.Store
	Assets      *assets.Registry
	Ledger      *ledger.Ledger
	Delegations *ledger.Delegations
	Accounts    *account.Registry
	Recoveries  *account.RecoveryRequests
	Energy      *account.EnergyLimiters
	Businesses  *account.Businesses
	Market      *market.Engine
	Pools       *market.Pools
	Bitassets   *market.Bitassets
	Rewards     *rewards.Engine
	Social      *social.Engine
	Communities *social.Communities
	Governance  *governance.Engine
	Producer    *producer.Engine
}

// SignedTransaction pairs a transaction's operations with the set of
// signing keys presented for it (spec §6's transaction envelope: one
// `signatures[]` list covers every operation inside). PresentedKeys
// indexes by raw key, not account, since a single signature can satisfy
// authorities on several different accounts within the same
// transaction (spec §4.2's weighted-threshold authorities).
type SignedTransaction struct {
	Operations    []Operation
	PresentedKeys map[string]bool
}

// requiredAuthorityClass maps an operation kind onto the authority
// class whose weighted threshold the presented keys must satisfy
// (spec §4.2 groups actions under owner/active/posting): content and
// social actions, officer candidacy, officer and producer votes, and
// verify_block use posting; authority-management, recovery and proxy
// actions use owner; everything else -- transfers, market, enterprise
// proposals and milestones, the remaining producer actions -- uses
// active.
func requiredAuthorityClass(kind OperationKind) account.AuthorityClass {
	switch kind {
	case OpPost, OpReply, OpEngage, OpCreateCommunity, OpJoinCommunity,
		OpPublishOfficerCandidacy, OpVoteOfficer, OpVoteProducer, OpVerifyBlock:
		return account.AuthorityPosting
	case OpUpdateAuthority, OpRequestRecovery, OpRecoverAccount, OpUpdateProxy:
		return account.AuthorityOwner
	default:
		return account.AuthorityActive
	}
}

// Dispatch resolves and applies one operation inside its own nested
// undo scope (spec §4.9 step 3: "begin scope -> lookup -> apply delta
// struct -> commit", chained under whatever enclosing transaction/
// block scope the caller already opened, so a later sibling failure
// can still unwind this operation too). A failed operation aborts its
// own scope and returns the error; it never leaks partial state into
// the parent.
//
// presentedKeys is the signing-key set accompanying the enclosing
// transaction; Dispatch resolves the signatory's required authority
// (spec §4.9 step 1, "resolve signatory account, verify active") via
// account.SatisfiesAuthority's recursive weighted-threshold and cycle
// check, then -- if the operation acts for a different account --
// checks business-role authority for the operation's class (step 2).
func (d *Dispatcher) Dispatch(op Operation, presentedKeys map[string]bool, now types.BlockTime) (err error) {
	start := time.Now()
	defer func() {
		code := ""
		if err != nil {
			code = errCode(err)
		}
		observability.EvaluatorDispatch().Observe(string(op.Kind()), code, time.Since(start))
	}()

	if _, ok := d.Accounts.Get(op.Signatory()); !ok {
		return errUnknownSignatory
	}
	auth, ok := d.Accounts.Authority(op.Signatory(), requiredAuthorityClass(op.Kind()))
	if !ok {
		return errUnknownSignatory
	}
	satisfied, err := d.Accounts.SatisfiesAuthority(auth, presentedKeys)
	if err != nil {
		return err
	}
	if !satisfied {
		return errAuthorityNotSatisfied
	}
	if err = d.Businesses.CheckBusinessAuthority(op.Signatory(), op.Account(), op.Class()); err != nil {
		return err
	}

	opScope := d.Store.Begin()
	if applyErr := d.apply(op, now); applyErr != nil {
		opScope.Abort()
		return applyErr
	}
	opScope.Commit()
	return nil
}

// ApplyTransaction runs every operation in tx.Operations, sharing
// tx.PresentedKeys across all of them, under one undo scope, aborting
// the whole transaction the moment any operation fails (spec §4.9's
// "a transaction is atomic across its operations" rule and the
// teacher's executeTransaction abort-on-first-error control flow).
func (d *Dispatcher) ApplyTransaction(tx SignedTransaction, now types.BlockTime) error {
	txScope := d.Store.Begin()
	for _, op := range tx.Operations {
		if err := d.Dispatch(op, tx.PresentedKeys, now); err != nil {
			txScope.Abort()
			return err
		}
	}
	txScope.Commit()
	return nil
}

// ApplyBlock runs every transaction in txs under one shared scope,
// aborting the whole block if any transaction fails (spec §4.9's block-
// level abort chain; spec §5 forbids partial-block application).
func (d *Dispatcher) ApplyBlock(txs []SignedTransaction, now types.BlockTime) error {
	blockScope := d.Store.Begin()
	for _, tx := range txs {
		if err := d.ApplyTransaction(tx, now); err != nil {
			blockScope.Abort()
			return err
		}
	}
	blockScope.Commit()
	return nil
}

// errCode reduces an error to a short metrics label; evaluator errors
// carry no structured code today, so this just uses the error string,
// matching the teacher's coarse-grained error-counter labelling.
func errCode(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (d *Dispatcher) apply(op Operation, now types.BlockTime) error {
	switch o := op.(type) {
	case CreateAsset:
		return d.Assets.Create(o.Asset)
	case UpdateAssetPermissions:
		return d.Assets.UpdatePermissions(o.Symbol, o.NewPermissions, o.NewFlags)

	case Transfer:
		return d.Ledger.Transfer(o.From, o.To, o.Symbol, o.Amount)
	case Stake:
		return d.Ledger.ScheduleStake(o.Account_, o.Symbol, o.Amount, o.Intervals, now)
	case Unstake:
		return d.Ledger.ScheduleUnstake(o.Account_, o.Symbol, o.Amount, o.Intervals, now)
	case Delegate:
		return d.Ledger.Delegate(d.Delegations, o.Delegator, o.Delegatee, o.Symbol, o.NewTotal, now)

	case CreateAccount:
		return d.Accounts.Create(o.New, o.Owner, o.Active, o.Posting, now)
	case UpdateAuthority:
		return d.Accounts.UpdateAuthority(o.Account_, o.Class_, o.NewAuth, now)
	case RequestRecovery:
		return d.Accounts.RequestAccountRecovery(d.Recoveries, o.Account_, o.NewOwner, now)
	case RecoverAccount:
		return d.Accounts.RecoverAccount(d.Recoveries, o.Account_, o.CallerAuth, o.PresentedOwner, now)
	case UpdateProxy:
		return d.Accounts.SetProxy(o.Account_, o.Proxy)

	case PlaceLimitOrder:
		_, err := d.Market.PlaceLimitOrder(o.Owner, o.Sell, o.Want, o.ForSale, o.SellPrice, o.Expiration, now, o.FillOrKill)
		return err
	case CancelLimitOrder:
		return d.Market.CancelLimitOrder(o.Sell, o.Want, o.ID)
	case ExchangePool:
		_, err := d.Pools.Exchange(d.Ledger, o.Trader, o.A, o.B, o.In, o.AmountIn, o.MinOut)
		return err
	case PublishPriceFeed:
		return d.Bitassets.PublishFeed(o.Symbol, o.Publisher, o.Feed, o.IsActiveProducer, o.ProducerFedAsset)

	case ClaimActivityReward:
		claim := rewards.ActivityClaim{
			Account:           o.Claim.Account,
			HasRecentPost:     o.Claim.HasRecentPost,
			HasRecentView:     o.Claim.HasRecentView,
			HasRecentVote:     o.Claim.HasRecentVote,
			ProducerVoteCount: o.Claim.ProducerVoteCount,
		}
		if err := d.Rewards.ClaimActivity(claim, o.Amount, now); err != nil {
			return err
		}
		return d.Accounts.RecordActivityClaim(o.Claim.Account, now)

	case Post:
		acct, ok := d.Accounts.Get(o.Author)
		if !ok {
			return fmt.Errorf("evaluator: unknown author %q", o.Author)
		}
		if err := d.Social.Post(o.Author, o.Permlink, o.Comment, now, acct.LastPostTime); err != nil {
			return err
		}
		return d.Accounts.RecordPost(o.Author, now)
	case Reply:
		acct, ok := d.Accounts.Get(o.Author)
		if !ok {
			return fmt.Errorf("evaluator: unknown author %q", o.Author)
		}
		if err := d.Energy.Consume(o.Author, account.EnergyCommenting, now, 1); err != nil {
			return err
		}
		if err := d.Social.Reply(o.Author, o.Permlink, o.ParentAuthor, o.ParentPermlink, o.Comment, o.CommentPrice, now, acct.LastPostTime); err != nil {
			return err
		}
		return d.Accounts.RecordPost(o.Author, now)
	case Engage:
		if err := d.Energy.Consume(o.Actor, energyKindFor(o.Kind_), now, engagementCost(o.PercentBPS)); err != nil {
			return err
		}
		if err := d.Social.Engage(o.Kind_, o.Author, o.Permlink, o.Actor, o.PercentBPS, now); err != nil {
			return err
		}
		if o.Kind_ == social.EngagementVote {
			return d.Accounts.RecordVote(o.Actor, now)
		}
		return nil
	case CreateCommunity:
		return d.Communities.Create(o.Name, o.Founder, o.Privacy, o.PublicKey, now)
	case JoinCommunity:
		if err := d.Communities.RequestJoin(o.Community, o.Account_, o.Message, now); err != nil {
			return err
		}
		community, ok := d.Communities.Get(o.Community)
		if ok && community.Privacy == social.PrivacyOpen {
			return d.Communities.AcceptJoin(o.Community, o.Account_, now)
		}
		return nil

	case PublishOfficerCandidacy:
		return d.Governance.PublishCandidacy(o.Account_, o.Role, o.TopProducer, now)
	case VoteOfficer:
		return d.Governance.Vote(o.Voter, o.Role, o.Candidate, o.PowerBPS, now)
	case SubmitEnterpriseProposal:
		_, err := d.Governance.SubmitEnterpriseProposal(o.Proposer, o.FundAccount, o.Asset, o.DailyBudget, o.Milestones, now)
		return err
	case ApproveMilestone:
		return d.Governance.ApproveMilestone(o.ProposalID, o.Index)
	case ClaimMilestone:
		return d.Governance.ClaimMilestone(o.ProposalID, o.Index)

	case RegisterProducer:
		return d.Producer.RegisterProducer(o.Owner, o.SigningKey, o.URL, o.Details, o.Lat, o.Lon)
	case VoteProducer:
		return d.Producer.Vote(o.Voter, o.Producer, o.Weight)
	case VerifyBlock:
		return d.Producer.VerifyBlock(o.Verifier, o.BlockID, o.Height)
	case CommitBlock:
		return d.Producer.CommitBlock(o.Producer, o.BlockID, o.Height, o.CommitmentStake, o.Verifications, now)
	case ReportViolation:
		return d.Producer.ReportViolation(o.Reporter, o.Producer, o.Height, o.BlockA, o.BlockB, now)
	case SubmitProofOfWork:
		return d.Producer.SubmitProofOfWork(o.Miner, o.SigningKey, o.PrevBlockID, o.PowSummary, o.TargetPow)

	default:
		return errUnknownOperation
	}
}

// energyKindFor maps a social engagement kind onto its energy pool
// (spec §4.5). Commenting energy is instead consumed directly in the
// Reply case above, since social.EngagementKind has no "comment" value
// of its own -- a comment is a Reply operation, not an Engage one.
func energyKindFor(kind social.EngagementKind) account.EnergyKind {
	switch kind {
	case social.EngagementView:
		return account.EnergyViewing
	case social.EngagementShare:
		return account.EnergySharing
	default:
		return account.EnergyVoting
	}
}

// engagementCost scales energy consumption with the weight of the
// engagement: a 100%-strength vote costs the full unit, a partial-
// strength vote costs proportionally less (spec §4.5's weighted mana
// spend).
func engagementCost(percentBPS int32) int {
	if percentBPS < 0 {
		percentBPS = -percentBPS
	}
	cost := int(percentBPS) / 100
	if cost < 1 {
		cost = 1
	}
	return cost
}
