package evaluator

import (
	"testing"

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
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	if err := reg.Create(assets.Asset{Symbol: "COIN", Kind: assets.KindStandard, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	l := ledger.New(s, reg)
	accounts := account.New(s)
	emptyAuth := account.Authority{Threshold: 1, Keys: []account.KeyWeight{{Key: "k", Weight: 1}}}

	d := &Dispatcher{
		Store:       s,
		Assets:      reg,
		Ledger:      l,
		Delegations: ledger.NewDelegations(s),
		Accounts:    accounts,
		Recoveries:  account.NewRecoveryRequests(s),
		Energy:      account.NewEnergyLimiters(600),
		Businesses:  account.NewBusinesses(),
		Market:      market.New(s, l),
		Pools:       market.NewPools(s),
		Bitassets:   market.NewBitassets(s),
		Rewards:     rewards.New(l, accounts, rewards.Config{}),
		Social:      social.New(s, l, social.Config{RootPostIntervalSecs: 60, ReplyIntervalSecs: 10}),
		Communities: social.NewCommunities(s),
		Governance:  governance.New(s, l, governance.Config{}),
		Producer:    producer.New(s, l, producer.Config{RoundSlotCount: 6, TopVotingCount: 2, TopMiningCount: 1, IrreversibleThresholdBPS: 6700, MiningPowerDecayBPS: 9900}),
	}
	for _, name := range []string{"alice", "bob"} {
		if err := accounts.Create(account.Account{Name: name}, emptyAuth, emptyAuth, emptyAuth, 1000); err != nil {
			t.Fatalf("create account %s: %v", name, err)
		}
	}
	return d
}

// keyK is the lone signing key every test account's authorities are
// configured with by newTestDispatcher.
var keyK = map[string]bool{"k": true}

func TestDispatchRejectsUnknownSignatory(t *testing.T) {
	d := newTestDispatcher(t)
	op := Transfer{Sig: "ghost", From: "alice", To: "bob", Symbol: "COIN", Amount: types.NewAmount(1)}
	if err := d.Dispatch(op, keyK, 1000); err != errUnknownSignatory {
		t.Fatalf("expected errUnknownSignatory, got %v", err)
	}
}

func TestDispatchRejectsUnsatisfiedAuthority(t *testing.T) {
	d := newTestDispatcher(t)
	if err := d.Ledger.Mint("alice", "COIN", types.NewAmount(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	op := Transfer{Sig: "alice", From: "alice", To: "bob", Symbol: "COIN", Amount: types.NewAmount(1)}
	if err := d.Dispatch(op, map[string]bool{}, 1000); err != errAuthorityNotSatisfied {
		t.Fatalf("expected errAuthorityNotSatisfied, got %v", err)
	}
}

func TestDispatchTransferMovesLiquidBalance(t *testing.T) {
	d := newTestDispatcher(t)
	if err := d.Ledger.Mint("alice", "COIN", types.NewAmount(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	op := Transfer{Sig: "alice", From: "alice", To: "bob", Symbol: "COIN", Amount: types.NewAmount(40)}
	if err := d.Dispatch(op, keyK, 1000); err != nil {
		t.Fatalf("dispatch transfer: %v", err)
	}
	if bal := d.Ledger.Balance("bob", "COIN").Liquid; bal.Cmp(types.NewAmount(40)) != 0 {
		t.Fatalf("expected bob to receive 40, got %s", bal)
	}
	if bal := d.Ledger.Balance("alice", "COIN").Liquid; bal.Cmp(types.NewAmount(60)) != 0 {
		t.Fatalf("expected alice left with 60, got %s", bal)
	}
}

func TestDispatchRejectsSignatoryActingForAnotherAccountWithoutBusinessRole(t *testing.T) {
	d := newTestDispatcher(t)
	if err := d.Ledger.Mint("bob", "COIN", types.NewAmount(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	op := Transfer{Sig: "alice", From: "bob", To: "alice", Symbol: "COIN", Amount: types.NewAmount(10)}
	if err := d.Dispatch(op, keyK, 1000); err == nil {
		t.Fatalf("expected authority error, got nil")
	}
	if bal := d.Ledger.Balance("bob", "COIN").Liquid; bal.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("expected bob's balance untouched, got %s", bal)
	}
}

func TestApplyTransactionAbortsEarlierOperationsOnLaterFailure(t *testing.T) {
	d := newTestDispatcher(t)
	if err := d.Ledger.Mint("alice", "COIN", types.NewAmount(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	tx := SignedTransaction{
		Operations: []Operation{
			Transfer{Sig: "alice", From: "alice", To: "bob", Symbol: "COIN", Amount: types.NewAmount(30)},
			Transfer{Sig: "alice", From: "alice", To: "bob", Symbol: "COIN", Amount: types.NewAmount(1000)}, // exceeds remaining balance
		},
		PresentedKeys: keyK,
	}
	if err := d.ApplyTransaction(tx, 1000); err == nil {
		t.Fatalf("expected the transaction to fail")
	}
	if bal := d.Ledger.Balance("alice", "COIN").Liquid; bal.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("expected the first transfer to be rolled back, alice has %s", bal)
	}
	if bal := d.Ledger.Balance("bob", "COIN").Liquid; !bal.IsZero() {
		t.Fatalf("expected bob to have received nothing, got %s", bal)
	}
}

func TestDispatchEngageExhaustsEnergyPool(t *testing.T) {
	d := newTestDispatcher(t)
	comment := social.Comment{Author: "alice", Permlink: "p1", Body: "hello", RewardAsset: "COIN", Split: social.PayoutSplit{AuthorBPS: 10000}}
	if err := d.Dispatch(Post{Sig: "alice", Author: "alice", Permlink: "p1", Comment: comment}, keyK, 1000); err != nil {
		t.Fatalf("post: %v", err)
	}
	engage := Engage{Sig: "bob", Kind_: social.EngagementVote, Author: "alice", Permlink: "p1", Actor: "bob", PercentBPS: 10000}
	if err := d.Dispatch(engage, keyK, 1000); err != nil {
		t.Fatalf("first vote should succeed: %v", err)
	}
	if err := d.Dispatch(engage, keyK, 1001); err != account.ErrEnergyExhausted {
		t.Fatalf("expected energy pool exhausted on immediate re-vote, got %v", err)
	}
}
