package social

import (
	"testing"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
)

func newTestEngine(t *testing.T) (*store.Store, *Engine) {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	if err := reg.Create(assets.Asset{Symbol: "COIN", Kind: assets.KindStandard, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	l := ledger.New(s, reg)
	cfg := Config{
		RootPostIntervalSecs:    60,
		ReplyIntervalSecs:       15,
		CurationDecayWindowSecs: 1800,
		VoteDecayCount:          100,
		ViewDecayCount:          100,
		ShareDecayCount:         100,
		CommentDecayCount:       100,
		StorageAccount:          "storage_pool",
		ModerationPoolAccount:   "moderation_pool",
	}
	return s, New(s, l, cfg)
}

func TestPostEnforcesRootInterval(t *testing.T) {
	_, e := newTestEngine(t)
	c := Comment{RewardAsset: "COIN", Split: PayoutSplit{AuthorBPS: 10000}, Format: FormatText, Body: "hello"}
	if err := e.Post("alice", "first-post", c, 100, 50); err == nil {
		t.Fatal("expected root interval rejection")
	}
	if err := e.Post("alice", "first-post", c, 200, 50); err != nil {
		t.Fatalf("expected post to succeed: %v", err)
	}
}

func TestReplyRequiresCommentPricePaid(t *testing.T) {
	_, e := newTestEngine(t)
	parent := Comment{RewardAsset: "COIN", Split: PayoutSplit{AuthorBPS: 10000}, Format: FormatText, Body: "root"}
	if err := e.Post("alice", "root", parent, 1000, 0); err != nil {
		t.Fatalf("post: %v", err)
	}
	reply := Comment{RewardAsset: "COIN", Split: PayoutSplit{AuthorBPS: 10000}, Format: FormatText, Body: "reply"}
	if err := e.Reply("bob", "reply-1", "alice", "root", reply, types.NewAmount(5), 1100, 0); err == nil {
		t.Fatal("expected unpaid comment price rejection")
	}
	if err := e.PayCommentPrice("alice", "root", types.NewAmount(5)); err != nil {
		t.Fatalf("pay comment price: %v", err)
	}
	if err := e.Reply("bob", "reply-1", "alice", "root", reply, types.NewAmount(5), 1100, 0); err != nil {
		t.Fatalf("expected reply to succeed: %v", err)
	}
}

func TestEngageAccumulatesWeightAndAppliesDiscounts(t *testing.T) {
	_, e := newTestEngine(t)
	c := Comment{RewardAsset: "COIN", Split: PayoutSplit{AuthorBPS: 10000}, Format: FormatText, Body: "hello", Curve: CurveQuadratic}
	if err := e.Post("alice", "post-1", c, 1000, 0); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := e.Engage(EngagementVote, "alice", "post-1", "bob", 10000, 1010); err != nil {
		t.Fatalf("engage: %v", err)
	}
	stored, ok := e.Get("alice", "post-1")
	if !ok {
		t.Fatal("expected comment to exist")
	}
	if stored.NetVotes != 1 {
		t.Fatalf("net votes = %d, want 1", stored.NetVotes)
	}
	if stored.TotalVoteWeight.Big().Sign() <= 0 {
		t.Fatal("expected positive accumulated vote weight")
	}
}

func TestCashoutDistributesSplitAndBeneficiaries(t *testing.T) {
	_, e := newTestEngine(t)
	c := Comment{
		RewardAsset: "COIN",
		Split: PayoutSplit{
			AuthorBPS:  7000,
			VoteBPS:    2000,
			StorageBPS: 1000,
		},
		Beneficiaries: []Beneficiary{{Account: "charlie", BPS: 1000}},
		Format:        FormatText,
		Body:          "hello",
		Curve:         CurveLinear,
	}
	if err := e.Post("alice", "post-2", c, 1000, 0); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := e.Engage(EngagementVote, "alice", "post-2", "bob", 10000, 1100); err != nil {
		t.Fatalf("engage: %v", err)
	}
	out, err := e.Cashout("alice", "post-2", types.NewAmount(1000), 2000)
	if err != nil {
		t.Fatalf("cashout: %v", err)
	}
	var total types.Amount
	for _, v := range out {
		total = total.Add(v)
	}
	if total.Cmp(types.NewAmount(1000)) != 0 {
		t.Fatalf("distributed total = %s, want 1000", total)
	}
	if out["storage_pool"].Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("storage pool = %s, want 100", out["storage_pool"])
	}
	if out["charlie"].IsZero() {
		t.Fatal("expected beneficiary payout")
	}
	if out["bob"].IsZero() {
		t.Fatal("expected voter payout from the vote pool")
	}

	if _, err := e.Cashout("alice", "post-2", types.NewAmount(100), 3000); err == nil {
		t.Fatal("expected double-cashout rejection")
	}
}

func TestCommunityJoinRequestLifecycle(t *testing.T) {
	s := store.New()
	c := NewCommunities(s)
	if err := c.Create("gophers", "alice", PrivacyRestricted, "pub-key", 100); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.RequestJoin("gophers", "bob", "let me in", 200); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := c.AcceptJoin("gophers", "bob", 300); err != nil {
		t.Fatalf("accept join: %v", err)
	}
	member, ok := c.Member("gophers", "bob")
	if !ok || member.Role != RoleMember {
		t.Fatalf("expected bob to be a member, got %+v ok=%v", member, ok)
	}
	community, _ := c.Get("gophers")
	if community.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", community.MemberCount)
	}
}

func TestPromoteToModeratorGatesTagging(t *testing.T) {
	s := store.New()
	c := NewCommunities(s)
	if err := c.Create("gophers", "alice", PrivacyOpen, "", 100); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.RequestJoin("gophers", "bob", "", 200); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := c.AcceptJoin("gophers", "bob", 300); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if c.IsModerator("gophers", "bob") {
		t.Fatal("bob should not start as a moderator")
	}
	if err := c.Promote("gophers", "bob", RoleModerator); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !c.IsModerator("gophers", "bob") {
		t.Fatal("bob should be a moderator after promotion")
	}
}
