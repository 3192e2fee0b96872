package market

import (
	"testing"

	"chainforge/core/assets"
	"chainforge/core/store"
	"chainforge/core/types"
)

// registerBitUSD adds a BITUSD asset to the shared store's asset
// registry so ledger.Mint/Burn (which update the registry's dynamic
// supply row) can operate on it; the bitasset-data table tracked by
// Bitassets is a separate, market-specific row keyed by the same symbol.
func registerBitUSD(t *testing.T, s *store.Store) {
	t.Helper()
	reg := assets.New(s)
	if err := reg.Create(assets.Asset{Symbol: "BITUSD", Kind: assets.KindBitasset, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
		t.Fatalf("register BITUSD: %v", err)
	}
}

func TestAuctionOrderPlaceCancelRefunds(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("alice", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	auctions := NewAuctionOrders(s, "ALPHA", "BETA")
	minRate := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(1), QuoteSymbol: "BETA"}
	id, err := auctions.Place(l, "alice", "ALPHA", "BETA", types.NewAmount(100), minRate, 0)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := l.Balance("alice", "ALPHA").Liquid; !got.IsZero() {
		t.Fatalf("expected amount escrowed, alice ALPHA = %s", got)
	}
	if err := auctions.Cancel(l, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := l.Balance("alice", "ALPHA").Liquid; got.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("expected cancel to refund escrow, alice ALPHA = %s", got)
	}
}

func TestAuctionOrderSettleAtClearingRate(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("alice", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	auctions := NewAuctionOrders(s, "ALPHA", "BETA")
	minRate := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(1), QuoteSymbol: "BETA"}
	id, err := auctions.Place(l, "alice", "ALPHA", "BETA", types.NewAmount(100), minRate, 0)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := l.Balance("alice", "ALPHA").Liquid; !got.IsZero() {
		t.Fatalf("expected amount escrowed, alice ALPHA = %s", got)
	}

	clearing := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(2), QuoteSymbol: "BETA"}
	if err := l.Mint(marketEscrowAccount, "BETA", types.NewAmount(200)); err != nil {
		t.Fatal(err)
	}
	if err := auctions.SettleAt(l, clearing, 0, 10); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := l.Balance("alice", "BETA").Liquid; got.Cmp(types.NewAmount(200)) != 0 {
		t.Fatalf("alice BETA = %s, want 200", got)
	}
	if _, ok := auctions.table.Get(id); ok {
		t.Fatalf("expected settled auction order to be removed")
	}
}

func TestAuctionOrderSettleAtLeavesUnsatisfiedOrdersResting(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("alice", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	auctions := NewAuctionOrders(s, "ALPHA", "BETA")
	minRate := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(5), QuoteSymbol: "BETA"}
	id, err := auctions.Place(l, "alice", "ALPHA", "BETA", types.NewAmount(100), minRate, 0)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	tooLow := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(1), QuoteSymbol: "BETA"}
	if err := auctions.SettleAt(l, tooLow, 0, 10); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, ok := auctions.table.Get(id); !ok {
		t.Fatalf("expected unsatisfied order to remain resting")
	}
}

func TestBitassetFeedMedianRequiresMinimumFeeds(t *testing.T) {
	s, _, _ := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 2, FeedLifetimeSeconds: 3600}); err != nil {
		t.Fatalf("create: %v", err)
	}
	feed := PriceFeed{SettlementPrice: types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}, PublishedAt: 100}
	if err := bitassets.PublishFeed("BITUSD", "producerA", feed, true, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	data, _ := bitassets.Get("BITUSD")
	if data.MedianFeed.SettlementPrice.BaseAmount.Uint64() != 0 {
		t.Fatalf("expected no median below minimum feeds")
	}

	if err := bitassets.PublishFeed("BITUSD", "producerB", feed, true, true); err != nil {
		t.Fatalf("publish second feed: %v", err)
	}
	data, _ = bitassets.Get("BITUSD")
	if data.MedianFeed.SettlementPrice.BaseAmount.IsZero() {
		t.Fatalf("expected a median once minimum feeds reached")
	}
}

func TestBitassetPublishFeedRejectsNonProducerWithoutExistingFeed(t *testing.T) {
	s, _, _ := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	feed := PriceFeed{SettlementPrice: types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}}
	if err := bitassets.PublishFeed("BITUSD", "outsider", feed, false, true); err == nil {
		t.Fatalf("expected non-producer feed publish to be rejected")
	}
}

func TestBitassetExpireFeedsDropsStaleEntries(t *testing.T) {
	s, _, _ := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 1, FeedLifetimeSeconds: 60}); err != nil {
		t.Fatalf("create: %v", err)
	}
	feed := PriceFeed{SettlementPrice: types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}, PublishedAt: 0}
	if err := bitassets.PublishFeed("BITUSD", "producerA", feed, true, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bitassets.ExpireFeeds("BITUSD", 1000); err != nil {
		t.Fatalf("expire: %v", err)
	}
	data, _ := bitassets.Get("BITUSD")
	if len(data.Feeds) != 0 {
		t.Fatalf("expected stale feed to be dropped, got %d feeds", len(data.Feeds))
	}
}

func TestCallOrderOpenRejectsBelowMaintenanceCollateralization(t *testing.T) {
	s, _, _ := newTestEngine(t)
	calls := NewCallOrders(s, "BITUSD")
	feed := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}
	if _, err := calls.Open("alice", "BITUSD", "ALPHA", types.NewAmount(100), types.NewAmount(100), feed, 17500); err == nil {
		t.Fatalf("expected undercollateralised open to fail")
	}
	if _, err := calls.Open("alice", "BITUSD", "ALPHA", types.NewAmount(200), types.NewAmount(100), feed, 17500); err != nil {
		t.Fatalf("adequately collateralised open failed: %v", err)
	}
}

func TestCheckCallOrdersTriggersGlobalSettlementWhenNoLiquidity(t *testing.T) {
	s, _, e := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 1}); err != nil {
		t.Fatalf("create bitasset: %v", err)
	}
	feed := PriceFeed{SettlementPrice: types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}, PublishedAt: 0}
	if err := bitassets.PublishFeed("BITUSD", "producerA", feed, true, true); err != nil {
		t.Fatalf("publish feed: %v", err)
	}

	calls := NewCallOrders(s, "BITUSD")
	openFeed := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}
	if _, err := calls.Open("alice", "BITUSD", "ALPHA", types.NewAmount(200), types.NewAmount(100), openFeed, 17500); err != nil {
		t.Fatalf("open call order: %v", err)
	}

	blackSwan, err := e.CheckCallOrders(bitassets, calls, "BITUSD", "ALPHA", 30000)
	if err != nil {
		t.Fatalf("check call orders: %v", err)
	}
	if !blackSwan {
		t.Fatalf("expected a black-swan global settlement with no opposing liquidity")
	}
	data, _ := bitassets.Get("BITUSD")
	if data.SettlementPrice == nil {
		t.Fatalf("expected settlement price to be set")
	}
	if data.SettlementFund.Cmp(types.NewAmount(200)) != 0 {
		t.Fatalf("expected settlement fund to absorb the order's collateral, got %s", data.SettlementFund)
	}
}

func TestOptionWriteTakeExercisePaysIntrinsicValue(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("writer", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	options := NewOptionOrders(s, "ALPHA", "BETA")
	strike := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(10), QuoteSymbol: "BETA"}
	id, err := options.Write(l, "writer", "ALPHA", types.NewAmount(100), strike, 1000)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := options.Take(id, "holder"); err != nil {
		t.Fatalf("take: %v", err)
	}

	settlement := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(15), QuoteSymbol: "BETA"}
	if err := options.Exercise(l, "writer", id, settlement, 500); err != nil {
		t.Fatalf("exercise: %v", err)
	}
	if got := l.Balance("holder", "ALPHA").Liquid; got.IsZero() {
		t.Fatalf("expected holder to receive intrinsic-value payout, got %s", got)
	}
}

func TestOptionExpireReturnsCollateralToWriter(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("writer", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	options := NewOptionOrders(s, "ALPHA", "BETA")
	strike := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(10), QuoteSymbol: "BETA"}
	id, err := options.Write(l, "writer", "ALPHA", types.NewAmount(100), strike, 100)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := options.Expire(l, "writer", id, 200); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if got := l.Balance("writer", "ALPHA").Liquid; got.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("expected writer to recover full collateral, got %s", got)
	}
}

func TestAssetSettleSchedulesForceSettlementBeforeGlobalSettlement(t *testing.T) {
	s, l, e := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 1}); err != nil {
		t.Fatalf("create bitasset: %v", err)
	}
	registerBitUSD(t, s)
	if err := l.Mint("holder", "BITUSD", types.NewAmount(50)); err != nil {
		t.Fatal(err)
	}
	settlements := NewSettlements(s)
	id, err := e.AssetSettle(settlements, bitassets, l, "holder", "BITUSD", types.NewAmount(50), 0, 3600)
	if err != nil {
		t.Fatalf("asset settle: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a force-settlement id to be scheduled")
	}
	if got := l.Balance("holder", "BITUSD").Liquid; !got.IsZero() {
		t.Fatalf("expected settled balance to be burned, got %s", got)
	}
}

func TestSweepForceSettlementsPaysOutAtDiscountedFeed(t *testing.T) {
	s, l, e := newTestEngine(t)
	bitassets := NewBitassets(s)
	if err := bitassets.Create(BitassetData{Symbol: "BITUSD", BackingAsset: "ALPHA", MinimumFeeds: 1}); err != nil {
		t.Fatalf("create bitasset: %v", err)
	}
	feed := PriceFeed{SettlementPrice: types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "BITUSD", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}, PublishedAt: 0}
	if err := bitassets.PublishFeed("BITUSD", "producerA", feed, true, true); err != nil {
		t.Fatalf("publish feed: %v", err)
	}
	registerBitUSD(t, s)
	if err := l.Mint("holder", "BITUSD", types.NewAmount(50)); err != nil {
		t.Fatal(err)
	}
	settlements := NewSettlements(s)
	if _, err := e.AssetSettle(settlements, bitassets, l, "holder", "BITUSD", types.NewAmount(50), 0, 100); err != nil {
		t.Fatalf("asset settle: %v", err)
	}
	if err := e.SweepForceSettlements(settlements, bitassets, l, "BITUSD", 200, 500, 10); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := l.Balance("holder", "ALPHA").Liquid; got.IsZero() {
		t.Fatalf("expected force-settlement sweep to pay out the backing asset")
	}
}

func TestBidCollateralEscrowsAndRecordsBid(t *testing.T) {
	s, l, e := newTestEngine(t)
	if err := l.Mint("bidder", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	settlements := NewSettlements(s)
	id, err := e.BidCollateral(settlements, l, "bidder", types.NewAmount(100), "ALPHA", types.NewAmount(50))
	if err != nil {
		t.Fatalf("bid collateral: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a bid id")
	}
	if got := l.Balance("bidder", "ALPHA").Liquid; !got.IsZero() {
		t.Fatalf("expected collateral to be escrowed, bidder ALPHA = %s", got)
	}
}
