package market

import (
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
	for _, sym := range []types.AssetSymbol{"ALPHA", "BETA"} {
		if err := reg.Create(assets.Asset{Symbol: sym, Kind: assets.KindStandard, Issuer: "issuer", MaxSupply: types.NewAmount(1_000_000_000)}); err != nil {
			t.Fatalf("create asset %s: %v", sym, err)
		}
	}
	l := ledger.New(s, reg)
	e := New(s, l)
	return s, l, e
}

func TestLimitOrderMatchesAcrossBook(t *testing.T) {
	_, l, e := newTestEngine(t)
	if err := l.Mint("alice", "ALPHA", types.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	if err := l.Mint("bob", "BETA", types.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}

	sellPrice := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(2), QuoteSymbol: "BETA"}
	if _, err := e.PlaceLimitOrder("alice", "ALPHA", "BETA", types.NewAmount(100), sellPrice, 0, 0, false); err != nil {
		t.Fatalf("place resting order: %v", err)
	}

	counterPrice := types.Price{BaseAmount: types.NewAmount(2), BaseSymbol: "BETA", QuoteAmount: types.NewAmount(1), QuoteSymbol: "ALPHA"}
	if _, err := e.PlaceLimitOrder("bob", "BETA", "ALPHA", types.NewAmount(200), counterPrice, 0, 0, false); err != nil {
		t.Fatalf("place matching order: %v", err)
	}

	if got := l.Balance("alice", "BETA").Liquid; got.Cmp(types.NewAmount(200)) != 0 {
		t.Fatalf("alice BETA = %s, want 200", got)
	}
	if got := l.Balance("bob", "ALPHA").Liquid; got.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("bob ALPHA = %s, want 100", got)
	}
}

func TestLiquidityPoolExchangeConstantProduct(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("provider", "ALPHA", types.NewAmount(10000)); err != nil {
		t.Fatal(err)
	}
	if err := l.Mint("provider", "BETA", types.NewAmount(10000)); err != nil {
		t.Fatal(err)
	}
	pools := NewPools(s)
	if _, err := pools.CreatePool("ALPHA", "BETA", types.NewAmount(1000), types.NewAmount(1000)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := l.Mint("trader", "ALPHA", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}
	out, err := pools.Exchange(l, "trader", "ALPHA", "BETA", "ALPHA", types.NewAmount(100), types.ZeroAmount())
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	// balance_a*balance_b = 1_000_000 constant; new balance_a = 1100 =>
	// new balance_b = 1_000_000/1100 = 909 (floor) => out = 1000-909 = 91.
	if want := types.NewAmount(91); out.Cmp(want) != 0 {
		t.Fatalf("exchange out = %s, want %s", out, want)
	}
}

func TestCreditPoolBorrowRequiresCollateral(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("depositor", "ALPHA", types.NewAmount(10000)); err != nil {
		t.Fatal(err)
	}
	credit := NewCreditPools(s)
	if err := credit.Open("ALPHA", types.NewAmount(10000), 500, 2000); err != nil {
		t.Fatalf("open credit pool: %v", err)
	}
	// Collateral value covers only 100% of debt; open ratio is 125%.
	err := credit.Borrow(l, "borrower", "ALPHA", types.NewAmount(100), types.NewAmount(100), 12500)
	if err == nil {
		t.Fatalf("expected undercollateralised borrow to fail")
	}
	if err := credit.Borrow(l, "borrower", "ALPHA", types.NewAmount(100), types.NewAmount(125), 12500); err != nil {
		t.Fatalf("adequately collateralised borrow failed: %v", err)
	}
	if got := l.Balance("borrower", "ALPHA").Liquid; got.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("borrower ALPHA = %s, want 100", got)
	}
}

func TestMarginOrderOpenEnforcesOpenRatio(t *testing.T) {
	s, l, _ := newTestEngine(t)
	if err := l.Mint("depositor", "BETA", types.NewAmount(10000)); err != nil {
		t.Fatal(err)
	}
	credit := NewCreditPools(s)
	if err := credit.Open("BETA", types.NewAmount(10000), 500, 2000); err != nil {
		t.Fatalf("open credit pool: %v", err)
	}
	pools := NewPools(s)
	margins := NewMarginOrders(s)
	if err := l.Mint("trader", "ALPHA", types.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	collateralPrice := types.Price{BaseAmount: types.NewAmount(1), BaseSymbol: "ALPHA", QuoteAmount: types.NewAmount(1), QuoteSymbol: "BETA"}
	if _, err := margins.Open(l, pools, credit, "trader", "BETA", "ALPHA", "BETA", types.NewAmount(200), types.NewAmount(100), collateralPrice, 12500, 0); err != nil {
		t.Fatalf("adequately collateralised margin order failed: %v", err)
	}
	if _, err := margins.Open(l, pools, credit, "trader", "BETA", "ALPHA", "BETA", types.NewAmount(100), types.NewAmount(100), collateralPrice, 12500, 0); err == nil {
		t.Fatalf("expected undercollateralised margin order to fail")
	}
}
