package genesis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainforge/consensus/producer"
	"chainforge/core/account"
	"chainforge/core/assets"
	"chainforge/core/evaluator"
	"chainforge/core/rewards"
	"chainforge/core/store"
	"chainforge/native/governance"
	"chainforge/native/ledger"
	"chainforge/native/market"
	"chainforge/native/social"
)

const validSpecYAML = `
genesisTime: "2026-01-01T00:00:00Z"
assets:
  - symbol: COIN
    kind: standard
    issuer: treasury
    precision: 6
    maxSupply: "1000000000"
accounts:
  - name: treasury
    owner: {threshold: 1, keys: [{key: "k1", weight: 1}]}
    active: {threshold: 1, keys: [{key: "k1", weight: 1}]}
    posting: {threshold: 1, keys: [{key: "k1", weight: 1}]}
  - name: alice
    owner: {threshold: 1, keys: [{key: "k2", weight: 1}]}
    active: {threshold: 1, keys: [{key: "k2", weight: 1}]}
    posting: {threshold: 1, keys: [{key: "k2", weight: 1}]}
alloc:
  alice:
    COIN: "500"
producers:
  - owner: treasury
    signingKey: "sk1"
    url: "https://example.invalid"
    voter: alice
    voteWeight: "100"
`

func writeSpec(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func TestLoadParsesAndValidates(t *testing.T) {
	spec, err := Load(writeSpec(t, validSpecYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(spec.Assets) != 1 || spec.Assets[0].Symbol != "COIN" {
		t.Fatalf("unexpected assets: %+v", spec.Assets)
	}
	if spec.GenesisTime() != 1767225600 {
		t.Fatalf("unexpected genesis time: %d", spec.GenesisTime())
	}
}

func TestLoadRejectsAllocForUndeclaredAccount(t *testing.T) {
	bad := strings.Replace(validSpecYAML, "alloc:\n", "alloc:\n  ghost:\n    COIN: \"1\"\n", 1)
	if _, err := Load(writeSpec(t, bad)); err == nil {
		t.Fatal("expected error for alloc referencing undeclared account")
	}
}

func TestLoadRejectsDuplicateAssetSymbol(t *testing.T) {
	bad := strings.Replace(validSpecYAML, "assets:\n", "assets:\n  - {symbol: COIN, kind: standard, issuer: treasury, maxSupply: \"1\"}\n", 1)
	if _, err := Load(writeSpec(t, bad)); err == nil {
		t.Fatal("expected error for duplicate asset symbol")
	}
}

func newTestDispatcher(t *testing.T) *evaluator.Dispatcher {
	t.Helper()
	s := store.New()
	reg := assets.New(s)
	l := ledger.New(s, reg)
	accounts := account.New(s)
	return &evaluator.Dispatcher{
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
}

func TestBootstrapSeedsAssetsAccountsAllocAndProducers(t *testing.T) {
	spec, err := Load(writeSpec(t, validSpecYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := newTestDispatcher(t)
	if err := Bootstrap(d, spec); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if _, ok := d.Assets.Get("COIN"); !ok {
		t.Fatal("expected COIN asset registered")
	}
	if _, ok := d.Accounts.Get("alice"); !ok {
		t.Fatal("expected alice account created")
	}
	if bal := d.Ledger.Balance("alice", "COIN").Liquid; bal.Uint64() != 500 {
		t.Fatalf("expected alice to hold 500 COIN, got %s", bal)
	}
	if _, ok := d.Producer.Producer("treasury"); !ok {
		t.Fatal("expected treasury registered as producer")
	}
}

func TestBootstrapAbortsEntirelyOnPartialFailure(t *testing.T) {
	// AAA sorts before ZZZ, so the asset phase creates AAA before it
	// reaches ZZZ, a "unique" kind asset whose maxSupply must be exactly
	// one indivisible unit (spec §3) but is declared as 5 here. Bootstrap
	// must undo AAA's creation too, proving the whole genesis document
	// applies under one atomic scope rather than committing phase by
	// phase.
	invalidUnique := `
genesisTime: "2026-01-01T00:00:00Z"
assets:
  - symbol: AAA
    kind: standard
    issuer: treasury
    maxSupply: "100"
  - symbol: ZZZ
    kind: unique
    issuer: treasury
    maxSupply: "5"
accounts:
  - name: treasury
    owner: {threshold: 1, keys: [{key: "k1", weight: 1}]}
    active: {threshold: 1, keys: [{key: "k1", weight: 1}]}
    posting: {threshold: 1, keys: [{key: "k1", weight: 1}]}
`
	spec, err := Load(writeSpec(t, invalidUnique))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := newTestDispatcher(t)
	if err := Bootstrap(d, spec); err == nil {
		t.Fatal("expected bootstrap to fail on the invalid unique-asset max supply")
	}
	if _, ok := d.Assets.Get("AAA"); ok {
		t.Fatal("expected the earlier AAA asset registration to be rolled back on bootstrap failure")
	}
	if _, ok := d.Accounts.Get("treasury"); ok {
		t.Fatal("expected account creation to be rolled back on bootstrap failure")
	}
}
