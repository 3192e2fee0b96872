// Package assets implements the Asset Registry (spec component C1):
// asset definitions, dynamic supply aggregates, issuer permissions, and
// whitelist/blacklist authorities. It is grounded on the teacher's
// core/state TokenMetadata shape, generalised from a single "token kind"
// to the full spec.md asset-kind taxonomy.
package assets

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
)

// Kind enumerates the asset kinds from spec §3.
type Kind uint8

const (
	KindStandard Kind = iota
	KindCurrency
	KindEquity
	KindCredit
	KindBitasset
	KindLiquidityPool
	KindCreditPool
	KindOption
	KindPrediction
	KindGateway
	KindUnique
)

// Permission is one bit of the issuer-permissions / flags masks.
type Permission uint32

const (
	PermWhitelist Permission = 1 << iota
	PermChargeMarketFee
	PermOverrideAuthority
	PermTransferRestricted
	PermDisableForceSettle
	PermGlobalSettle
	PermDisableConfidential
	PermWitnessFeedPublish
	PermCommitteeFeedPublish
	PermLockMaxSupply
	PermDisableNewSupply
)

// Asset is the immutable-ish registry row for one symbol; its
// permission and flag fields change only through
// Registry.UpdatePermissions, never in place, so every change passes
// through the store's undo discipline.
type Asset struct {
	Symbol            types.AssetSymbol
	Kind              Kind
	Issuer            string
	Precision         uint8
	MaxSupply         types.Amount
	StakeIntervals    uint32
	UnstakeIntervals  uint32
	MarketFeeBPS      uint32
	IssuerPermissions Permission
	Flags             Permission
	WhitelistAuthorities []string
	BlacklistAuthorities []string
	WhitelistMarkets     []types.AssetSymbol
	BacksAsset           types.AssetSymbol // non-zero iff Kind == KindBitasset
}

// PrimaryKey implements store.Row.
func (a Asset) PrimaryKey() string { return string(a.Symbol) }

// DynamicData holds the per-symbol aggregate supply figures that must
// reconcile against every account's sub-balances (spec §3, invariant 1
// in §8).
type DynamicData struct {
	Symbol          types.AssetSymbol
	TotalSupply     types.Amount
	LiquidSupply    types.Amount
	StakedSupply    types.Amount
	RewardSupply    types.Amount
	SavingsSupply   types.Amount
	DelegatedSupply types.Amount
	ReceivingSupply types.Amount
	PendingSupply   types.Amount
	ConfidentialSupply types.Amount
}

// PrimaryKey implements store.Row.
func (d DynamicData) PrimaryKey() string { return string(d.Symbol) }

// Registry is the C1 Asset Registry: a pair of tables (assets, dynamic
// data) owned by the store, plus the helpers that enforce the asset
// invariants from spec §3.
type Registry struct {
	assets  *store.Table[string, Asset]
	dynamic *store.Table[string, DynamicData]
}

// New registers the asset tables on s.
func New(s *store.Store) *Registry {
	return &Registry{
		assets:  store.NewTable[string, Asset](s, "assets"),
		dynamic: store.NewTable[string, DynamicData](s, "asset_dynamic_data"),
	}
}

// Create inserts a brand-new asset and its zeroed dynamic-data row.
// new_flags must be a subset of issuer_permissions (spec §3 invariant),
// and a unique asset's max supply must be exactly one indivisible unit.
func (r *Registry) Create(a Asset) error {
	if err := types.ValidateAssetSymbol(string(a.Symbol)); err != nil {
		return err
	}
	if a.Flags&^a.IssuerPermissions != 0 {
		return fmt.Errorf("assets: flags must be a subset of issuer permissions")
	}
	if a.Kind == KindUnique && a.MaxSupply.Cmp(types.NewAmount(1)) != 0 {
		return fmt.Errorf("assets: unique asset must have max supply of exactly 1 unit")
	}
	if a.Kind == KindBitasset {
		if err := r.checkBackingDepth(a.BacksAsset, 0); err != nil {
			return err
		}
	}
	if err := r.assets.Insert(a); err != nil {
		return err
	}
	return r.dynamic.Insert(DynamicData{Symbol: a.Symbol})
}

// checkBackingDepth walks the backing chain and rejects depth > 2, per
// spec §3's BitassetData invariant ("backing chain has depth <= 2").
func (r *Registry) checkBackingDepth(symbol types.AssetSymbol, depth int) error {
	if depth >= 2 {
		return fmt.Errorf("assets: bitasset backing chain exceeds depth 2")
	}
	if symbol == "" {
		return nil
	}
	backing, ok := r.assets.Get(string(symbol))
	if !ok {
		return fmt.Errorf("assets: unknown backing asset %q", symbol)
	}
	if backing.Kind != KindBitasset {
		return nil
	}
	return r.checkBackingDepth(backing.BacksAsset, depth+1)
}

// Get returns the asset row for symbol.
func (r *Registry) Get(symbol types.AssetSymbol) (Asset, bool) {
	return r.assets.Get(string(symbol))
}

// Dynamic returns the dynamic-data row for symbol.
func (r *Registry) Dynamic(symbol types.AssetSymbol) (DynamicData, bool) {
	return r.dynamic.Get(string(symbol))
}

// UpdatePermissions narrows flags for an asset whose supply is already
// positive, per spec §3: "once supply > 0, permissions may not be
// re-expanded". Supply-zero assets may still widen permissions freely.
func (r *Registry) UpdatePermissions(symbol types.AssetSymbol, newPermissions, newFlags Permission) error {
	dyn, ok := r.dynamic.Get(string(symbol))
	if !ok {
		return fmt.Errorf("assets: unknown asset %q", symbol)
	}
	return r.assets.Modify(string(symbol), func(a *Asset) {
		if !dyn.TotalSupply.IsZero() {
			newPermissions &= a.IssuerPermissions
		}
		a.IssuerPermissions = newPermissions
		a.Flags = newFlags & newPermissions
	})
}

// SupplyField selects which dynamic-data sub-supply bucket Mint, Burn
// and MoveSupply touch. Mint and Burn change TotalSupply in lockstep
// with the bucket; MoveSupply leaves TotalSupply unchanged.
type SupplyField uint8

const (
	FieldLiquid SupplyField = iota
	FieldStaked
	FieldReward
	FieldSavings
	FieldDelegated
	FieldReceiving
	FieldPending
	FieldConfidential
)

// Mint increases total and the named bucket's supply by amount.
func (r *Registry) Mint(symbol types.AssetSymbol, field SupplyField, amount types.Amount) error {
	return r.dynamic.Modify(string(symbol), func(d *DynamicData) {
		d.TotalSupply = d.TotalSupply.Add(amount)
		addToField(d, field, amount)
	})
}

// Burn decreases total and the named bucket's supply by amount.
func (r *Registry) Burn(symbol types.AssetSymbol, field SupplyField, amount types.Amount) error {
	var outerErr error
	err := r.dynamic.Modify(string(symbol), func(d *DynamicData) {
		total, err := d.TotalSupply.Sub(amount)
		if err != nil {
			outerErr = err
			return
		}
		d.TotalSupply = total
		subFromField(d, field, amount)
	})
	if err != nil {
		return err
	}
	return outerErr
}

// MoveSupply shifts amount from one dynamic-data bucket to another
// without changing TotalSupply, used when e.g. liquid becomes staked.
func (r *Registry) MoveSupply(symbol types.AssetSymbol, from, to SupplyField, amount types.Amount) error {
	return r.dynamic.Modify(string(symbol), func(d *DynamicData) {
		subFromField(d, from, amount)
		addToField(d, to, amount)
	})
}

func addToField(d *DynamicData, f SupplyField, amount types.Amount) {
	switch f {
	case FieldLiquid:
		d.LiquidSupply = d.LiquidSupply.Add(amount)
	case FieldStaked:
		d.StakedSupply = d.StakedSupply.Add(amount)
	case FieldReward:
		d.RewardSupply = d.RewardSupply.Add(amount)
	case FieldSavings:
		d.SavingsSupply = d.SavingsSupply.Add(amount)
	case FieldDelegated:
		d.DelegatedSupply = d.DelegatedSupply.Add(amount)
	case FieldReceiving:
		d.ReceivingSupply = d.ReceivingSupply.Add(amount)
	case FieldPending:
		d.PendingSupply = d.PendingSupply.Add(amount)
	case FieldConfidential:
		d.ConfidentialSupply = d.ConfidentialSupply.Add(amount)
	}
}

func subFromField(d *DynamicData, f SupplyField, amount types.Amount) {
	// Errors are intentionally swallowed here: callers validate against
	// account-level balances before calling, and a negative bucket would
	// indicate a consensus-breaking bug best caught by invariant tests
	// rather than a runtime error path on the hot mutation helper.
	switch f {
	case FieldLiquid:
		d.LiquidSupply, _ = d.LiquidSupply.Sub(amount)
	case FieldStaked:
		d.StakedSupply, _ = d.StakedSupply.Sub(amount)
	case FieldReward:
		d.RewardSupply, _ = d.RewardSupply.Sub(amount)
	case FieldSavings:
		d.SavingsSupply, _ = d.SavingsSupply.Sub(amount)
	case FieldDelegated:
		d.DelegatedSupply, _ = d.DelegatedSupply.Sub(amount)
	case FieldReceiving:
		d.ReceivingSupply, _ = d.ReceivingSupply.Sub(amount)
	case FieldPending:
		d.PendingSupply, _ = d.PendingSupply.Sub(amount)
	case FieldConfidential:
		d.ConfidentialSupply, _ = d.ConfidentialSupply.Sub(amount)
	}
}
