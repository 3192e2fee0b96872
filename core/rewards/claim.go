package rewards

import (
	"chainforge/core/account"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability"
)

// Engine is the C5 Reward Engine: it turns a computed reward amount
// into ledger state, applying the revenue-share siphon and the
// staked/liquid split every claim goes through (spec §4.6).
type Engine struct {
	ledger   *ledger.Ledger
	accounts *account.Registry
	cfg      Config
}

// New constructs a reward Engine bound to the shared ledger and
// account registry.
func New(l *ledger.Ledger, accounts *account.Registry, cfg Config) *Engine {
	return &Engine{ledger: l, accounts: accounts, cfg: cfg}
}

// ApplyClaim mints amount of symbol as a reward to recipient. If
// recipient is a revenue-share-enabled business account,
// EquityRevenueShareBPS and CreditRevenueShareBPS of the amount are
// siphoned to equityPool/creditPool first (spec §4.6: "revenue-share
// enabled business accounts siphon the configured ... percentages of
// rewards into the corresponding pool objects before the rest is
// distributed"); the remainder is split between staked and liquid
// balance at StakedRewardRatioBPS.
func (e *Engine) ApplyClaim(recipient string, symbol types.AssetSymbol, amount types.Amount, equityPool, creditPool string) error {
	if amount.IsZero() {
		return nil
	}
	remaining := amount
	recipientKind := "standard"
	if acct, ok := e.accounts.Get(recipient); ok && acct.RevenueShare {
		recipientKind = "revenue_share"
		equityShare, err := amount.MulDiv(uint64(e.cfg.EquityRevenueShareBPS), 10000)
		if err != nil {
			return err
		}
		creditShare, err := amount.MulDiv(uint64(e.cfg.CreditRevenueShareBPS), 10000)
		if err != nil {
			return err
		}
		if !equityShare.IsZero() {
			if err := e.ledger.Mint(equityPool, symbol, equityShare); err != nil {
				return err
			}
			remaining, err = remaining.Sub(equityShare)
			if err != nil {
				return err
			}
		}
		if !creditShare.IsZero() {
			if err := e.ledger.Mint(creditPool, symbol, creditShare); err != nil {
				return err
			}
			remaining, err = remaining.Sub(creditShare)
			if err != nil {
				return err
			}
		}
	}

	staked, err := remaining.MulDiv(uint64(e.cfg.StakedRewardRatioBPS), 10000)
	if err != nil {
		return err
	}
	liquid, err := remaining.Sub(staked)
	if err != nil {
		return err
	}
	if !staked.IsZero() {
		if err := e.ledger.MintStaked(recipient, symbol, staked); err != nil {
			return err
		}
	}
	if !liquid.IsZero() {
		if err := e.ledger.Mint(recipient, symbol, liquid); err != nil {
			return err
		}
	}
	observability.Reward().RecordClaimApplied(recipientKind)
	return nil
}
