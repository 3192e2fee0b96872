package genesis

import (
	"fmt"
	"sort"
	"strings"

	"chainforge/core/account"
	"chainforge/core/evaluator"
	"chainforge/core/types"
)

// Bootstrap seeds a freshly constructed Dispatcher's tables from spec,
// in deterministic (sorted-key) order, inside its own undo scope so a
// malformed genesis document leaves no partial state behind. Grounded
// on the teacher's BuildGenesisFromSpec's five-phase (tokens, alloc,
// roles, validators, commit) structure, generalised from the teacher's
// trie-commit finish to this store's Scope.Commit/Abort discipline.
func Bootstrap(d *evaluator.Dispatcher, spec *Spec) error {
	if d == nil {
		return fmt.Errorf("genesis: dispatcher must not be nil")
	}
	if spec == nil {
		return fmt.Errorf("genesis: spec must not be nil")
	}

	scope := d.Store.Begin()
	if err := bootstrap(d, spec); err != nil {
		scope.Abort()
		return err
	}
	scope.Commit()
	return nil
}

func bootstrap(d *evaluator.Dispatcher, spec *Spec) error {
	now := spec.GenesisTime()

	assetSpecs := append([]AssetSpec(nil), spec.Assets...)
	sort.Slice(assetSpecs, func(i, j int) bool { return assetSpecs[i].Symbol < assetSpecs[j].Symbol })
	for _, as := range assetSpecs {
		asset, err := as.toAsset()
		if err != nil {
			return fmt.Errorf("genesis: asset %q: %w", as.Symbol, err)
		}
		if err := d.Assets.Create(asset); err != nil {
			return fmt.Errorf("genesis: create asset %q: %w", as.Symbol, err)
		}
	}

	accountSpecs := append([]AccountSpec(nil), spec.Accounts...)
	sort.Slice(accountSpecs, func(i, j int) bool { return accountSpecs[i].Name < accountSpecs[j].Name })
	for _, as := range accountSpecs {
		owner := as.Owner.toAuthority()
		active := as.Active.toAuthority()
		posting := as.Posting.toAuthority()
		if err := d.Accounts.Create(account.Account{Name: as.Name}, owner, active, posting, now); err != nil {
			return fmt.Errorf("genesis: create account %q: %w", as.Name, err)
		}
	}

	allocAccounts := make([]string, 0, len(spec.Alloc))
	for acc := range spec.Alloc {
		allocAccounts = append(allocAccounts, acc)
	}
	sort.Strings(allocAccounts)
	for _, acc := range allocAccounts {
		balances := spec.Alloc[acc]
		symbols := make([]string, 0, len(balances))
		for symbol := range balances {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount, err := types.ParseAmount(balances[symbol])
			if err != nil {
				return fmt.Errorf("genesis: alloc[%q][%q]: %w", acc, symbol, err)
			}
			if err := d.Ledger.Mint(acc, types.AssetSymbol(symbol), amount); err != nil {
				return fmt.Errorf("genesis: mint alloc[%q][%q]: %w", acc, symbol, err)
			}
		}
	}

	producerSpecs := append([]ProducerSpec(nil), spec.Producers...)
	sort.Slice(producerSpecs, func(i, j int) bool { return producerSpecs[i].Owner < producerSpecs[j].Owner })
	for _, ps := range producerSpecs {
		if err := d.Producer.RegisterProducer(ps.Owner, ps.SigningKey, ps.URL, ps.Details, ps.Lat, ps.Lon); err != nil {
			return fmt.Errorf("genesis: register producer %q: %w", ps.Owner, err)
		}
		if strings.TrimSpace(ps.Voter) == "" {
			continue
		}
		weight, err := types.ParseAmount(ps.VoteWeight)
		if err != nil {
			return fmt.Errorf("genesis: producer %q voteWeight: %w", ps.Owner, err)
		}
		if err := d.Producer.Vote(ps.Voter, ps.Owner, weight); err != nil {
			return fmt.Errorf("genesis: producer %q vote: %w", ps.Owner, err)
		}
	}

	return nil
}
