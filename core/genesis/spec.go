// Package genesis loads the genesis spec (assets, accounts, initial
// allocations, and producer registrations) and seeds it into a freshly
// constructed set of component engines before the first block applies.
// Grounded on the teacher's core/genesis/spec.go validate-then-cache
// shape; the teacher's JSON+bech32-address format is generalised to
// this domain's plain account-name identities and loaded as YAML
// (spec §9's genesis section), per the teacher's own config package's
// load/default/validate trio.
package genesis

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chainforge/core/account"
	"chainforge/core/assets"
	"chainforge/core/types"
)

// KeyWeightSpec mirrors account.KeyWeight for the YAML document.
type KeyWeightSpec struct {
	Key    string `yaml:"key"`
	Weight uint32 `yaml:"weight"`
}

// AccountWeightSpec mirrors account.AccountWeight for the YAML document.
type AccountWeightSpec struct {
	Account string `yaml:"account"`
	Weight  uint32 `yaml:"weight"`
}

// AuthoritySpec mirrors account.Authority for the YAML document.
type AuthoritySpec struct {
	Threshold uint32              `yaml:"threshold"`
	Keys      []KeyWeightSpec     `yaml:"keys"`
	Accounts  []AccountWeightSpec `yaml:"accounts"`
}

func (a AuthoritySpec) toAuthority() account.Authority {
	out := account.Authority{Threshold: a.Threshold}
	for _, k := range a.Keys {
		out.Keys = append(out.Keys, account.KeyWeight{Key: k.Key, Weight: k.Weight})
	}
	for _, acc := range a.Accounts {
		out.Accounts = append(out.Accounts, account.AccountWeight{Account: acc.Account, Weight: acc.Weight})
	}
	return out
}

func (a AuthoritySpec) validate(label string) error {
	if a.Threshold == 0 {
		return fmt.Errorf("%s: threshold must be greater than zero", label)
	}
	if len(a.Keys) == 0 && len(a.Accounts) == 0 {
		return fmt.Errorf("%s: authority must name at least one key or account", label)
	}
	return nil
}

// AssetSpec describes one genesis asset registration (spec §3).
type AssetSpec struct {
	Symbol           string `yaml:"symbol"`
	Kind             string `yaml:"kind"`
	Issuer           string `yaml:"issuer"`
	Precision        uint8  `yaml:"precision"`
	MaxSupply        string `yaml:"maxSupply"`
	StakeIntervals   uint32 `yaml:"stakeIntervals"`
	UnstakeIntervals uint32 `yaml:"unstakeIntervals"`
	MarketFeeBPS     uint32 `yaml:"marketFeeBps"`
}

var assetKinds = map[string]assets.Kind{
	"standard":      assets.KindStandard,
	"currency":      assets.KindCurrency,
	"equity":        assets.KindEquity,
	"credit":        assets.KindCredit,
	"bitasset":      assets.KindBitasset,
	"liquidityPool": assets.KindLiquidityPool,
	"creditPool":    assets.KindCreditPool,
	"option":        assets.KindOption,
	"prediction":    assets.KindPrediction,
	"gateway":       assets.KindGateway,
	"unique":        assets.KindUnique,
}

func (a AssetSpec) toAsset() (assets.Asset, error) {
	kind, ok := assetKinds[a.Kind]
	if !ok {
		return assets.Asset{}, fmt.Errorf("asset %q: unknown kind %q", a.Symbol, a.Kind)
	}
	maxSupply, err := types.ParseAmount(a.MaxSupply)
	if err != nil {
		return assets.Asset{}, fmt.Errorf("asset %q: maxSupply: %w", a.Symbol, err)
	}
	return assets.Asset{
		Symbol:           types.AssetSymbol(a.Symbol),
		Kind:             kind,
		Issuer:           a.Issuer,
		Precision:        a.Precision,
		MaxSupply:        maxSupply,
		StakeIntervals:   a.StakeIntervals,
		UnstakeIntervals: a.UnstakeIntervals,
		MarketFeeBPS:     a.MarketFeeBPS,
	}, nil
}

// AccountSpec describes one genesis account and its three authorities
// (spec §3, §4.2).
type AccountSpec struct {
	Name    string        `yaml:"name"`
	Owner   AuthoritySpec `yaml:"owner"`
	Active  AuthoritySpec `yaml:"active"`
	Posting AuthoritySpec `yaml:"posting"`
}

// ProducerSpec describes one genesis producer registration and,
// optionally, a single bootstrap vote behind it (spec §4.8).
type ProducerSpec struct {
	Owner      string  `yaml:"owner"`
	SigningKey string  `yaml:"signingKey"`
	URL        string  `yaml:"url"`
	Details    string  `yaml:"details"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	Voter      string  `yaml:"voter,omitempty"`
	VoteWeight string  `yaml:"voteWeight,omitempty"`
}

// Spec is the top-level genesis document.
type Spec struct {
	GenesisTime string                       `yaml:"genesisTime"`
	Assets      []AssetSpec                  `yaml:"assets"`
	Accounts    []AccountSpec                `yaml:"accounts"`
	Alloc       map[string]map[string]string `yaml:"alloc"`
	Producers   []ProducerSpec                `yaml:"producers"`

	genesisTime types.BlockTime
}

// Load reads and validates a genesis spec from a YAML file.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis: spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("genesis: decode %s: %w", path, err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("genesis: invalid spec %s: %w", path, err)
	}
	return &spec, nil
}

// GenesisTime returns the parsed genesis block time.
func (s *Spec) GenesisTime() types.BlockTime { return s.genesisTime }

func (s *Spec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTime = ts

	symbols := make(map[string]struct{}, len(s.Assets))
	for i, a := range s.Assets {
		if strings.TrimSpace(a.Symbol) != "" {
			if err := types.ValidateAssetSymbol(a.Symbol); err != nil {
				return fmt.Errorf("assets[%d]: %w", i, err)
			}
		}
		if _, err := a.toAsset(); err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
		if _, dup := symbols[a.Symbol]; dup {
			return fmt.Errorf("assets[%d]: duplicate symbol %q", i, a.Symbol)
		}
		symbols[a.Symbol] = struct{}{}
	}

	names := make(map[string]struct{}, len(s.Accounts))
	for i, acc := range s.Accounts {
		if strings.TrimSpace(acc.Name) == "" {
			return fmt.Errorf("accounts[%d]: name must be provided", i)
		}
		if err := acc.Owner.validate(fmt.Sprintf("accounts[%d].owner", i)); err != nil {
			return err
		}
		if err := acc.Active.validate(fmt.Sprintf("accounts[%d].active", i)); err != nil {
			return err
		}
		if err := acc.Posting.validate(fmt.Sprintf("accounts[%d].posting", i)); err != nil {
			return err
		}
		if _, dup := names[acc.Name]; dup {
			return fmt.Errorf("accounts[%d]: duplicate name %q", i, acc.Name)
		}
		names[acc.Name] = struct{}{}
	}

	allocAccounts := make([]string, 0, len(s.Alloc))
	for acc := range s.Alloc {
		allocAccounts = append(allocAccounts, acc)
	}
	sort.Strings(allocAccounts)
	for _, acc := range allocAccounts {
		if _, ok := names[acc]; !ok {
			return fmt.Errorf("alloc[%q]: account not declared in accounts", acc)
		}
		for symbol, amount := range s.Alloc[acc] {
			if _, ok := symbols[symbol]; !ok {
				return fmt.Errorf("alloc[%q][%q]: asset not declared in assets", acc, symbol)
			}
			if _, err := types.ParseAmount(amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", acc, symbol, err)
			}
		}
	}

	for i, p := range s.Producers {
		if strings.TrimSpace(p.Owner) == "" {
			return fmt.Errorf("producers[%d]: owner must be provided", i)
		}
		if _, ok := names[p.Owner]; !ok {
			return fmt.Errorf("producers[%d]: owner %q not declared in accounts", i, p.Owner)
		}
		if strings.TrimSpace(p.Voter) != "" {
			if _, ok := names[p.Voter]; !ok {
				return fmt.Errorf("producers[%d]: voter %q not declared in accounts", i, p.Voter)
			}
			if _, err := types.ParseAmount(p.VoteWeight); err != nil {
				return fmt.Errorf("producers[%d]: voteWeight: %w", i, err)
			}
		}
	}

	return nil
}

func parseGenesisTime(value string) (types.BlockTime, error) {
	if strings.TrimSpace(value) == "" {
		return 0, fmt.Errorf("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("invalid genesisTime %q: %w", value, err)
	}
	return types.BlockTime(ts.Unix()), nil
}
