// Package account implements the Account & Authority component (C3):
// accounts, weighted-threshold authorities, authority history, recovery,
// and proxying. Grounded on the teacher's core/identity/alias.go naming
// style and native/gov/validate.go's authorisation-predicate shape.
package account

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
)

// KeyWeight is one (key, weight) entry in an authority.
type KeyWeight struct {
	Key    string
	Weight uint32
}

// AccountWeight is one (account, weight) entry in an authority.
type AccountWeight struct {
	Account string
	Weight  uint32
}

// Authority is a weighted-threshold signer set (spec §3).
type Authority struct {
	Threshold uint32
	Keys      []KeyWeight
	Accounts  []AccountWeight
}

// MembershipTier enumerates spec §4.2's membership levels.
type MembershipTier uint8

const (
	TierNone MembershipTier = iota
	TierStandard
	TierMid
	TierTop
)

// Account is the spec §3 Account entity, minus the authorities (kept in
// a separate table per spec §9: "expose them as named handles... not as
// implicit globals" generalised to "store big substructures in their own
// tables so the hot account row stays small").
type Account struct {
	Name             string
	SecureKey        string
	ConnectionKey    string
	FriendKey        string
	CompanionKey     string
	Recovery         string
	Reset            string
	Referrer         string
	Proxy            string
	ProxiedBy        map[string]bool
	PostCount        uint64
	VoteCount        uint64
	FollowerCount    uint64
	VotingEnergy     uint32 // 0..100, basis-point-free percent
	ViewingEnergy    uint32
	SharingEnergy    uint32
	CommentingEnergy uint32
	MembershipTier   MembershipTier
	MembershipExpiry types.BlockTime
	CanVote          bool
	RevenueShare     bool
	LastPostTime     types.BlockTime
	LastVoteTime     types.BlockTime
	LastAccountRecovery types.BlockTime
	CreatedAt        types.BlockTime
	LastOwnerUpdate  types.BlockTime
	LastActivityReward types.BlockTime
}

// PrimaryKey implements store.Row.
func (a Account) PrimaryKey() string { return a.Name }

// AuthorityClass selects which of the three authorities to read/update.
type AuthorityClass uint8

const (
	AuthorityOwner AuthorityClass = iota
	AuthorityActive
	AuthorityPosting
)

// authorityRow is the store row for one (account, class) authority.
type authorityRow struct {
	Account string
	Class   AuthorityClass
	Auth    Authority
}

func (r authorityRow) PrimaryKey() string { return authorityKey(r.Account, r.Class) }

func authorityKey(account string, class AuthorityClass) string {
	return fmt.Sprintf("%s/%d", account, class)
}

// ownerHistoryRow records one past owner authority with the timestamp it
// became effective, retained 30 days for account recovery (spec §4.2).
type ownerHistoryRow struct {
	Account       string
	EffectiveFrom types.BlockTime
	Auth          Authority
	Seq           uint64
}

func (r ownerHistoryRow) PrimaryKey() string { return fmt.Sprintf("%s/%d", r.Account, r.Seq) }

// Registry is the C3 component.
type Registry struct {
	accounts     *store.Table[string, Account]
	authorities  *store.Table[string, authorityRow]
	ownerHistory *store.Table[string, ownerHistoryRow]
	historySeq   map[string]uint64
}

// New registers the account/authority tables on s.
func New(s *store.Store) *Registry {
	return &Registry{
		accounts:     store.NewTable[string, Account](s, "accounts"),
		authorities:  store.NewTable[string, authorityRow](s, "authorities"),
		ownerHistory: store.NewTable[string, ownerHistoryRow](s, "owner_authority_history"),
		historySeq:   make(map[string]uint64),
	}
}

// OwnerUpdateCooldown is the minimum spacing between owner authority
// updates (spec §4.2: "owner updates may occur at most once per hour").
var OwnerUpdateCooldown int64 = 3600

// Create inserts a brand-new account with its three initial authorities.
func (r *Registry) Create(a Account, owner, active, posting Authority, now types.BlockTime) error {
	a.CreatedAt = now
	a.LastOwnerUpdate = now
	if a.ProxiedBy == nil {
		a.ProxiedBy = make(map[string]bool)
	}
	if err := r.accounts.Insert(a); err != nil {
		return err
	}
	for class, auth := range map[AuthorityClass]Authority{
		AuthorityOwner:   owner,
		AuthorityActive:  active,
		AuthorityPosting: posting,
	} {
		if err := r.authorities.Insert(authorityRow{Account: a.Name, Class: class, Auth: auth}); err != nil {
			return err
		}
	}
	return r.recordOwnerHistory(a.Name, owner, now)
}

func (r *Registry) recordOwnerHistory(account string, auth Authority, now types.BlockTime) error {
	r.historySeq[account]++
	row := ownerHistoryRow{Account: account, EffectiveFrom: now, Auth: auth, Seq: r.historySeq[account]}
	return r.ownerHistory.Insert(row)
}

// Get returns the account row.
func (r *Registry) Get(name string) (Account, bool) { return r.accounts.Get(name) }

// RecordActivityClaim stamps an account's LastActivityReward timestamp,
// the cooldown marker the reward engine's activity-reward evaluator
// checks before paying out (spec §4.6: "claimable once per 24h").
func (r *Registry) RecordActivityClaim(name string, now types.BlockTime) error {
	return r.accounts.Modify(name, func(a *Account) { a.LastActivityReward = now })
}

// RecordPost stamps LastPostTime, the interval marker social.Post and
// social.Reply check before admitting a new root post (spec §4.5).
func (r *Registry) RecordPost(name string, now types.BlockTime) error {
	return r.accounts.Modify(name, func(a *Account) { a.LastPostTime = now })
}

// RecordVote stamps LastVoteTime, tracked alongside LastPostTime for
// the same per-account activity-cadence bookkeeping (spec §4.5/§4.6).
func (r *Registry) RecordVote(name string, now types.BlockTime) error {
	return r.accounts.Modify(name, func(a *Account) { a.LastVoteTime = now })
}

// Authority returns the requested authority for an account.
func (r *Registry) Authority(name string, class AuthorityClass) (Authority, bool) {
	row, ok := r.authorities.Get(authorityKey(name, class))
	if !ok {
		return Authority{}, false
	}
	return row.Auth, true
}

// UpdateAuthority replaces one of an account's authorities. Owner
// updates are rate-limited to once per OwnerUpdateCooldown and archive
// the previous owner authority; posting/active updates are unrestricted
// (spec §4.2).
func (r *Registry) UpdateAuthority(name string, class AuthorityClass, newAuth Authority, now types.BlockTime) error {
	acct, ok := r.accounts.Get(name)
	if !ok {
		return fmt.Errorf("account: unknown account %q", name)
	}
	if class == AuthorityOwner {
		if now-acct.LastOwnerUpdate < types.BlockTime(OwnerUpdateCooldown) {
			return fmt.Errorf("account: owner authority updates limited to once per hour")
		}
		if err := r.recordOwnerHistory(name, newAuth, now); err != nil {
			return err
		}
		if err := r.accounts.Modify(name, func(a *Account) { a.LastOwnerUpdate = now }); err != nil {
			return err
		}
	}
	return r.authorities.Modify(authorityKey(name, class), func(row *authorityRow) { row.Auth = newAuth })
}

// RecentOwnerAuthority reports whether auth matches any owner authority
// that was active within the last 30 days, used by account recovery.
func (r *Registry) RecentOwnerAuthority(name string, auth Authority, now types.BlockTime) bool {
	const window = types.BlockTime(30 * 24 * 3600)
	found := false
	r.ownerHistory.All(func(row ownerHistoryRow) bool {
		if row.Account != name {
			return true
		}
		if now-row.EffectiveFrom > window {
			return true
		}
		if authoritiesEqual(row.Auth, auth) {
			found = true
		}
		return true
	})
	return found
}

// PruneOwnerHistory drops entries older than 30 days; run during
// maintenance per spec §4.2's archival retention rule.
func (r *Registry) PruneOwnerHistory(now types.BlockTime) error {
	const window = types.BlockTime(30 * 24 * 3600)
	var stale []string
	r.ownerHistory.All(func(row ownerHistoryRow) bool {
		if now-row.EffectiveFrom > window {
			stale = append(stale, row.PrimaryKey())
		}
		return true
	})
	for _, key := range stale {
		if err := r.ownerHistory.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

func authoritiesEqual(a, b Authority) bool {
	if a.Threshold != b.Threshold || len(a.Keys) != len(b.Keys) || len(a.Accounts) != len(b.Accounts) {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != b.Keys[i] {
			return false
		}
	}
	for i := range a.Accounts {
		if a.Accounts[i] != b.Accounts[i] {
			return false
		}
	}
	return true
}
