package social

import (
	"chainforge/core/store"
	"chainforge/core/types"
)

// PrivacyType distinguishes open, restricted, and private communities.
type PrivacyType uint8

const (
	PrivacyOpen PrivacyType = iota
	PrivacyRestricted
	PrivacyPrivate
)

// Community is the spec §3 Community entity.
type Community struct {
	Name        string
	Founder     string
	Privacy     PrivacyType
	PublicKey   string
	Blacklist   []string
	PinnedPost  string
	SubscriberCount uint64
	MemberCount     uint64
	ModeratorCount  uint64
	AdminCount      uint64
	CreatedAt   types.BlockTime
}

// PrimaryKey implements store.Row.
func (c Community) PrimaryKey() string { return c.Name }

// MemberRole ranks a community member's standing.
type MemberRole uint8

const (
	RoleSubscriber MemberRole = iota
	RoleMember
	RoleModerator
	RoleAdministrator
)

// CommunityMember is the spec §3 access-control-set entry.
type CommunityMember struct {
	Community string
	Account   string
	Role      MemberRole
	JoinedAt  types.BlockTime
}

// PrimaryKey implements store.Row.
func (m CommunityMember) PrimaryKey() string { return m.Community + "/" + m.Account }

// CommunityJoinRequest is a pending membership request (spec §3).
type CommunityJoinRequest struct {
	Community string
	Account   string
	Message   string
	CreatedAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (r CommunityJoinRequest) PrimaryKey() string { return r.Community + "/" + r.Account }

// CommunityInvite is an administrator-issued invitation (spec §3).
type CommunityInvite struct {
	Community string
	Account   string
	Inviter   string
	CreatedAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (i CommunityInvite) PrimaryKey() string { return i.Community + "/" + i.Account }

// CommunityMemberKey is a per-member encrypted community key, required
// for private communities (spec §3, §4.5 "private communities force
// community-key encryption").
type CommunityMemberKey struct {
	Community   string
	Account     string
	EncryptedKey string
}

// PrimaryKey implements store.Row.
func (k CommunityMemberKey) PrimaryKey() string { return k.Community + "/" + k.Account }

// Communities is the community sub-component of C6.
type Communities struct {
	communities *store.Table[string, Community]
	members     *store.Table[string, CommunityMember]
	joinReqs    *store.Table[string, CommunityJoinRequest]
	invites     *store.Table[string, CommunityInvite]
	memberKeys  *store.Table[string, CommunityMemberKey]
}

// NewCommunities registers the community tables on s.
func NewCommunities(s *store.Store) *Communities {
	return &Communities{
		communities: store.NewTable[string, Community](s, "communities"),
		members:     store.NewTable[string, CommunityMember](s, "community_members"),
		joinReqs:    store.NewTable[string, CommunityJoinRequest](s, "community_join_requests"),
		invites:     store.NewTable[string, CommunityInvite](s, "community_invites"),
		memberKeys:  store.NewTable[string, CommunityMemberKey](s, "community_member_keys"),
	}
}

// Create registers a new community with its founder as administrator.
func (c *Communities) Create(name, founder string, privacy PrivacyType, publicKey string, now types.BlockTime) error {
	if err := c.communities.Insert(Community{Name: name, Founder: founder, Privacy: privacy, PublicKey: publicKey, CreatedAt: now}); err != nil {
		return err
	}
	if err := c.members.Insert(CommunityMember{Community: name, Account: founder, Role: RoleAdministrator, JoinedAt: now}); err != nil {
		return err
	}
	return c.communities.Modify(name, func(row *Community) { row.AdminCount = 1; row.MemberCount = 1 })
}

// Get returns a community snapshot.
func (c *Communities) Get(name string) (Community, bool) { return c.communities.Get(name) }

// Member returns the caller's membership row, if any.
func (c *Communities) Member(community, account string) (CommunityMember, bool) {
	return c.members.Get(community + "/" + account)
}

// RequestJoin opens a join request for a restricted/private community.
func (c *Communities) RequestJoin(community, account, message string, now types.BlockTime) error {
	if _, ok := c.communities.Get(community); !ok {
		return errCommunityNotFound
	}
	if _, ok := c.Member(community, account); ok {
		return errAlreadyMember
	}
	return c.joinReqs.Insert(CommunityJoinRequest{Community: community, Account: account, Message: message, CreatedAt: now})
}

// AcceptJoin admits a pending join request, run by an administrator or
// moderator (the evaluator dispatch layer enforces the role check).
func (c *Communities) AcceptJoin(community, account string, now types.BlockTime) error {
	key := community + "/" + account
	if _, ok := c.joinReqs.Get(key); !ok {
		return errJoinRequestNotFound
	}
	if err := c.joinReqs.Remove(key); err != nil {
		return err
	}
	if err := c.members.Insert(CommunityMember{Community: community, Account: account, Role: RoleMember, JoinedAt: now}); err != nil {
		return err
	}
	return c.communities.Modify(community, func(row *Community) { row.MemberCount++ })
}

// Invite issues a community invitation.
func (c *Communities) Invite(community, account, inviter string, now types.BlockTime) error {
	if _, ok := c.communities.Get(community); !ok {
		return errCommunityNotFound
	}
	return c.invites.Insert(CommunityInvite{Community: community, Account: account, Inviter: inviter, CreatedAt: now})
}

// AcceptInvite admits an invited account as a member.
func (c *Communities) AcceptInvite(community, account string, now types.BlockTime) error {
	key := community + "/" + account
	if _, ok := c.invites.Get(key); !ok {
		return errJoinRequestNotFound
	}
	if err := c.invites.Remove(key); err != nil {
		return err
	}
	if err := c.members.Insert(CommunityMember{Community: community, Account: account, Role: RoleMember, JoinedAt: now}); err != nil {
		return err
	}
	return c.communities.Modify(community, func(row *Community) { row.MemberCount++ })
}

// SetMemberKey stores an account's encrypted per-community key,
// required before it may read a private community's content.
func (c *Communities) SetMemberKey(community, account, encryptedKey string) error {
	row := CommunityMemberKey{Community: community, Account: account, EncryptedKey: encryptedKey}
	if _, ok := c.memberKeys.Get(row.PrimaryKey()); ok {
		return c.memberKeys.Modify(row.PrimaryKey(), func(r *CommunityMemberKey) { *r = row })
	}
	return c.memberKeys.Insert(row)
}

// Remove revokes a member's standing in the community (moderator/admin
// action).
func (c *Communities) Remove(community, account string) error {
	key := community + "/" + account
	member, ok := c.members.Get(key)
	if !ok {
		return errNotMember
	}
	if err := c.members.Remove(key); err != nil {
		return err
	}
	return c.communities.Modify(community, func(row *Community) {
		row.MemberCount--
		if member.Role == RoleModerator {
			row.ModeratorCount--
		}
		if member.Role == RoleAdministrator {
			row.AdminCount--
		}
	})
}

// Promote raises a member's role, e.g. to moderator or administrator.
func (c *Communities) Promote(community, account string, role MemberRole) error {
	key := community + "/" + account
	member, ok := c.members.Get(key)
	if !ok {
		return errNotMember
	}
	prevRole := member.Role
	if err := c.members.Modify(key, func(row *CommunityMember) { row.Role = role }); err != nil {
		return err
	}
	return c.communities.Modify(community, func(row *Community) {
		if prevRole == RoleModerator {
			row.ModeratorCount--
		}
		if prevRole == RoleAdministrator {
			row.AdminCount--
		}
		if role == RoleModerator {
			row.ModeratorCount++
		}
		if role == RoleAdministrator {
			row.AdminCount++
		}
	})
}

// IsModerator reports whether account holds moderator or administrator
// standing in community. Engine.Tag does not call it and accepts a tag
// from any account.
func (c *Communities) IsModerator(community, account string) bool {
	member, ok := c.Member(community, account)
	return ok && (member.Role == RoleModerator || member.Role == RoleAdministrator)
}
