// Package social implements the Social Graph component (C6): comments,
// engagement events (vote/view/share), reward-curve weighting, cashout
// distribution, and communities with membership/moderation. Grounded on
// the teacher's native/creator (content/payout accounting shape) and
// native/reputation (per-account standing aggregation) engines.
package social

import (
	"math/big"

	"chainforge/core/types"
)

// PayoutSplit is the author/vote/view/share/comment/storage/moderator
// percent split a comment declares at creation (spec §3 "Comment").
// Percents are basis points and must sum to ≤ 10000.
type PayoutSplit struct {
	AuthorBPS    uint32
	VoteBPS      uint32
	ViewBPS      uint32
	ShareBPS     uint32
	CommentBPS   uint32
	StorageBPS   uint32
	ModeratorBPS uint32
}

// Beneficiary is one (account, percent) entry in a comment's beneficiary
// list, paid out of the author's share at cashout.
type Beneficiary struct {
	Account string
	BPS     uint32
}

// Comment is the spec §3 Comment entity (root post or reply).
type Comment struct {
	Author       string
	Permlink     types.Permlink
	ParentAuthor string
	ParentPermlink types.Permlink
	RootAuthor   string
	RootPermlink types.Permlink
	Depth        uint32

	Body     string
	JSON     string
	URL      string
	IPFS     string
	Magnet   string
	Tags     []string
	Language string
	Reach    ReachLevel
	Format   PostFormat

	PrivacyKey    string
	RewardAsset   types.AssetSymbol
	MaxPayout     types.Amount
	Curve         Curve
	Split         PayoutSplit
	Beneficiaries []Beneficiary

	NetVotes   int64
	ViewCount  uint64
	ShareCount uint64
	Children   uint64

	NetReward   uint64 // cumulative signed reward metric feeding the curve, clamped at 0
	VotePower   uint64
	ViewPower   uint64
	SharePower  uint64
	CommentPower uint64

	TotalVoteWeight    BigCounter
	TotalViewWeight    BigCounter
	TotalShareWeight   BigCounter
	TotalCommentWeight BigCounter

	CreatedAt    types.BlockTime
	LastUpdateAt types.BlockTime
	CashoutTime  types.BlockTime
	PaymentsReceived types.Amount // comment_price paid by a reply's author, tracked on the parent

	// ContentHash is a content-address fingerprint of the post body and
	// linked media, computed once at Post/Reply time so off-chain indexers
	// can deduplicate and verify content without re-hashing the full body.
	ContentHash string

	Deleted bool
}

// PrimaryKey implements store.Row; comments are keyed by (author, permlink).
func (c Comment) PrimaryKey() string { return string(c.Author) + "/" + string(c.Permlink) }

// ReachLevel restricts feed dissemination (spec §4.5).
type ReachLevel uint8

const (
	ReachPublic ReachLevel = iota
	ReachFollowers
	ReachCommunity
	ReachPrivate
)

// PostFormat enumerates the content-field validation classes (spec §4.5).
type PostFormat uint8

const (
	FormatText PostFormat = iota
	FormatImage
	FormatVideo
	FormatLink
	FormatArticle
	FormatAudio
	FormatFile
	FormatLivestream
	FormatProduct
	FormatPoll
	FormatList
)

// ValidateFormat enforces presence of the content field each format
// requires (spec §4.5 "Post-format validation").
func ValidateFormat(format PostFormat, c Comment) error {
	switch format {
	case FormatImage, FormatVideo, FormatAudio, FormatFile, FormatLivestream:
		if c.IPFS == "" && c.Magnet == "" && c.URL == "" {
			return errMissingMedia
		}
	case FormatLink:
		if c.URL == "" {
			return errMissingLink
		}
	case FormatArticle, FormatText, FormatProduct, FormatPoll, FormatList:
		if c.Body == "" {
			return errMissingBody
		}
	}
	return nil
}

// BigCounter stores an arbitrarily large accumulated weight total as its
// decimal string form so Comment stays a plain comparable-free struct
// usable as a store.Row value; callers convert through Big()/AddBig().
type BigCounter string

// Big parses the counter into a big.Int, treating an empty counter as zero.
func (c BigCounter) Big() *big.Int {
	if c == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(string(c), 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// AddBig returns the counter advanced by delta, in its serialised form.
func (c BigCounter) AddBig(delta *big.Int) BigCounter {
	return BigCounter(new(big.Int).Add(c.Big(), delta).String())
}

// EngagementKind distinguishes vote/view/share events for metrics and
// discount application.
type EngagementKind uint8

const (
	EngagementVote EngagementKind = iota
	EngagementView
	EngagementShare
)

// Vote / View / Share are the spec §3 per-(comment, actor) engagement
// records.
type Engagement struct {
	Kind         EngagementKind
	Author       string
	Permlink     types.Permlink
	Actor        string
	Reward       types.Amount
	Weight       BigCounter
	MaxWeight    BigCounter
	PercentBPS   int32 // signed: negative view/vote withdraws support
	Interface    string
	Supernode    string
	CreatedAt    types.BlockTime
	ChangeCount  uint32
}

// PrimaryKey implements store.Row; keyed by (kind, comment, actor).
func (e Engagement) PrimaryKey() string {
	return engagementKey(e.Kind, e.Author, e.Permlink, e.Actor)
}

func engagementKey(kind EngagementKind, author string, permlink types.Permlink, actor string) string {
	return string(rune('0'+kind)) + "/" + author + "/" + string(permlink) + "/" + actor
}

// ModerationTag is a (comment, moderator) rating/filter/tags annotation
// (spec §4.5).
type ModerationTag struct {
	Author    string
	Permlink  types.Permlink
	Moderator string
	Rating    string
	Filter    bool
	Tags      []string
	CreatedAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (m ModerationTag) PrimaryKey() string {
	return m.Author + "/" + string(m.Permlink) + "/" + m.Moderator
}
