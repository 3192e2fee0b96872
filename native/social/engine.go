package social

import (
	"fmt"
	"sort"

	"chainforge/core/store"
	"chainforge/core/types"
	"chainforge/native/ledger"
	"chainforge/observability/metrics"
)

// Config holds the spec §4.5 engagement-timing and curation-decay
// parameters an Engine needs. Passed explicitly by the caller (genesis/
// chain-parameter loader) rather than importing the config package
// directly, matching the market engine's CreditPools.Borrow convention
// of taking tunable ratios as call arguments.
type Config struct {
	RootPostIntervalSecs  int64
	ReplyIntervalSecs     int64
	CurationDecayWindowSecs int64
	VoteDecayCount        uint32
	ViewDecayCount        uint32
	ShareDecayCount       uint32
	CommentDecayCount     uint32
	StorageAccount        string
	ModerationPoolAccount string
}

// Engine is the C6 component: comment/engagement/moderation tables plus
// the post/reply/vote/view/share/cashout operations.
type Engine struct {
	store      *store.Store
	ledger     *ledger.Ledger
	comments   *store.Table[string, Comment]
	engagement *store.Table[string, Engagement]
	moderation *store.Table[string, ModerationTag]
	eventCount map[string]uint64 // per (comment,kind) ordinal counter for the decay discount
	cfg        Config
}

// New registers the social tables on s.
func New(s *store.Store, l *ledger.Ledger, cfg Config) *Engine {
	return &Engine{
		store:      s,
		ledger:     l,
		comments:   store.NewTable[string, Comment](s, "comments"),
		engagement: store.NewTable[string, Engagement](s, "engagement"),
		moderation: store.NewTable[string, ModerationTag](s, "moderation_tags"),
		eventCount: make(map[string]uint64),
		cfg:        cfg,
	}
}

func validateSplit(split PayoutSplit) error {
	total := uint64(split.AuthorBPS) + uint64(split.VoteBPS) + uint64(split.ViewBPS) +
		uint64(split.ShareBPS) + uint64(split.CommentBPS) + uint64(split.StorageBPS) + uint64(split.ModeratorBPS)
	if total > 10000 {
		return errSplitExceeds100
	}
	return nil
}

// validateBeneficiaries centralises the beneficiary-list percentage
// check used by both the direct post/reply path and any extension path
// that also creates beneficiary lists, per spec §9's note that the two
// must agree rather than validate independently.
func validateBeneficiaries(list []Beneficiary) error {
	var total uint64
	for _, b := range list {
		total += uint64(b.BPS)
	}
	if total > 10000 {
		return errBeneficiaryExceeds100
	}
	return nil
}

// Post creates a root comment, enforcing the 60s minimum author interval
// (spec §4.5).
func (e *Engine) Post(author string, permlink types.Permlink, c Comment, now types.BlockTime, lastPostAt types.BlockTime) error {
	if now-lastPostAt < types.BlockTime(e.cfg.RootPostIntervalSecs) && lastPostAt != 0 {
		return errRootIntervalTooSoon
	}
	if err := validateSplit(c.Split); err != nil {
		return err
	}
	if err := validateBeneficiaries(c.Beneficiaries); err != nil {
		return err
	}
	if err := ValidateFormat(c.Format, c); err != nil {
		return err
	}
	c.Author = author
	c.Permlink = permlink
	c.RootAuthor = author
	c.RootPermlink = permlink
	c.Depth = 0
	c.CreatedAt = now
	c.LastUpdateAt = now
	c.ContentHash = ContentHash(c.Body, c.JSON, c.URL, c.IPFS, c.Magnet)
	return e.comments.Insert(c)
}

// Reply creates a reply comment, enforcing the 15s minimum author
// interval and requiring the parent's comment_price to already have
// been paid by this author (spec §4.5).
func (e *Engine) Reply(author string, permlink types.Permlink, parentAuthor string, parentPermlink types.Permlink, c Comment, commentPrice types.Amount, now types.BlockTime, lastPostAt types.BlockTime) error {
	if now-lastPostAt < types.BlockTime(e.cfg.ReplyIntervalSecs) && lastPostAt != 0 {
		return errReplyIntervalTooSoon
	}
	parent, ok := e.comments.Get(parentAuthor + "/" + string(parentPermlink))
	if !ok {
		return errParentNotFound
	}
	if !commentPrice.IsZero() && parent.PaymentsReceived.LessThan(commentPrice) {
		return errCommentPriceUnpaid
	}
	if err := validateSplit(c.Split); err != nil {
		return err
	}
	if err := validateBeneficiaries(c.Beneficiaries); err != nil {
		return err
	}
	if err := ValidateFormat(c.Format, c); err != nil {
		return err
	}
	c.Author = author
	c.Permlink = permlink
	c.ParentAuthor = parentAuthor
	c.ParentPermlink = parentPermlink
	c.RootAuthor = parent.RootAuthor
	c.RootPermlink = parent.RootPermlink
	c.Depth = parent.Depth + 1
	c.CreatedAt = now
	c.LastUpdateAt = now
	c.ContentHash = ContentHash(c.Body, c.JSON, c.URL, c.IPFS, c.Magnet)
	if err := e.comments.Insert(c); err != nil {
		return err
	}
	return e.comments.Modify(parent.PrimaryKey(), func(row *Comment) {
		row.Children++
		row.PaymentsReceived, _ = row.PaymentsReceived.Sub(commentPrice)
	})
}

// PayCommentPrice credits a parent's PaymentsReceived balance, the
// prerequisite a reply author must satisfy before Reply will accept
// their comment (spec §4.5).
func (e *Engine) PayCommentPrice(parentAuthor string, parentPermlink types.Permlink, amount types.Amount) error {
	key := parentAuthor + "/" + string(parentPermlink)
	if _, ok := e.comments.Get(key); !ok {
		return errParentNotFound
	}
	return e.comments.Modify(key, func(row *Comment) { row.PaymentsReceived = row.PaymentsReceived.Add(amount) })
}

// Engage records a vote/view/share event, computing its reward-curve
// weight and applying the three spec §4.5 discounts (time ramp,
// ordinality, weight cap).
func (e *Engine) Engage(kind EngagementKind, author string, permlink types.Permlink, actor string, percentBPS int32, now types.BlockTime) error {
	key := author + "/" + string(permlink)
	comment, ok := e.comments.Get(key)
	if !ok {
		return errCommentNotFound
	}
	if comment.Deleted {
		return errCommentDeleted
	}

	before := comment.NetReward
	delta := int64(before) * int64(percentBPS) / 10000
	after := clampReward(int64(before) + delta)

	curveDelta := Weight(comment.Curve, before, after)
	weight := TimeRampDiscount(curveDelta, int64(now-comment.CreatedAt), e.cfg.CurationDecayWindowSecs)

	countKey := fmt.Sprintf("%d/%s", kind, key)
	e.eventCount[countKey]++
	weight = OrdinalityDiscount(weight, e.eventCount[countKey], e.decayCount(kind))
	if weight.Sign() == 0 && curveDelta.Sign() != 0 {
		metrics.Social().ObserveCurationDecayExhausted(kindName(kind))
	}

	weight = WeightCapDiscount(weight, curveDelta)
	metrics.Social().ObserveEngagement(kindName(kind))

	rowKey := engagementKey(kind, author, permlink, actor)
	existing, existed := e.engagement.Get(rowKey)
	changeCount := uint32(0)
	if existed {
		changeCount = existing.ChangeCount + 1
	}
	row := Engagement{
		Kind:        kind,
		Author:      author,
		Permlink:    permlink,
		Actor:       actor,
		Weight:      BigCounter(weight.String()),
		PercentBPS:  percentBPS,
		CreatedAt:   now,
		ChangeCount: changeCount,
	}
	if existed {
		if err := e.engagement.Modify(rowKey, func(r *Engagement) { *r = row }); err != nil {
			return err
		}
	} else {
		if err := e.engagement.Insert(row); err != nil {
			return err
		}
	}

	return e.comments.Modify(key, func(c *Comment) {
		c.NetReward = after
		switch kind {
		case EngagementVote:
			if percentBPS >= 0 {
				c.NetVotes++
			} else {
				c.NetVotes--
			}
			c.TotalVoteWeight = c.TotalVoteWeight.AddBig(weight)
		case EngagementView:
			c.ViewCount++
			c.TotalViewWeight = c.TotalViewWeight.AddBig(weight)
		case EngagementShare:
			c.ShareCount++
			c.TotalShareWeight = c.TotalShareWeight.AddBig(weight)
		}
	})
}

func kindName(kind EngagementKind) string {
	switch kind {
	case EngagementVote:
		return "vote"
	case EngagementView:
		return "view"
	case EngagementShare:
		return "share"
	}
	return "comment"
}

func (e *Engine) decayCount(kind EngagementKind) uint32 {
	switch kind {
	case EngagementVote:
		return e.cfg.VoteDecayCount
	case EngagementView:
		return e.cfg.ViewDecayCount
	case EngagementShare:
		return e.cfg.ShareDecayCount
	}
	return e.cfg.CommentDecayCount
}

func clampReward(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Tag attaches a moderation tag to a comment (spec §4.5).
func (e *Engine) Tag(author string, permlink types.Permlink, moderator, rating string, filter bool, tags []string, now types.BlockTime) error {
	key := author + "/" + string(permlink)
	if _, ok := e.comments.Get(key); !ok {
		return errCommentNotFound
	}
	row := ModerationTag{Author: author, Permlink: permlink, Moderator: moderator, Rating: rating, Filter: filter, Tags: tags, CreatedAt: now}
	var err error
	if _, existed := e.moderation.Get(row.PrimaryKey()); existed {
		err = e.moderation.Modify(row.PrimaryKey(), func(r *ModerationTag) { *r = row })
	} else {
		err = e.moderation.Insert(row)
	}
	if err != nil {
		return err
	}
	// ModerationTag has no community field of its own in this model, so
	// the tagged post's author stands in as the grouping bucket for the
	// moderation-flags-by-community metric.
	for _, tag := range tags {
		metrics.Social().ObserveModerationFlag(author, tag)
	}
	return nil
}

// Cashout distributes a comment's accumulated reward at cashout_time per
// the author/vote/view/share/comment/storage/moderator split and its
// beneficiary list (spec §4.5/§4.6). Each vote/view/share pool is split
// among that kind's actors in proportion to their recorded engagement
// weight.
func (e *Engine) Cashout(author string, permlink types.Permlink, totalReward types.Amount, now types.BlockTime) (map[string]types.Amount, error) {
	key := author + "/" + string(permlink)
	comment, ok := e.comments.Get(key)
	if !ok {
		return nil, errCommentNotFound
	}
	if comment.CashoutTime != 0 {
		return nil, errAlreadyCashedOut
	}
	if comment.Deleted {
		return nil, errCommentDeleted
	}

	if comment.MaxPayout.Cmp(types.ZeroAmount()) > 0 && totalReward.Cmp(comment.MaxPayout) > 0 {
		totalReward = comment.MaxPayout
	}

	out := make(map[string]types.Amount)
	remaining := totalReward

	take := func(bps uint32) (types.Amount, error) {
		share, err := totalReward.MulDiv(uint64(bps), 10000)
		if err != nil {
			return types.Amount{}, err
		}
		remaining, err = remaining.Sub(share)
		if err != nil {
			remaining = types.ZeroAmount()
		}
		return share, nil
	}

	authorShare, err := take(comment.Split.AuthorBPS)
	if err != nil {
		return nil, err
	}
	voteShare, err := take(comment.Split.VoteBPS)
	if err != nil {
		return nil, err
	}
	viewShare, err := take(comment.Split.ViewBPS)
	if err != nil {
		return nil, err
	}
	shareShare, err := take(comment.Split.ShareBPS)
	if err != nil {
		return nil, err
	}
	commentShare, err := take(comment.Split.CommentBPS)
	if err != nil {
		return nil, err
	}
	storageShare, err := take(comment.Split.StorageBPS)
	if err != nil {
		return nil, err
	}
	moderatorShare, err := take(comment.Split.ModeratorBPS)
	if err != nil {
		return nil, err
	}
	// Any remainder left by basis-point rounding (or a split summing to
	// less than 10000 bps) accrues to the author, matching the teacher's
	// convention of the primary recipient absorbing payout-split dust.
	dust := remaining
	authorShare = authorShare.Add(remaining)

	for _, b := range comment.Beneficiaries {
		cut, err := authorShare.MulDiv(uint64(b.BPS), 10000)
		if err != nil {
			return nil, err
		}
		authorShare, err = authorShare.Sub(cut)
		if err != nil {
			return nil, err
		}
		out[b.Account] = out[b.Account].Add(cut)
	}
	out[author] = out[author].Add(authorShare)

	if !voteShare.IsZero() {
		e.distributeEngagementPool(out, EngagementVote, author, permlink, voteShare)
	}
	if !viewShare.IsZero() {
		e.distributeEngagementPool(out, EngagementView, author, permlink, viewShare)
	}
	if !shareShare.IsZero() {
		e.distributeEngagementPool(out, EngagementShare, author, permlink, shareShare)
	}
	if !commentShare.IsZero() {
		out[author] = out[author].Add(commentShare)
	}
	if !storageShare.IsZero() && e.cfg.StorageAccount != "" {
		out[e.cfg.StorageAccount] = out[e.cfg.StorageAccount].Add(storageShare)
	}
	if !moderatorShare.IsZero() && e.cfg.ModerationPoolAccount != "" {
		out[e.cfg.ModerationPoolAccount] = out[e.cfg.ModerationPoolAccount].Add(moderatorShare)
	}

	for acct, amt := range out {
		if amt.IsZero() {
			continue
		}
		if err := e.ledger.Mint(acct, comment.RewardAsset, amt); err != nil {
			return nil, err
		}
	}

	if err := e.comments.Modify(key, func(c *Comment) { c.CashoutTime = now }); err != nil {
		return nil, err
	}
	metrics.Social().RecordCashout(uint64(now), string(permlink), float64(totalReward.Uint64()), float64(dust.Uint64()))
	return out, nil
}

// distributeEngagementPool splits pool proportionally among the actors
// who engaged with (author, permlink) at kind, weighted by their
// recorded BigCounter weight, with deterministic alphabetical
// remainder assignment to keep the total exact.
func (e *Engine) distributeEngagementPool(out map[string]types.Amount, kind EngagementKind, author string, permlink types.Permlink, pool types.Amount) {
	type actorWeight struct {
		actor  string
		weight uint64
	}
	var total uint64
	var entries []actorWeight
	e.engagement.All(func(row Engagement) bool {
		if row.Kind != kind || row.Author != author || row.Permlink != permlink {
			return true
		}
		w := row.Weight.Big().Uint64()
		total += w
		entries = append(entries, actorWeight{actor: row.Actor, weight: w})
		return true
	})
	if total == 0 || len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].actor < entries[j].actor })
	var distributed types.Amount
	for _, ent := range entries {
		share, err := pool.MulDiv(ent.weight, total)
		if err != nil {
			continue
		}
		out[ent.actor] = out[ent.actor].Add(share)
		distributed = distributed.Add(share)
	}
	if remainder, err := pool.Sub(distributed); err == nil && !remainder.IsZero() && len(entries) > 0 {
		out[entries[0].actor] = out[entries[0].actor].Add(remainder)
	}
}

// Delete tombstones a comment in place of removing its row, preserving
// the id for any still-referencing reply (spec §3's "deletion
// tombstone").
func (e *Engine) Delete(author string, permlink types.Permlink) error {
	key := author + "/" + string(permlink)
	if _, ok := e.comments.Get(key); !ok {
		return errCommentNotFound
	}
	return e.comments.Modify(key, func(c *Comment) { c.Deleted = true })
}

// Get returns a comment snapshot.
func (e *Engine) Get(author string, permlink types.Permlink) (Comment, bool) {
	return e.comments.Get(author + "/" + string(permlink))
}
