package social

import "errors"

// Sentinel errors for the social graph, matching the teacher's
// errNilState-style per-package error blocks so callers can use
// errors.Is through the evaluator dispatch chain.
var (
	errMissingMedia     = errors.New("social: image/video/audio/file/livestream posts require a url, ipfs, or magnet reference")
	errMissingLink       = errors.New("social: link posts require a url")
	errMissingBody       = errors.New("social: post requires a body")
	errRootIntervalTooSoon = errors.New("social: root posts require a 60s minimum author interval")
	errReplyIntervalTooSoon = errors.New("social: replies require a 15s minimum author interval")
	errCommentPriceUnpaid  = errors.New("social: reply requires the parent's comment_price to have been paid")
	errParentNotFound      = errors.New("social: parent comment not found")
	errCommentNotFound     = errors.New("social: comment not found")
	errCommentDeleted      = errors.New("social: comment is deleted")
	errAlreadyCashedOut    = errors.New("social: comment already cashed out")
	errSplitExceeds100     = errors.New("social: payout split percentages exceed 10000 bps")
	errBeneficiaryExceeds100 = errors.New("social: beneficiary percentages exceed 10000 bps")
	errCommunityNotFound   = errors.New("social: community not found")
	errNotMember           = errors.New("social: account is not a member of the community")
	errNotModerator        = errors.New("social: account is not a moderator of the community")
	errAlreadyMember       = errors.New("social: account is already a member")
	errJoinRequestNotFound = errors.New("social: join request not found")
)
