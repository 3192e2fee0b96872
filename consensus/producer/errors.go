package producer

import "errors"

var (
	errUnknownProducer     = errors.New("producer: unknown producer")
	errProducerInactive    = errors.New("producer: producer is not active")
	errEmptySchedule       = errors.New("producer: schedule has no slots")
	errNotScheduled        = errors.New("producer: account is not the scheduled producer for this slot")
	errAlreadyVerified     = errors.New("producer: producer already verified this block at this height")
	errVerifyBeforeHead    = errors.New("producer: height is not past last-irreversible")
	errInsufficientProofs  = errors.New("producer: fewer than IRREVERSIBLE_THRESHOLD unique verifications referenced")
	errCommitStakeExceeds  = errors.New("producer: commitment stake exceeds available staked balance")
	errViolationDuplicate  = errors.New("producer: violation already reported for this (producer, height)")
	errViolationSameBlock  = errors.New("producer: commit_block ids must differ to prove equivocation")
	errViolationNoCommits  = errors.New("producer: producer has no recorded commit at this height")
	errPowTargetNotMet     = errors.New("producer: pow_summary does not beat target_pow")
	errPowStalePrevBlock   = errors.New("producer: proof_of_work references a stale previous block")
)
