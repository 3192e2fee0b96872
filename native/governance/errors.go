package governance

import "errors"

var (
	errUnknownOfficer          = errors.New("governance: unknown officer candidate")
	errMilestoneSharesInvalid  = errors.New("governance: milestone percent shares must sum to 100")
	errMilestoneIndexOutOfRange = errors.New("governance: milestone index out of range")
	errMilestoneAlreadyClaimed = errors.New("governance: milestone already claimed")
	errNoApprovedMilestones    = errors.New("governance: milestone not yet approved")
	errProposalNotFound        = errors.New("governance: enterprise proposal not found")
	errProposalInactive        = errors.New("governance: enterprise proposal inactive")
	errDisbursementNotDue      = errors.New("governance: daily disbursement not yet due")
)
