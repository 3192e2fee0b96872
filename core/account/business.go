package account

import "fmt"

// OperationClass groups operations for business-authority checks
// (spec §4.2): transfer, content, network, governance, general.
type OperationClass uint8

const (
	ClassTransfer OperationClass = iota
	ClassContent
	ClassNetwork
	ClassGovernance
	ClassGeneral
	ClassVoteOfficer
	ClassVoteExecutive
	ClassRequest
	ClassInvite
	ClassBlacklist
)

// Role is one named business role held by a signatory on behalf of a
// business account.
type Role struct {
	Signatory string
	Classes   map[OperationClass]bool
}

// Business is the role set attached to a business account (spec §4.2):
// a single chief, a set of executives/officers/members, plus
// per-operation-class "authorised_for_role" grants.
type Business struct {
	Account    string
	Chief      string
	Executives map[string]bool
	Officers   map[string]bool
	Members    map[string]bool
	Roles      map[string]Role
}

// ErrNoBusinessRecord is returned by Businesses.Get (and, wrapped, by
// CheckBusinessAuthority) when account has no business record at all, distinguishing "not a business account" from
// "business account but signatory lacks the role" (spec §9 open
// question: account_create_evaluator must not fault on a fresh
// non-business signatory -- callers check for this sentinel and treat a
// non-business signatory as only ever authorised to act for itself).
var ErrNoBusinessRecord = fmt.Errorf("account: no business record for this account")

// Businesses holds business role records in memory, keyed by account
// name; populated by the governance/business-profile evaluators.
type Businesses struct {
	records map[string]*Business
}

// NewBusinesses constructs an empty registry.
func NewBusinesses() *Businesses { return &Businesses{records: make(map[string]*Business)} }

// Get returns the business record for account, or ErrNoBusinessRecord.
func (b *Businesses) Get(account string) (*Business, error) {
	rec, ok := b.records[account]
	if !ok {
		return nil, ErrNoBusinessRecord
	}
	return rec, nil
}

// Put installs or replaces a business record.
func (b *Businesses) Put(rec *Business) { b.records[rec.Account] = rec }

// IsChief reports whether signatory is the business's chief.
func (b *Business) IsChief(signatory string) bool { return b.Chief == signatory }

// IsExecutive reports whether signatory holds an executive role.
func (b *Business) IsExecutive(signatory string) bool { return b.Executives[signatory] }

// IsOfficer reports whether signatory holds an officer role.
func (b *Business) IsOfficer(signatory string) bool { return b.Officers[signatory] }

// IsAuthorizedFor reports whether signatory may act for class on behalf
// of this business, via chief/executive override or an explicit role
// grant (spec §4.2's is_authorized_{transfer,content,...} predicates).
func (b *Business) IsAuthorizedFor(signatory string, class OperationClass) bool {
	if b.IsChief(signatory) || b.IsExecutive(signatory) {
		return true
	}
	role, ok := b.Roles[signatory]
	if !ok {
		return false
	}
	return role.Classes[class]
}

// CheckBusinessAuthority is the dispatcher-facing entry point (spec
// §4.9 step 2): if signatory == account no business check is needed;
// otherwise a business record for account must exist and grant
// signatory the requested operation class.
func (b *Businesses) CheckBusinessAuthority(signatory, account string, class OperationClass) error {
	if signatory == account {
		return nil
	}
	rec, err := b.Get(account)
	if err != nil {
		return fmt.Errorf("account: signatory %q may not act for %q: %w", signatory, account, err)
	}
	if !rec.IsAuthorizedFor(signatory, class) {
		return fmt.Errorf("account: signatory %q lacks authority for class %d on %q", signatory, class, account)
	}
	return nil
}
