package account

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
)

// RecoveryState enumerates spec §4.2's recovery-request lifecycle.
type RecoveryState uint8

const (
	RecoveryAbsent RecoveryState = iota
	RecoveryPending
	RecoveryConfirmed
	RecoveryExpired
)

// RecoveryExpiry is the fixed window a recovery request stays open
// (spec §4.2: "24h expiry").
var RecoveryExpiry int64 = 24 * 3600

// RecoveryRequest is the in-flight account-recovery record.
type RecoveryRequest struct {
	Account   string
	NewOwner  Authority
	State     RecoveryState
	RequestedAt types.BlockTime
	ExpiresAt   types.BlockTime
}

// PrimaryKey implements store.Row.
func (r RecoveryRequest) PrimaryKey() string { return r.Account }

// RecoveryRequests wraps the recovery-request table.
type RecoveryRequests struct {
	table *store.Table[string, RecoveryRequest]
}

// NewRecoveryRequests registers the table on s.
func NewRecoveryRequests(s *store.Store) *RecoveryRequests {
	return &RecoveryRequests{table: store.NewTable[string, RecoveryRequest](s, "recovery_requests")}
}

// RequestAccountRecovery opens a pending recovery request for account,
// callable only by its configured recovery account (checked by the
// caller/evaluator before invoking this).
func (r *Registry) RequestAccountRecovery(reqs *RecoveryRequests, account string, newOwner Authority, now types.BlockTime) error {
	if existing, ok := reqs.table.Get(account); ok && existing.State == RecoveryPending {
		return fmt.Errorf("account: recovery request already pending for %q", account)
	}
	req := RecoveryRequest{
		Account:     account,
		NewOwner:    newOwner,
		State:       RecoveryPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(RecoveryExpiry),
	}
	if _, ok := reqs.table.Get(account); ok {
		return reqs.table.Modify(account, func(row *RecoveryRequest) { *row = req })
	}
	return reqs.table.Insert(req)
}

// RecoverAccount confirms a pending recovery request: callerAuth must be
// an owner authority that was active within the last 30 days, and
// presentedNewOwner must match the request's stored NewOwner exactly.
// On success the request is removed, the owner authority is rewritten,
// and LastAccountRecovery is timestamped.
func (r *Registry) RecoverAccount(reqs *RecoveryRequests, account string, callerAuth, presentedNewOwner Authority, now types.BlockTime) error {
	req, ok := reqs.table.Get(account)
	if !ok || req.State != RecoveryPending {
		return fmt.Errorf("account: no pending recovery request for %q", account)
	}
	if req.ExpiresAt.Before(now) {
		_ = reqs.table.Modify(account, func(row *RecoveryRequest) { row.State = RecoveryExpired })
		return fmt.Errorf("account: recovery request for %q has expired", account)
	}
	if !authoritiesEqual(req.NewOwner, presentedNewOwner) {
		return fmt.Errorf("account: presented new owner authority does not match the request")
	}
	if !r.RecentOwnerAuthority(account, callerAuth, now) {
		return fmt.Errorf("account: caller does not hold an owner authority active within the last 30 days")
	}
	if err := r.recordOwnerHistory(account, presentedNewOwner, now); err != nil {
		return err
	}
	if err := r.authorities.Modify(authorityKey(account, AuthorityOwner), func(row *authorityRow) {
		row.Auth = presentedNewOwner
	}); err != nil {
		return err
	}
	if err := r.accounts.Modify(account, func(a *Account) {
		a.LastOwnerUpdate = now
		a.LastAccountRecovery = now
	}); err != nil {
		return err
	}
	return reqs.table.Remove(account)
}

// ExpirePendingRecoveries sweeps pending requests whose window elapsed,
// matching the expired state of the lifecycle in spec §4.2.
func (r *Registry) ExpirePendingRecoveries(reqs *RecoveryRequests, now types.BlockTime) error {
	var expired []string
	reqs.table.All(func(req RecoveryRequest) bool {
		if req.State == RecoveryPending && req.ExpiresAt.Before(now) {
			expired = append(expired, req.Account)
		}
		return true
	})
	for _, account := range expired {
		if err := reqs.table.Remove(account); err != nil {
			return err
		}
	}
	return nil
}

// ChangeRecoveryAccount updates the account's configured recovery
// account; unrestricted beyond normal authority checks, performed by the
// evaluator before calling in.
func (r *Registry) ChangeRecoveryAccount(account, newRecovery string) error {
	return r.accounts.Modify(account, func(a *Account) { a.Recovery = newRecovery })
}
