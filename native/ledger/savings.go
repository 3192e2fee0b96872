package ledger

import (
	"fmt"

	"chainforge/core/store"
	"chainforge/core/types"
)

// SavingsWithdrawDelay is the fixed delay before a savings withdrawal
// request completes (spec §4.3).
var SavingsWithdrawDelay int64 = 3 * 24 * 3600

// MaxSavingsWithdrawRequests is the per-account concurrent request cap
// (spec §4.3: "At most K=100 concurrent requests per account").
const MaxSavingsWithdrawRequests = 100

// SavingsWithdrawRequest is one in-flight savings->liquid withdrawal.
type SavingsWithdrawRequest struct {
	ID        uint64
	Account   string
	Symbol    types.AssetSymbol
	Amount    types.Amount
	Recipient string
	CompleteAt types.BlockTime
}

// PrimaryKey implements store.Row.
func (r SavingsWithdrawRequest) PrimaryKey() uint64 { return r.ID }

// SavingsWithdrawals tracks in-flight requests, indexed by completion
// time so maintenance can sweep them in (execution_time, entity_id)
// order per spec §5.
type SavingsWithdrawals struct {
	table   *store.Table[uint64, SavingsWithdrawRequest]
	byTime  *store.OrderedIndexHandle[uint64, SavingsWithdrawRequest, int64]
	nextID  uint64
}

// NewSavingsWithdrawals registers the table on s.
func NewSavingsWithdrawals(s *store.Store) *SavingsWithdrawals {
	t := store.NewTable[uint64, SavingsWithdrawRequest](s, "savings_withdrawals")
	idx := store.AddIndex(t, store.IndexSpec[uint64, SavingsWithdrawRequest, int64]{
		Name:  "by_complete_at",
		KeyFn: func(r SavingsWithdrawRequest) int64 { return int64(r.CompleteAt) },
		Less:  func(a, b int64) bool { return a < b },
	}).Bind(t)
	return &SavingsWithdrawals{table: t, byTime: idx}
}

func (l *Ledger) countPendingSavingsRequests(w *SavingsWithdrawals, account string) int {
	n := 0
	w.table.All(func(r SavingsWithdrawRequest) bool {
		if r.Account == account {
			n++
		}
		return true
	})
	return n
}

// RequestSavingsWithdraw moves amount from savings into an in-flight
// request that completes after SavingsWithdrawDelay.
func (l *Ledger) RequestSavingsWithdraw(w *SavingsWithdrawals, account string, symbol types.AssetSymbol, amount types.Amount, recipient string, now types.BlockTime) (uint64, error) {
	if l.countPendingSavingsRequests(w, account) >= MaxSavingsWithdrawRequests {
		return 0, fmt.Errorf("ledger: savings withdraw request limit exceeded")
	}
	b := l.get(account, symbol)
	savings, err := b.Savings.Sub(amount)
	if err != nil {
		return 0, fmt.Errorf("ledger: insufficient savings balance: %w", err)
	}
	b.Savings = savings
	if err := l.put(b); err != nil {
		return 0, err
	}
	w.nextID++
	req := SavingsWithdrawRequest{
		ID:         w.nextID,
		Account:    account,
		Symbol:     symbol,
		Amount:     amount,
		Recipient:  recipient,
		CompleteAt: now.Add(SavingsWithdrawDelay),
	}
	if err := w.table.Insert(req); err != nil {
		return 0, err
	}
	return req.ID, nil
}

// CancelSavingsWithdraw returns the in-flight amount to savings and
// removes the request, as long as it has not already completed.
func (l *Ledger) CancelSavingsWithdraw(w *SavingsWithdrawals, id uint64) error {
	req, ok := w.table.Get(id)
	if !ok {
		return fmt.Errorf("ledger: unknown savings withdraw request %d", id)
	}
	b := l.get(req.Account, req.Symbol)
	b.Savings = b.Savings.Add(req.Amount)
	if err := l.put(b); err != nil {
		return err
	}
	return w.table.Remove(id)
}

// SweepSavingsWithdrawals completes every request whose CompleteAt has
// elapsed, crediting the recipient's liquid balance, bounded by maxWork
// per spec §5's "per-block maximum work unit" sweep rule.
func (l *Ledger) SweepSavingsWithdrawals(w *SavingsWithdrawals, now types.BlockTime, maxWork int) error {
	var ready []uint64
	w.byTime.Ascending(func(r SavingsWithdrawRequest) bool {
		if len(ready) >= maxWork {
			return false
		}
		if r.CompleteAt.After(now) {
			return false
		}
		ready = append(ready, r.ID)
		return true
	})
	for _, id := range ready {
		req, ok := w.table.Get(id)
		if !ok {
			continue
		}
		recipient := l.get(req.Recipient, req.Symbol)
		recipient.Liquid = recipient.Liquid.Add(req.Amount)
		if err := l.put(recipient); err != nil {
			return err
		}
		if err := w.table.Remove(id); err != nil {
			return err
		}
	}
	return nil
}
