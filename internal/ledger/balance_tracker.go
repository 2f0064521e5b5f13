package ledger

import (
	"fmt"
	"sort"
)

// BalanceTracker holds the running balance of every account touched by a
// run. A debit raises an account, a credit lowers it, so the sum over all
// accounts is zero after every posted journal.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{balances: make(map[AccountKey]int64)}
}

// Post moves j.Amount from the credit account to the debit account.
func (bt *BalanceTracker) Post(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch posts a batch after validating it. Nothing is posted when the
// batch is invalid.
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("batch %d (round %d): %w", batch.Sequence, batch.Round, err)
	}
	for _, j := range batch.Journals {
		bt.Post(j)
	}
	return nil
}

func (bt *BalanceTracker) Balance(key AccountKey) int64 {
	return bt.balances[key]
}

// WalletBalance is the wallet's cash still held in the ledger.
func (bt *BalanceTracker) WalletBalance(walletID string) int64 {
	return bt.balances[WalletAccount(walletID)]
}

// TrancheInvested is the total invested into the tranche so far.
func (bt *BalanceTracker) TrancheInvested(trancheID string) int64 {
	return bt.balances[TrancheAccount(trancheID)]
}

// Net sums every account. Anything but zero means a one-sided posting.
func (bt *BalanceTracker) Net() int64 {
	var net int64
	for _, b := range bt.balances {
		net += b
	}
	return net
}

// ScopeTotal sums the balances of one account scope.
func (bt *BalanceTracker) ScopeTotal(scope AccountScope) int64 {
	var total int64
	for key, b := range bt.balances {
		if key.Scope == scope {
			total += b
		}
	}
	return total
}

// RequireNonNegative fails when the account is overdrawn.
func (bt *BalanceTracker) RequireNonNegative(key AccountKey) error {
	if b := bt.balances[key]; b < 0 {
		return fmt.Errorf("account %s overdrawn: %d", key.AccountPath(), b)
	}
	return nil
}

// Accounts lists every touched account ordered by path.
func (bt *BalanceTracker) Accounts() []AccountKey {
	keys := make([]AccountKey, 0, len(bt.balances))
	for k := range bt.balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].AccountPath() < keys[j].AccountPath()
	})
	return keys
}

// Balances returns a copy of the balance map.
func (bt *BalanceTracker) Balances() map[AccountKey]int64 {
	out := make(map[AccountKey]int64, len(bt.balances))
	for k, b := range bt.balances {
		out[k] = b
	}
	return out
}
