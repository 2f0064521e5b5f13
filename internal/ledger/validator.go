package ledger

import (
	"TrancheAllocator/internal/allocation"
	"fmt"
)

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies batch is balanced
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateGlobalBalance verifies system is zero-sum
func (v *InvariantValidator) ValidateGlobalBalance() error {
	if total := v.tracker.Net(); total != 0 {
		return fmt.Errorf("global balance is non-zero: %d", total)
	}
	return nil
}

// ValidateConservation verifies that everything funded into the run is
// either still in a wallet or invested in a tranche.
func (v *InvariantValidator) ValidateConservation() error {
	funded := -v.tracker.Balance(ExternalAccount(ExternalFunding))
	wallets := v.tracker.ScopeTotal(AccountScopeWallet)
	tranches := v.tracker.ScopeTotal(AccountScopeTranche)

	if wallets+tranches != funded {
		return fmt.Errorf("conservation broken: funded=%d, wallets=%d, tranches=%d", funded, wallets, tranches)
	}
	return nil
}

// ValidateWallets checks that each wallet's ledger balance is non-negative
// and matches the entity.
func (v *InvariantValidator) ValidateWallets(wallets []*allocation.Wallet) error {
	for _, w := range wallets {
		key := WalletAccount(w.ID())
		if err := v.tracker.RequireNonNegative(key); err != nil {
			return err
		}
		if got := v.tracker.Balance(key); got != w.Balance().Amount() {
			return fmt.Errorf("wallet %s: ledger=%d, entity=%d", w.ID(), got, w.Balance().Amount())
		}
	}
	return nil
}

// ValidateTranches checks that each tranche's invested total plus its
// current available amount equals its opening capacity.
func (v *InvariantValidator) ValidateTranches(tranches []*allocation.Tranche, opening map[string]int64) error {
	for _, t := range tranches {
		key := TrancheAccount(t.ID())
		if err := v.tracker.RequireNonNegative(key); err != nil {
			return err
		}
		invested := v.tracker.Balance(key)
		if invested+t.Available().Amount() != opening[t.ID()] {
			return fmt.Errorf("tranche %s: invested=%d, available=%d, opening=%d",
				t.ID(), invested, t.Available().Amount(), opening[t.ID()])
		}
	}
	return nil
}
