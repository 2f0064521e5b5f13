package allocation

import (
	"TrancheAllocator/internal/money"
	"fmt"
)

type summer struct{}

// Sum groups the aggregation helpers: allocation.Sum.OfWallets(ws).
var Sum summer

// OfTranches totals the available amounts.
func (summer) OfTranches(tranches []*Tranche) money.Money {
	total := money.Zero
	for _, t := range tranches {
		total = total.Add(t.Available())
	}
	return total
}

// OfEligibleTranches totals the tranches the wallet can invest in right now.
func (s summer) OfEligibleTranches(w *Wallet, tranches []*Tranche) money.Money {
	return s.OfTranches(eligibleTranches(w, tranches))
}

// OfWallets totals the balances.
func (summer) OfWallets(wallets []*Wallet) money.Money {
	total := money.Zero
	for _, w := range wallets {
		total = total.Add(w.Balance())
	}
	return total
}

// OfAllocations totals record amounts. A negative amount is malformed.
func (summer) OfAllocations(allocations []Allocation) (money.Money, error) {
	total := money.Zero
	for i, a := range allocations {
		if a.Amount.IsNegative() {
			return money.Zero, fmt.Errorf("%w: record %d has negative amount %s", ErrMalformedAllocation, i, a.Amount)
		}
		var err error
		if total, err = total.CheckedAdd(a.Amount); err != nil {
			return money.Zero, fmt.Errorf("%w: record %d: %w", ErrMalformedAllocation, i, err)
		}
	}
	return total, nil
}

// Bounded checks that the wallet total and the tranche total both fit in
// Money. Every amount formed while allocating between the two sets is bounded
// by one of these totals, so a bounded input cannot overflow later.
func (summer) Bounded(wallets []*Wallet, tranches []*Tranche) error {
	total := money.Zero
	for _, w := range wallets {
		var err error
		if total, err = total.CheckedAdd(w.Balance()); err != nil {
			return fmt.Errorf("wallet total at %s: %w", w.ID(), err)
		}
	}

	total = money.Zero
	for _, t := range tranches {
		var err error
		if total, err = total.CheckedAdd(t.Available()); err != nil {
			return fmt.Errorf("tranche total at %s: %w", t.ID(), err)
		}
	}
	return nil
}

// OfAllocationForWallet totals the records of one wallet.
func (s summer) OfAllocationForWallet(walletID string, allocations []Allocation) (money.Money, error) {
	matched := make([]Allocation, 0, len(allocations))
	for i, a := range allocations {
		if a.Wallet == "" {
			return money.Zero, fmt.Errorf("%w: record %d has no wallet", ErrMalformedAllocation, i)
		}
		if a.Wallet == walletID {
			matched = append(matched, a)
		}
	}
	return s.OfAllocations(matched)
}

// OfAllocationForTranche totals the records of one tranche.
func (s summer) OfAllocationForTranche(trancheID string, allocations []Allocation) (money.Money, error) {
	matched := make([]Allocation, 0, len(allocations))
	for i, a := range allocations {
		if a.Tranche == "" {
			return money.Zero, fmt.Errorf("%w: record %d has no tranche", ErrMalformedAllocation, i)
		}
		if a.Tranche == trancheID {
			matched = append(matched, a)
		}
	}
	return s.OfAllocations(matched)
}

// eligibleTranches keeps input order.
func eligibleTranches(w *Wallet, tranches []*Tranche) []*Tranche {
	var out []*Tranche
	for _, t := range tranches {
		if w.CanInvestIn(t) {
			out = append(out, t)
		}
	}
	return out
}
