package core

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/money"

	"github.com/google/uuid"
)

// Termination says why a run stopped.
type Termination string

const (
	TerminationNoAllocations    Termination = "no_allocations"
	TerminationWalletsExhausted Termination = "wallets_exhausted"
	TerminationTranchesFunded   Termination = "tranches_funded"
	TerminationNotConverged     Termination = "not_converged"
)

// RoundReport summarises one allocate-then-invest cycle.
type RoundReport struct {
	Round     int
	Proposed  int
	Applied   int
	Skipped   int
	Moved     money.Money
	StateHash [32]byte
}

// Remainder is money left on one wallet or tranche after a run.
type Remainder struct {
	ID     string      `json:"id"`
	Amount money.Money `json:"amount"`
}

// Result is the outcome of Engine.Run. Allocations aggregate every applied
// movement per (wallet, tranche) pair in first-application order.
type Result struct {
	RunID              uuid.UUID
	Rounds             []RoundReport
	Allocations        []allocation.Allocation
	Termination        Termination
	UnallocatedWallets []Remainder
	UnfundedTranches   []Remainder
	RemainingWallets   money.Money
	RemainingTranches  money.Money
	Journals           int
	StateHash          [32]byte
}

// Moved totals the money invested across all rounds.
func (r *Result) Moved() money.Money {
	total := money.Zero
	for _, rr := range r.Rounds {
		total = total.Add(rr.Moved)
	}
	return total
}

type pairKey struct {
	wallet, tranche string
}

type aggregator struct {
	index map[pairKey]int
	out   []allocation.Allocation
}

func newAggregator() *aggregator {
	return &aggregator{index: make(map[pairKey]int)}
}

func (a *aggregator) add(applied []allocation.Allocation) {
	for _, rec := range applied {
		key := pairKey{rec.Wallet, rec.Tranche}
		if i, ok := a.index[key]; ok {
			a.out[i].Amount = a.out[i].Amount.Add(rec.Amount)
			continue
		}
		a.index[key] = len(a.out)
		a.out = append(a.out, rec)
	}
}
