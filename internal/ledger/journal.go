package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	// JournalTypeOpening brings a wallet balance into the run.
	JournalTypeOpening JournalType = iota
	// JournalTypeInvestment moves money from a wallet into a tranche.
	JournalTypeInvestment
)

func (t JournalType) String() string {
	switch t {
	case JournalTypeOpening:
		return "opening"
	case JournalTypeInvestment:
		return "investment"
	}
	return "unknown"
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups balanced entries
	RunRef        string      // Allocation run the entry belongs to
	Sequence      int64       // Position of the batch in the run
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	Amount        int64       // Minor units (ALWAYS positive)
	JournalType   JournalType // Entry type
}

// Batch is one round's set of journal entries. Round 0 is the opening batch.
type Batch struct {
	BatchID  uuid.UUID
	RunRef   string
	Sequence int64
	Round    int
	Journals []Journal
}

// Validate ensures the batch is well-formed. Every entry moves a single
// positive amount between two distinct accounts, so each one balances on
// its own.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}

// Total sums the batch's journal amounts.
func (b *Batch) Total() int64 {
	var total int64
	for _, j := range b.Journals {
		total += j.Amount
	}
	return total
}
