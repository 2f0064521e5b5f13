package ledger

import (
	"TrancheAllocator/internal/allocation"
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches for one allocation run
type JournalGenerator struct {
	runRef   string
	sequence int64
}

func NewJournalGenerator(runRef string) *JournalGenerator {
	return &JournalGenerator{runRef: runRef}
}

// GenerateOpening records each wallet's starting balance.
// Moves funds: external:funding → wallet:<id>
// Returns nil when every wallet is empty.
func (jg *JournalGenerator) GenerateOpening(wallets []*allocation.Wallet) *Batch {
	batch := jg.newBatch(0, len(wallets))

	for _, w := range wallets {
		if !w.Balance().IsPositive() {
			continue
		}
		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batch.BatchID,
			RunRef:        jg.runRef,
			Sequence:      batch.Sequence,
			DebitAccount:  WalletAccount(w.ID()),
			CreditAccount: ExternalAccount(ExternalFunding),
			Amount:        w.Balance().Amount(),
			JournalType:   JournalTypeOpening,
		})
	}

	return jg.finish(batch)
}

// GenerateInvestments records the movements applied in a round.
// Moves funds: wallet:<id> → tranche:<id>
// Returns nil when nothing was applied.
func (jg *JournalGenerator) GenerateInvestments(round int, applied []allocation.Allocation) (*Batch, error) {
	batch := jg.newBatch(round, len(applied))

	for _, a := range applied {
		if !a.Amount.IsPositive() {
			return nil, fmt.Errorf("investment %s -> %s has non-positive amount %s", a.Wallet, a.Tranche, a.Amount)
		}
		batch.Journals = append(batch.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       batch.BatchID,
			RunRef:        jg.runRef,
			Sequence:      batch.Sequence,
			DebitAccount:  TrancheAccount(a.Tranche),
			CreditAccount: WalletAccount(a.Wallet),
			Amount:        a.Amount.Amount(),
			JournalType:   JournalTypeInvestment,
		})
	}

	return jg.finish(batch), nil
}

func (jg *JournalGenerator) newBatch(round, capacity int) *Batch {
	return &Batch{
		BatchID:  uuid.New(),
		RunRef:   jg.runRef,
		Sequence: jg.sequence,
		Round:    round,
		Journals: make([]Journal, 0, capacity),
	}
}

func (jg *JournalGenerator) finish(batch *Batch) *Batch {
	if len(batch.Journals) == 0 {
		return nil
	}
	jg.sequence++
	return batch
}

// Sequence returns the sequence the next batch will carry.
func (jg *JournalGenerator) Sequence() int64 {
	return jg.sequence
}
