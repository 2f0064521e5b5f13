package ledger_test

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/ledger"
	"TrancheAllocator/internal/money"
	"testing"

	"github.com/google/uuid"
)

func mustWallet(t *testing.T, id string, balance int64) *allocation.Wallet {
	t.Helper()
	w, err := allocation.NewSimpleWallet(id, money.New(balance))
	if err != nil {
		t.Fatalf("NewSimpleWallet(%s): %v", id, err)
	}
	return w
}

func mustTranche(t *testing.T, id string, available int64) *allocation.Tranche {
	t.Helper()
	tr, err := allocation.NewSimpleTranche(id, money.New(available))
	if err != nil {
		t.Fatalf("NewSimpleTranche(%s): %v", id, err)
	}
	return tr
}

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_Paths(t *testing.T) {
	cases := map[ledger.AccountKey]string{
		ledger.WalletAccount("w1"):                     "wallet:w1",
		ledger.TrancheAccount("t1"):                    "tranche:t1",
		ledger.ExternalAccount(ledger.ExternalFunding): "external:funding",
	}

	for key, want := range cases {
		if got := key.AccountPath(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

// ============================================================================
// Test: JournalGenerator
// ============================================================================

func TestJournalGenerator_Opening(t *testing.T) {
	gen := ledger.NewJournalGenerator("run-1")
	wallets := []*allocation.Wallet{mustWallet(t, "w1", 100), mustWallet(t, "w2", 0), mustWallet(t, "w3", 60)}

	batch := gen.GenerateOpening(wallets)
	if batch == nil {
		t.Fatal("expected opening batch")
	}
	if len(batch.Journals) != 2 {
		t.Fatalf("journals: got %d, want 2 (empty wallet skipped)", len(batch.Journals))
	}
	if batch.Total() != 160 {
		t.Errorf("total: got %d, want 160", batch.Total())
	}
	if err := batch.Validate(); err != nil {
		t.Errorf("opening batch should validate: %v", err)
	}
	if batch.Round != 0 || batch.Sequence != 0 {
		t.Errorf("round/sequence: got %d/%d, want 0/0", batch.Round, batch.Sequence)
	}
	if gen.Sequence() != 1 {
		t.Errorf("next sequence: got %d, want 1", gen.Sequence())
	}

	if gen.GenerateOpening([]*allocation.Wallet{mustWallet(t, "w4", 0)}) != nil {
		t.Error("all-empty opening should produce no batch")
	}
	if gen.Sequence() != 1 {
		t.Error("nil batch must not advance the sequence")
	}
}

func TestJournalGenerator_Investments(t *testing.T) {
	gen := ledger.NewJournalGenerator("run-1")

	batch, err := gen.GenerateInvestments(1, []allocation.Allocation{
		{Wallet: "w1", Tranche: "t1", Amount: money.New(55)},
		{Wallet: "w1", Tranche: "t2", Amount: money.New(45)},
	})
	if err != nil {
		t.Fatalf("GenerateInvestments: %v", err)
	}
	if batch.Round != 1 {
		t.Errorf("round: got %d, want 1", batch.Round)
	}

	j := batch.Journals[0]
	if j.DebitAccount != ledger.TrancheAccount("t1") || j.CreditAccount != ledger.WalletAccount("w1") {
		t.Errorf("journal direction: debit %s, credit %s", j.DebitAccount.AccountPath(), j.CreditAccount.AccountPath())
	}
	if j.JournalType != ledger.JournalTypeInvestment || j.JournalType.String() != "investment" {
		t.Errorf("journal type: got %s", j.JournalType)
	}

	empty, err := gen.GenerateInvestments(2, nil)
	if err != nil || empty != nil {
		t.Errorf("no movements should give nil batch, got %v, %v", empty, err)
	}

	if _, err := gen.GenerateInvestments(3, []allocation.Allocation{{Wallet: "w1", Tranche: "t1"}}); err == nil {
		t.Error("zero investment should be rejected")
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_InitialBalanceZero(t *testing.T) {
	bt := ledger.NewBalanceTracker()

	if balance := bt.WalletBalance("w1"); balance != 0 {
		t.Errorf("initial balance should be 0, got %d", balance)
	}
}

func TestBalanceTracker_RunFlow(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator("run-1")

	opening := gen.GenerateOpening([]*allocation.Wallet{mustWallet(t, "w1", 100), mustWallet(t, "w2", 60)})
	if err := bt.ApplyBatch(opening); err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}

	round, err := gen.GenerateInvestments(1, []allocation.Allocation{
		{Wallet: "w1", Tranche: "t1", Amount: money.New(55)},
		{Wallet: "w2", Tranche: "t1", Amount: money.New(33)},
	})
	if err != nil {
		t.Fatalf("GenerateInvestments: %v", err)
	}
	if err := bt.ApplyBatch(round); err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}

	if got := bt.WalletBalance("w1"); got != 45 {
		t.Errorf("w1: got %d, want 45", got)
	}
	if got := bt.TrancheInvested("t1"); got != 88 {
		t.Errorf("t1: got %d, want 88", got)
	}
	if got := bt.Net(); got != 0 {
		t.Errorf("global balance: got %d, want 0", got)
	}
	if got := bt.ScopeTotal(ledger.AccountScopeWallet); got != 72 {
		t.Errorf("wallet scope: got %d, want 72", got)
	}

	accounts := bt.Accounts()
	want := []string{"external:funding", "tranche:t1", "wallet:w1", "wallet:w2"}
	if len(accounts) != len(want) {
		t.Fatalf("accounts: got %d, want %d", len(accounts), len(want))
	}
	for i, k := range accounts {
		if k.AccountPath() != want[i] {
			t.Errorf("account %d: got %q, want %q", i, k.AccountPath(), want[i])
		}
	}
}

func TestBalanceTracker_BalancesIsCopy(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	bt.Post(ledger.Journal{
		DebitAccount:  ledger.WalletAccount("w1"),
		CreditAccount: ledger.ExternalAccount(ledger.ExternalFunding),
		Amount:        1_000,
	})

	snap := bt.Balances()
	if len(snap) == 0 {
		t.Fatal("snapshot should not be empty")
	}

	snap[ledger.WalletAccount("w1")] = 0
	if bt.WalletBalance("w1") != 1_000 {
		t.Error("tracker balance should not be affected by snapshot mutation")
	}
}

func TestBalanceTracker_RequireNonNegative(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	bt.Post(ledger.Journal{
		DebitAccount:  ledger.TrancheAccount("t1"),
		CreditAccount: ledger.WalletAccount("w1"),
		Amount:        5,
	})

	if err := bt.RequireNonNegative(ledger.WalletAccount("w1")); err == nil {
		t.Error("expected error for overdrawn wallet account")
	}
	if err := bt.RequireNonNegative(ledger.TrancheAccount("t1")); err != nil {
		t.Errorf("tranche account should be non-negative: %v", err)
	}
}

// ============================================================================
// Test: Batch.Validate
// ============================================================================

func batchWith(amount int64, debit, credit ledger.AccountKey) *ledger.Batch {
	batchID := uuid.New()
	return &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  debit,
			CreditAccount: credit,
			Amount:        amount,
		}},
	}
}

func TestBatchValidate(t *testing.T) {
	w := ledger.WalletAccount("w1")
	tr := ledger.TrancheAccount("t1")

	if err := (&ledger.Batch{BatchID: uuid.New()}).Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
	if err := batchWith(0, tr, w).Validate(); err == nil {
		t.Error("zero amount should fail validation")
	}
	if err := batchWith(-5, tr, w).Validate(); err == nil {
		t.Error("negative amount should fail validation")
	}
	if err := batchWith(5, w, w).Validate(); err == nil {
		t.Error("self-transfer should fail validation")
	}

	mismatched := batchWith(5, tr, w)
	mismatched.Journals[0].BatchID = uuid.New()
	if err := mismatched.Validate(); err == nil {
		t.Error("mismatched batch ID should fail validation")
	}

	if err := batchWith(5, tr, w).Validate(); err != nil {
		t.Errorf("valid batch should pass: %v", err)
	}
}

// ============================================================================
// Test: InvariantValidator
// ============================================================================

func TestInvariantValidator_AfterInvest(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)
	gen := ledger.NewJournalGenerator("run-1")

	w := mustWallet(t, "w1", 100)
	tr := mustTranche(t, "t1", 80)
	opening := map[string]int64{"t1": 80}

	if err := bt.ApplyBatch(gen.GenerateOpening([]*allocation.Wallet{w})); err != nil {
		t.Fatalf("opening: %v", err)
	}
	if err := w.Invest(tr, money.New(30)); err != nil {
		t.Fatalf("invest: %v", err)
	}
	batch, err := gen.GenerateInvestments(1, []allocation.Allocation{{Wallet: "w1", Tranche: "t1", Amount: money.New(30)}})
	if err != nil {
		t.Fatalf("GenerateInvestments: %v", err)
	}
	if err := v.ValidateBatchBalance(batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := v.ValidateGlobalBalance(); err != nil {
		t.Errorf("global: %v", err)
	}
	if err := v.ValidateConservation(); err != nil {
		t.Errorf("conservation: %v", err)
	}
	if err := v.ValidateWallets([]*allocation.Wallet{w}); err != nil {
		t.Errorf("wallets: %v", err)
	}
	if err := v.ValidateTranches([]*allocation.Tranche{tr}, opening); err != nil {
		t.Errorf("tranches: %v", err)
	}
}

func TestInvariantValidator_DetectsDrift(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)

	w := mustWallet(t, "w1", 100)
	tr := mustTranche(t, "t1", 80)

	// Entity moved money the ledger never saw.
	bt.Post(ledger.Journal{
		DebitAccount:  ledger.WalletAccount("w1"),
		CreditAccount: ledger.ExternalAccount(ledger.ExternalFunding),
		Amount:        100,
	})
	if err := w.Invest(tr, money.New(10)); err != nil {
		t.Fatalf("invest: %v", err)
	}

	if err := v.ValidateWallets([]*allocation.Wallet{w}); err == nil {
		t.Error("expected wallet drift to be detected")
	}
	if err := v.ValidateTranches([]*allocation.Tranche{tr}, map[string]int64{"t1": 80}); err == nil {
		t.Error("expected tranche drift to be detected")
	}

	bt.Post(ledger.Journal{
		DebitAccount:  ledger.TrancheAccount("t1"),
		CreditAccount: ledger.ExternalAccount("unknown"),
		Amount:        1,
	})
	if err := v.ValidateConservation(); err == nil {
		t.Error("money from outside the run should break conservation")
	}
}
