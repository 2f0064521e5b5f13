package allocation

import (
	"TrancheAllocator/internal/money"
	"fmt"
	"sort"
)

// Wallet is an investor's cash plus the rules deciding where it may go.
type Wallet struct {
	id         string
	balance    money.Money
	names      map[string]struct{}
	anyName    bool
	percentage Percentage
}

// NewWallet creates a wallet eligible for the given tranche names.
func NewWallet(id string, balance money.Money, eligibleTrancheNames []string, percentage Percentage) (*Wallet, error) {
	if id == "" {
		return nil, fmt.Errorf("wallet: %w", ErrEmptyID)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("wallet %s: %w: %s", id, ErrNegativeBalance, balance)
	}

	names := make(map[string]struct{}, len(eligibleTrancheNames))
	for _, n := range eligibleTrancheNames {
		names[n] = struct{}{}
	}

	return &Wallet{
		id:         id,
		balance:    balance,
		names:      names,
		percentage: percentage,
	}, nil
}

// NewSimpleWallet creates a wallet with no eligibility rules: every tranche
// name is accepted and the risk ceiling is the maximum.
func NewSimpleWallet(id string, balance money.Money) (*Wallet, error) {
	w, err := NewWallet(id, balance, nil, MaxPercentage)
	if err != nil {
		return nil, err
	}
	w.anyName = true
	return w, nil
}

// CanInvestIn evaluates eligibility against current state; nothing is cached.
func (w *Wallet) CanInvestIn(t *Tranche) bool {
	return w.acceptsName(t.Name()) &&
		!t.Percentage().IsGreaterThan(w.percentage) &&
		w.balance.IsPositive() &&
		!t.IsFunded()
}

// Invest moves amount from the wallet into the tranche. Every check runs
// before any mutation, so a failed call leaves both sides untouched.
func (w *Wallet) Invest(t *Tranche, amount money.Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("wallet %s -> tranche %s: %w: %s", w.id, t.ID(), ErrNegativeInvestment, amount)
	}
	if !w.CanInvestIn(t) {
		return fmt.Errorf("wallet %s -> tranche %s: %w", w.id, t.ID(), ErrNotEligible)
	}
	if amount.GreaterThan(w.balance) {
		return fmt.Errorf("wallet %s: %w: balance=%s, amount=%s", w.id, ErrNegativeBalance, w.balance, amount)
	}

	if err := t.Invest(amount); err != nil {
		return fmt.Errorf("wallet %s: %w", w.id, err)
	}
	w.balance = w.balance.Subtract(amount)

	return nil
}

// IsEmpty reports a zero balance.
func (w *Wallet) IsEmpty() bool {
	return w.balance.IsZero()
}

func (w *Wallet) ID() string             { return w.id }
func (w *Wallet) Balance() money.Money   { return w.balance }
func (w *Wallet) Percentage() Percentage { return w.percentage }

// AcceptsAnyName reports a wallet created without eligibility rules.
func (w *Wallet) AcceptsAnyName() bool {
	return w.anyName
}

// EligibleTrancheNames returns the configured names, sorted.
func (w *Wallet) EligibleTrancheNames() []string {
	out := make([]string, 0, len(w.names))
	for n := range w.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (w *Wallet) acceptsName(name string) bool {
	if w.anyName {
		return true
	}
	_, ok := w.names[name]
	return ok
}

// pickOneUnit is the naive strategy's half of a one-penny exchange.
func (w *Wallet) pickOneUnit() (money.Money, error) {
	unit := money.New(1)
	if unit.GreaterThan(w.balance) {
		return money.Zero, fmt.Errorf("wallet %s: %w", w.id, ErrNegativeBalance)
	}
	w.balance = w.balance.Subtract(unit)
	return unit, nil
}

// clone shares the read-only name set.
func (w *Wallet) clone() *Wallet {
	c := *w
	return &c
}
