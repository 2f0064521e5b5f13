package allocation

import (
	"TrancheAllocator/internal/money"
	"fmt"
)

// Tranche is a capital bucket. Eligibility is checked against Name, which
// several tranches may share; ID is unique.
type Tranche struct {
	id         string
	name       string
	available  money.Money
	percentage Percentage
}

// NewTranche creates a tranche with a non-negative available amount.
func NewTranche(id, name string, available money.Money, percentage Percentage) (*Tranche, error) {
	if id == "" {
		return nil, fmt.Errorf("tranche: %w", ErrEmptyID)
	}
	if available.IsNegative() {
		return nil, fmt.Errorf("tranche %s: %w: %s", id, ErrNegativeAvailableAmount, available)
	}
	return &Tranche{
		id:         id,
		name:       name,
		available:  available,
		percentage: percentage,
	}, nil
}

// NewSimpleTranche creates a tranche grouped under its own id with the
// lowest risk threshold, so any simple wallet can invest in it.
func NewSimpleTranche(id string, available money.Money) (*Tranche, error) {
	return NewTranche(id, id, available, MinPercentage)
}

// Invest takes amount out of the available capacity.
func (t *Tranche) Invest(amount money.Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("tranche %s: %w: %s", t.id, ErrNegativeInvestment, amount)
	}
	if amount.GreaterThan(t.available) {
		return fmt.Errorf("tranche %s: %w: available=%s, amount=%s",
			t.id, ErrNegativeAvailableAmount, t.available, amount)
	}

	t.available = t.available.Subtract(amount)
	return nil
}

// IsFunded reports whether the tranche has no capacity left.
func (t *Tranche) IsFunded() bool {
	return t.available.IsZero()
}

func (t *Tranche) ID() string { return t.id }
func (t *Tranche) Name() string { return t.name }
func (t *Tranche) Available() money.Money { return t.available }
func (t *Tranche) Percentage() Percentage { return t.percentage }

// acceptOneUnit is the naive strategy's half of a one-penny exchange.
func (t *Tranche) acceptOneUnit(unit money.Money) error {
	return t.Invest(unit)
}

func (t *Tranche) clone() *Tranche {
	c := *t
	return &c
}
