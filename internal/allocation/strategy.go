package allocation

import "fmt"

// Strategy turns wallet and tranche state into allocation records. An
// implementation must not mutate its inputs.
type Strategy interface {
	Allocate(wallets []*Wallet, tranches []*Tranche) []Allocation
}

// Strategy names accepted by NewStrategy.
const (
	StrategyProportional = "proportional"
	StrategyNaive        = "naive"
)

// NewStrategy builds a named strategy, optionally wrapped in the cap decorator.
func NewStrategy(name string, capped bool) (Strategy, error) {
	var s Strategy
	switch name {
	case StrategyProportional:
		s = ProportionalStrategy{}
	case StrategyNaive:
		s = NaiveStrategy{}
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}

	if capped {
		return NewCapStrategy(s), nil
	}
	return s, nil
}
