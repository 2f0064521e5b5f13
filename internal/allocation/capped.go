package allocation

// CapStrategy limits how much of a tranche any single wallet can take in one
// call: the tranche's available amount is split evenly among all records
// that target it, zero records included, and each record is clamped to its
// share. Clamped excess is left for the next round.
type CapStrategy struct {
	inner Strategy
}

func NewCapStrategy(inner Strategy) *CapStrategy {
	return &CapStrategy{inner: inner}
}

func (c *CapStrategy) Allocate(wallets []*Wallet, tranches []*Tranche) []Allocation {
	return c.ApplyCap(tranches, c.inner.Allocate(wallets, tranches))
}

// ApplyCap returns a capped copy of allocations. Records for tranches missing
// from the list pass through unchanged.
func (c *CapStrategy) ApplyCap(tranches []*Tranche, allocations []Allocation) []Allocation {
	if len(allocations) == 0 {
		return allocations
	}

	out := make([]Allocation, len(allocations))
	copy(out, allocations)

	investors := make(map[string][]int)
	for i, a := range out {
		investors[a.Tranche] = append(investors[a.Tranche], i)
	}

	seen := make(map[string]struct{}, len(tranches))
	for _, t := range tranches {
		if _, dup := seen[t.ID()]; dup {
			continue
		}
		seen[t.ID()] = struct{}{}

		records := investors[t.ID()]
		if len(records) == 0 {
			continue
		}

		caps := t.Available().AllocateTo(len(records))
		for j, i := range records {
			if out[i].Amount.GreaterThan(caps[j]) {
				out[i].Amount = caps[j]
			}
		}
	}

	return out
}
