package allocation

import (
	"fmt"
	"math/big"
)

// ProportionalStrategy splits each wallet's whole balance across its eligible
// tranches, weighted by their available amounts.
type ProportionalStrategy struct{}

func (ProportionalStrategy) Allocate(wallets []*Wallet, tranches []*Tranche) []Allocation {
	var out []Allocation

	for _, w := range wallets {
		eligible := eligibleTranches(w, tranches)
		if len(eligible) == 0 {
			continue
		}

		total := Sum.OfTranches(eligible)
		weights := make([]*big.Rat, len(eligible))
		for i, t := range eligible {
			ratio, err := t.Available().RatioOf(total)
			if err != nil {
				panic(fmt.Sprintf("FATAL: weight of tranche %s for wallet %s: %v", t.ID(), w.ID(), err))
			}
			weights[i] = ratio
		}

		parts, err := w.Balance().Allocate(weights)
		if err != nil {
			panic(fmt.Sprintf("FATAL: apportion wallet %s balance %s: %v", w.ID(), w.Balance(), err))
		}

		for i, t := range eligible {
			out = append(out, Allocation{Wallet: w.ID(), Tranche: t.ID(), Amount: parts[i]})
		}
	}

	return out
}
