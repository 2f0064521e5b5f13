package allocation

// NaiveStrategy moves one penny at a time, round robin, over private copies of
// the inputs. It is slow and exists as a reference for the other strategies.
type NaiveStrategy struct{}

type pairKey struct {
	wallet, tranche string
}

func (NaiveStrategy) Allocate(wallets []*Wallet, tranches []*Tranche) []Allocation {
	ws := make([]*Wallet, len(wallets))
	for i, w := range wallets {
		ws[i] = w.clone()
	}
	ts := make([]*Tranche, len(tranches))
	for i, t := range tranches {
		ts[i] = t.clone()
	}

	var out []Allocation
	index := make(map[pairKey]int)

	for {
		active := notEmptyWallets(ws)
		open := notFundedTranches(ts)
		if len(active) == 0 || len(open) == 0 {
			break
		}

		moved := false
		for _, w := range active {
			for _, t := range open {
				if !w.CanInvestIn(t) {
					continue
				}
				unit, err := w.pickOneUnit()
				if err != nil {
					continue
				}
				if err := t.acceptOneUnit(unit); err != nil {
					w.balance = w.balance.Add(unit)
					continue
				}
				moved = true

				key := pairKey{w.ID(), t.ID()}
				if i, ok := index[key]; ok {
					out[i].Amount = out[i].Amount.Add(unit)
					continue
				}
				index[key] = len(out)
				out = append(out, Allocation{Wallet: w.ID(), Tranche: t.ID(), Amount: unit})
			}
		}

		// No eligible pair is left even though both sides still hold money.
		if !moved {
			break
		}
	}

	return out
}

func notEmptyWallets(wallets []*Wallet) []*Wallet {
	var out []*Wallet
	for _, w := range wallets {
		if !w.IsEmpty() {
			out = append(out, w)
		}
	}
	return out
}

func notFundedTranches(tranches []*Tranche) []*Tranche {
	var out []*Tranche
	for _, t := range tranches {
		if !t.IsFunded() {
			out = append(out, t)
		}
	}
	return out
}
