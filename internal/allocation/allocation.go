package allocation

import "TrancheAllocator/internal/money"

// Allocation is one proposed movement of money from a wallet into a tranche.
type Allocation struct {
	Wallet  string      `json:"wallet"`
	Tranche string      `json:"tranche"`
	Amount  money.Money `json:"amount"`
}
