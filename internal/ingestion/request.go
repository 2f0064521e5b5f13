package ingestion

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/money"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRequest marks requests that can never succeed; the worker acks
// them and answers with an error report instead of retrying.
var ErrMalformedRequest = errors.New("malformed allocation request")

// --- JSON wire format ---
// Field names use snake_case to match upstream producers. Amounts are
// decimal pound strings ("100.00"); percentages are fractions ("0.75").

type requestJSON struct {
	RequestID string        `json:"request_id"`
	Strategy  string        `json:"strategy"`
	ApplyCap  *bool         `json:"apply_cap"`
	MaxRounds int           `json:"max_rounds"`
	Wallets   []walletJSON  `json:"wallets"`
	Tranches  []trancheJSON `json:"tranches"`
}

type walletJSON struct {
	ID         string                 `json:"id"`
	Balance    money.Money            `json:"balance"`
	Tranches   []string               `json:"tranches"`
	Percentage *allocation.Percentage `json:"percentage"`
}

type trancheJSON struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Amount     money.Money            `json:"amount"`
	Percentage *allocation.Percentage `json:"percentage"`
}

// Request is a validated allocation request. Empty Strategy, nil ApplyCap
// and zero MaxRounds mean "use the configured default".
type Request struct {
	RequestID string
	Strategy  string
	ApplyCap  *bool
	MaxRounds int
	Wallets   []*allocation.Wallet
	Tranches  []*allocation.Tranche
}

// ParseRequest decodes and validates a JSON allocation request. A wallet
// with neither tranches nor percentage is a simple wallet; a tranche without
// name and percentage is a simple tranche.
func ParseRequest(data []byte) (*Request, error) {
	var j requestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if j.MaxRounds < 0 {
		return nil, fmt.Errorf("%w: max_rounds must not be negative", ErrMalformedRequest)
	}

	req := &Request{
		RequestID: j.RequestID,
		Strategy:  j.Strategy,
		ApplyCap:  j.ApplyCap,
		MaxRounds: j.MaxRounds,
		Wallets:   make([]*allocation.Wallet, 0, len(j.Wallets)),
		Tranches:  make([]*allocation.Tranche, 0, len(j.Tranches)),
	}

	for i, w := range j.Wallets {
		wallet, err := w.build()
		if err != nil {
			return nil, fmt.Errorf("%w: wallets[%d]: %v", ErrMalformedRequest, i, err)
		}
		req.Wallets = append(req.Wallets, wallet)
	}

	for i, t := range j.Tranches {
		tranche, err := t.build()
		if err != nil {
			return nil, fmt.Errorf("%w: tranches[%d]: %v", ErrMalformedRequest, i, err)
		}
		req.Tranches = append(req.Tranches, tranche)
	}

	return req, nil
}

func (w walletJSON) build() (*allocation.Wallet, error) {
	if w.Tranches == nil && w.Percentage == nil {
		return allocation.NewSimpleWallet(w.ID, w.Balance)
	}
	if w.Percentage == nil {
		return nil, fmt.Errorf("wallet %s: percentage is required with tranches", w.ID)
	}
	return allocation.NewWallet(w.ID, w.Balance, w.Tranches, *w.Percentage)
}

func (t trancheJSON) build() (*allocation.Tranche, error) {
	if t.Name == "" && t.Percentage == nil {
		return allocation.NewSimpleTranche(t.ID, t.Amount)
	}
	if t.Percentage == nil {
		return nil, fmt.Errorf("tranche %s: percentage is required with name", t.ID)
	}
	name := t.Name
	if name == "" {
		name = t.ID
	}
	return allocation.NewTranche(t.ID, name, t.Amount, *t.Percentage)
}
