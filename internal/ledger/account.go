package ledger

import "fmt"

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeWallet AccountScope = iota
	AccountScopeTranche
	AccountScopeExternal
)

// External boundary accounts.
const (
	// ExternalFunding is credited when wallet balances enter a run.
	ExternalFunding = "funding"
)

// AccountKey is the in-memory key for balance tracking. EntityID is the
// wallet or tranche id, or the boundary name for external accounts.
type AccountKey struct {
	Scope    AccountScope
	EntityID string
}

// WalletAccount holds a wallet's uninvested cash.
func WalletAccount(walletID string) AccountKey {
	return AccountKey{Scope: AccountScopeWallet, EntityID: walletID}
}

// TrancheAccount holds the money invested into a tranche during a run.
func TrancheAccount(trancheID string) AccountKey {
	return AccountKey{Scope: AccountScopeTranche, EntityID: trancheID}
}

// ExternalAccount creates a key for external boundary accounts
func ExternalAccount(name string) AccountKey {
	return AccountKey{Scope: AccountScopeExternal, EntityID: name}
}

// AccountPath returns the string representation for hashing/logging
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeWallet:
		return fmt.Sprintf("wallet:%s", k.EntityID)
	case AccountScopeTranche:
		return fmt.Sprintf("tranche:%s", k.EntityID)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s", k.EntityID)
	}
	return "unknown"
}
