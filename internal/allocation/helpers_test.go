package allocation_test

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/money"
	"testing"

	"github.com/stretchr/testify/require"
)

func wallet(t *testing.T, id string, balance int64, names []string, p allocation.Percentage) *allocation.Wallet {
	t.Helper()
	w, err := allocation.NewWallet(id, money.New(balance), names, p)
	require.NoError(t, err)
	return w
}

func tranche(t *testing.T, id, name string, available int64, p allocation.Percentage) *allocation.Tranche {
	t.Helper()
	tr, err := allocation.NewTranche(id, name, money.New(available), p)
	require.NoError(t, err)
	return tr
}

func simpleWallet(t *testing.T, id string, balance int64) *allocation.Wallet {
	t.Helper()
	w, err := allocation.NewSimpleWallet(id, money.New(balance))
	require.NoError(t, err)
	return w
}

func simpleTranche(t *testing.T, id string, available int64) *allocation.Tranche {
	t.Helper()
	tr, err := allocation.NewSimpleTranche(id, money.New(available))
	require.NoError(t, err)
	return tr
}

func record(w, tr string, amount int64) allocation.Allocation {
	return allocation.Allocation{Wallet: w, Tranche: tr, Amount: money.New(amount)}
}

func groupA() []string { return []string{"A"} }
