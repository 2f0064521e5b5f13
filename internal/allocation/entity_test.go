package allocation_test

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/money"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet_Rejects(t *testing.T) {
	_, err := allocation.NewWallet("", money.New(1), nil, allocation.Percentage75)
	assert.ErrorIs(t, err, allocation.ErrEmptyID)

	_, err = allocation.NewWallet("w1", money.New(-1), nil, allocation.Percentage75)
	assert.ErrorIs(t, err, allocation.ErrNegativeBalance)
}

func TestNewTranche_Rejects(t *testing.T) {
	_, err := allocation.NewTranche("", "A", money.New(1), allocation.Percentage75)
	assert.ErrorIs(t, err, allocation.ErrEmptyID)

	_, err = allocation.NewTranche("t1", "A", money.New(-1), allocation.Percentage75)
	assert.ErrorIs(t, err, allocation.ErrNegativeAvailableAmount)
}

func TestSimpleConstructors(t *testing.T) {
	w := simpleWallet(t, "w1", 100)
	assert.True(t, w.AcceptsAnyName())
	assert.Equal(t, allocation.MaxPercentage, w.Percentage())

	tr := simpleTranche(t, "t1", 100)
	assert.Equal(t, "t1", tr.Name())
	assert.Equal(t, allocation.MinPercentage, tr.Percentage())

	assert.True(t, w.CanInvestIn(tr))
	assert.True(t, w.CanInvestIn(tranche(t, "t2", "anything", 1, allocation.Percentage75)))
}

func TestCanInvestIn(t *testing.T) {
	w := wallet(t, "w1", 100, groupA(), allocation.Percentage70)

	assert.True(t, w.CanInvestIn(tranche(t, "t1", "A", 100, allocation.Percentage65)))
	assert.True(t, w.CanInvestIn(tranche(t, "t2", "A", 100, allocation.Percentage70)), "equal threshold is allowed")
	assert.False(t, w.CanInvestIn(tranche(t, "t3", "A", 100, allocation.Percentage75)), "threshold above the wallet's")
	assert.False(t, w.CanInvestIn(tranche(t, "t4", "B", 100, allocation.Percentage60)), "name not eligible")
	assert.False(t, w.CanInvestIn(tranche(t, "t5", "A", 0, allocation.Percentage60)), "funded")

	empty := wallet(t, "w2", 0, groupA(), allocation.Percentage75)
	assert.False(t, empty.CanInvestIn(tranche(t, "t6", "A", 100, allocation.Percentage60)), "empty wallet")
}

func TestInvest(t *testing.T) {
	w := wallet(t, "w1", 100, groupA(), allocation.Percentage75)
	tr := tranche(t, "t1", "A", 80, allocation.Percentage75)

	require.NoError(t, w.Invest(tr, money.New(30)))
	assert.Equal(t, money.New(70), w.Balance())
	assert.Equal(t, money.New(50), tr.Available())

	require.NoError(t, w.Invest(tr, money.Zero))
	assert.Equal(t, money.New(70), w.Balance())
}

func TestInvest_FailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		avail   int64
		tname   string
		amount  int64
		wantErr error
	}{
		{"negative amount", 100, 100, "A", -1, allocation.ErrNegativeInvestment},
		{"not eligible", 100, 100, "B", 10, allocation.ErrNotEligible},
		{"exceeds balance", 10, 100, "A", 11, allocation.ErrNegativeBalance},
		{"exceeds available", 100, 10, "A", 11, allocation.ErrNegativeAvailableAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := wallet(t, "w1", tt.balance, groupA(), allocation.Percentage75)
			tr := tranche(t, "t1", tt.tname, tt.avail, allocation.Percentage75)

			err := w.Invest(tr, money.New(tt.amount))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, money.New(tt.balance), w.Balance())
			assert.Equal(t, money.New(tt.avail), tr.Available())
		})
	}
}

func TestTrancheInvest(t *testing.T) {
	tr := simpleTranche(t, "t1", 10)

	assert.ErrorIs(t, tr.Invest(money.New(-1)), allocation.ErrNegativeInvestment)
	assert.ErrorIs(t, tr.Invest(money.New(11)), allocation.ErrNegativeAvailableAmount)
	require.NoError(t, tr.Invest(money.New(10)))
	assert.True(t, tr.IsFunded())
}

func TestEligibleTrancheNames(t *testing.T) {
	w := wallet(t, "w1", 1, []string{"C", "A", "B", "A"}, allocation.Percentage60)
	assert.Equal(t, []string{"A", "B", "C"}, w.EligibleTrancheNames())
}

func TestPercentage(t *testing.T) {
	for _, in := range []string{"0.75", "75", "75%", " 0.75 "} {
		p, err := allocation.ParsePercentage(in)
		require.NoError(t, err, in)
		assert.Equal(t, allocation.Percentage75, p, in)
	}

	_, err := allocation.ParsePercentage("0.80")
	assert.Error(t, err)
	_, err = allocation.ParsePercentage("abc")
	assert.Error(t, err)

	assert.True(t, allocation.Percentage70.IsGreaterThan(allocation.Percentage65))
	assert.False(t, allocation.Percentage70.IsGreaterThan(allocation.Percentage70))
	assert.Equal(t, "0.60", allocation.Percentage60.Value())
	assert.Equal(t, "65%", allocation.Percentage65.String())
	assert.Equal(t, []allocation.Percentage{60, 65, 70, 75}, allocation.Percentages())

	var p allocation.Percentage
	require.NoError(t, p.UnmarshalText([]byte("0.70")))
	assert.Equal(t, allocation.Percentage70, p)
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "0.70", string(text))
}
