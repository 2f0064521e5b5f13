package testutil

// Input fixtures in the CSV layout read by the ingestion package. Amounts are
// in pounds; wallet tranche names are dash-separated.
const (
	WalletsCSV = `id,amount,percentage,tranches
w1,1000000,0.75,A
w2,1000000,0.75,A
w3,200000,0.75,A
w4,3000,0.75,A
w5,1000,0.75,A
`

	TranchesCSV = `id,amount,name,percentage
t1,1000000,A,0.75
t2,200000,A,0.75
t3,500,A,0.75
`

	// MixedWalletsCSV exercises eligibility filtering by name and risk.
	MixedWalletsCSV = `id,amount,percentage,tranches
w1,100,0.70,B
w2,100,0.70,A-C
w3,50.25,0.60,A
`

	MixedTranchesCSV = `id,amount,name,percentage
t1,100,B,0.65
t2,100,A,0.70
t3,0,A,0.60
t4,100,A,0.75
t5,100,C,0.60
`
)
