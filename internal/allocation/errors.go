package allocation

import "errors"

// Domain errors. Constructors and Invest wrap these with the offending ids.
var (
	ErrEmptyID                 = errors.New("id can not be empty")
	ErrNegativeBalance         = errors.New("wallet balance can not be negative")
	ErrNegativeAvailableAmount = errors.New("tranche available amount can not be negative")
	ErrNegativeInvestment      = errors.New("investment amount can not be negative")
	ErrNotEligible             = errors.New("wallet can not invest in tranche")
	ErrMalformedAllocation     = errors.New("malformed allocation")
)
