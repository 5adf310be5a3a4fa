package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy describes the terms a loan is opened under. It is a value: roles
// derive new policies from a base one, they never modify it.
type Policy struct {
	loanPeriodDays int
	maxRenewals    int
	dailyFine      decimal.Decimal
}

// NewPolicy validates that every term is non-negative.
func NewPolicy(loanPeriodDays, maxRenewals int, dailyFine decimal.Decimal) (Policy, error) {
	if loanPeriodDays < 0 || maxRenewals < 0 || dailyFine.IsNegative() {
		return Policy{}, fmt.Errorf("%w: period=%d renewals=%d fine=%s",
			ErrInvalidPolicy, loanPeriodDays, maxRenewals, dailyFine)
	}
	return Policy{
		loanPeriodDays: loanPeriodDays,
		maxRenewals:    maxRenewals,
		dailyFine:      dailyFine,
	}, nil
}

// MustPolicy is NewPolicy for constants known to be valid.
func MustPolicy(loanPeriodDays, maxRenewals int, dailyFine decimal.Decimal) Policy {
	p, err := NewPolicy(loanPeriodDays, maxRenewals, dailyFine)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultPolicy is the library-wide base policy: 14 days, 2 renewals, 0.50 per day.
func DefaultPolicy() Policy {
	return MustPolicy(14, 2, decimal.RequireFromString("0.50"))
}

func (p Policy) LoanPeriodDays() int        { return p.loanPeriodDays }
func (p Policy) MaxRenewals() int           { return p.maxRenewals }
func (p Policy) DailyFine() decimal.Decimal { return p.dailyFine }

// WithTerm returns a copy with a different period and renewal limit. The fine
// rate always stays the one of the receiver.
func (p Policy) WithTerm(loanPeriodDays, maxRenewals int) Policy {
	return Policy{
		loanPeriodDays: loanPeriodDays,
		maxRenewals:    maxRenewals,
		dailyFine:      p.dailyFine,
	}
}

func (p Policy) String() string {
	return fmt.Sprintf("%d days, %d renewals, %s/day", p.loanPeriodDays, p.maxRenewals, p.dailyFine.StringFixed(2))
}
