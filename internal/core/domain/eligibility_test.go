package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univlib/lending-system/internal/core/domain"
)

func Test_EvaluateEligibility(t *testing.T) {
	testCases := []struct {
		name            string
		role            domain.Role
		openLoans       int
		guardianPresent bool
		expectedErr     error
	}{
		{name: "adult below cap", role: domain.RoleAdult, openLoans: 9},
		{name: "adult at cap", role: domain.RoleAdult, openLoans: 10, expectedErr: domain.ErrLoanCapReached},
		{name: "student below cap", role: domain.RoleStudent, openLoans: 4},
		{name: "student at cap", role: domain.RoleStudent, openLoans: 5, expectedErr: domain.ErrLoanCapReached},
		{name: "child with guardian below cap", role: domain.RoleChild, openLoans: 2, guardianPresent: true},
		{name: "child with guardian at cap", role: domain.RoleChild, openLoans: 3, guardianPresent: true, expectedErr: domain.ErrLoanCapReached},
		{name: "child without guardian and no loans", role: domain.RoleChild, expectedErr: domain.ErrGuardianRequired},
		{name: "child without guardian at cap reports guardian first", role: domain.RoleChild, openLoans: 3, expectedErr: domain.ErrGuardianRequired},
		{name: "librarian is uncapped", role: domain.RoleLibrarian, openLoans: 500},
		{name: "unknown role", role: domain.Role("visitor"), expectedErr: domain.ErrUnknownRole},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := domain.EvaluateEligibility(tc.role, tc.openLoans, tc.guardianPresent)

			// assert
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_EvaluateEligibility_RejectionsArePolicyViolations(t *testing.T) {
	err := domain.EvaluateEligibility(domain.RoleStudent, 5, false)

	assert.True(t, errors.Is(err, domain.ErrPolicyViolation))
	assert.Contains(t, err.Error(), "5 items max")
}

func Test_EffectivePolicy(t *testing.T) {
	// arrange
	base := domain.MustPolicy(14, 2, decimal.RequireFromString("0.75"))

	testCases := []struct {
		role            domain.Role
		expectedPeriod  int
		expectedRenewal int
	}{
		{domain.RoleAdult, 14, 2},
		{domain.RoleLibrarian, 14, 2},
		{domain.RoleStudent, 21, 1},
		{domain.RoleChild, 7, 0},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			// act
			p := domain.EffectivePolicy(tc.role, base)

			// assert
			assert.Equal(t, tc.expectedPeriod, p.LoanPeriodDays())
			assert.Equal(t, tc.expectedRenewal, p.MaxRenewals())
			assert.True(t, p.DailyFine().Equal(base.DailyFine()), "fine rate must come from the base policy")
		})
	}

	assert.Equal(t, 14, base.LoanPeriodDays(), "base policy must not be modified")
}

func Test_ParseRole(t *testing.T) {
	r, err := domain.ParseRole(" Student ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, r)
	assert.Equal(t, "Student", r.Name())
	assert.Equal(t, 5, r.LoanCap())

	_, err = domain.ParseRole("guest")
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func Test_NewPolicy_RejectsNegativeTerms(t *testing.T) {
	_, err := domain.NewPolicy(-1, 0, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)

	_, err = domain.NewPolicy(14, -2, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)

	_, err = domain.NewPolicy(14, 2, decimal.NewFromFloat(-0.5))
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)

	p, err := domain.NewPolicy(0, 0, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "0 days, 0 renewals, 0.00/day", p.String())
}
