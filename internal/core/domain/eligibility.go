package domain

import (
	"fmt"
	"strings"
)

// Role is the patron class a borrowing rule set is attached to.
type Role string

const (
	RoleAdult     Role = "adult"
	RoleChild     Role = "child"
	RoleStudent   Role = "student"
	RoleLibrarian Role = "librarian"
)

// loanTerm replaces the period and renewal limit of the base policy.
type loanTerm struct {
	periodDays  int
	maxRenewals int
}

// roleRule carries a role's whole borrowing contract as data.
type roleRule struct {
	name             string
	loanCap          int // 0 means uncapped
	term             *loanTerm
	requiresGuardian bool
}

var roleRules = map[Role]roleRule{
	RoleAdult:     {name: "Adult", loanCap: 10},
	RoleChild:     {name: "Child", loanCap: 3, term: &loanTerm{periodDays: 7, maxRenewals: 0}, requiresGuardian: true},
	RoleStudent:   {name: "Student", loanCap: 5, term: &loanTerm{periodDays: 21, maxRenewals: 1}},
	RoleLibrarian: {name: "Librarian"},
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRules[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) Name() string {
	if rule, ok := roleRules[r]; ok {
		return rule.name
	}
	return string(r)
}

// LoanCap is the maximum number of open loans for the role; 0 means uncapped.
func (r Role) LoanCap() int {
	return roleRules[r].loanCap
}

// EvaluateEligibility decides whether a patron of role, currently holding
// openLoans loans, may open another one. A nil result allows the borrow.
//
// Rules, checked in order:
//
//	ERROR: unknown role
//	ERROR: guardian required (child) when none is assigned
//	ERROR: borrowing limit reached when openLoans >= cap
func EvaluateEligibility(role Role, openLoans int, guardianPresent bool) error {
	rule, ok := roleRules[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if rule.requiresGuardian && !guardianPresent {
		return ErrGuardianRequired
	}
	if rule.loanCap > 0 && openLoans >= rule.loanCap {
		return fmt.Errorf("%w (%d items max)", ErrLoanCapReached, rule.loanCap)
	}
	return nil
}

// EffectivePolicy derives the policy a role borrows under from the base
// policy. Overridden terms never change the base fine rate.
func EffectivePolicy(role Role, base Policy) Policy {
	rule, ok := roleRules[role]
	if !ok || rule.term == nil {
		return base
	}
	return base.WithTerm(rule.term.periodDays, rule.term.maxRenewals)
}
