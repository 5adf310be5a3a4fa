package domain

import (
	"fmt"
	"slices"
	"time"
)

// Patron is a registered borrower. It exclusively owns its open-loan list;
// the engine only reaches it through Borrow and Return.
type Patron struct {
	ID    int
	Name  string
	Email string
	Role  Role

	// GuardianID links a child to its adult guardian (0 = none). The guardian
	// is resolved through the registry, never held directly.
	GuardianID int
	// Dependents lists the ids of children an adult is guardian of.
	Dependents []int

	Course string // students only
	Year   int    // students only

	loans []*Loan
}

func NewPatron(id int, name, email string, role Role) *Patron {
	return &Patron{ID: id, Name: name, Email: email, Role: role}
}

func NewStudent(id int, name, email, course string, year int) *Patron {
	p := NewPatron(id, name, email, RoleStudent)
	p.Course = course
	p.Year = year
	return p
}

func (p *Patron) HasGuardian() bool { return p.GuardianID != 0 }

// OpenLoans returns a snapshot of the patron's open loans in borrow order.
func (p *Patron) OpenLoans() []*Loan {
	return slices.Clone(p.loans)
}

func (p *Patron) OpenLoanCount() int { return len(p.loans) }

// Borrow runs the role gate and, if it passes, opens a loan on item under the
// role's effective policy. On any failure nothing is modified.
func (p *Patron) Borrow(item *Item, base Policy, ids *IDIssuer, start time.Time) (*Loan, error) {
	if err := EvaluateEligibility(p.Role, len(p.loans), p.HasGuardian()); err != nil {
		return nil, err
	}
	if !item.IsAvailable() {
		return nil, fmt.Errorf("%w: %q", ErrItemUnavailable, item.Title)
	}

	item.SetAvailable(false)
	loan := NewLoan(ids.Next(), p, item, EffectivePolicy(p.Role, base), start)
	p.loans = append(p.loans, loan)
	return loan, nil
}

// Return closes the patron's open loan on item, makes the item available
// again and drops the loan from the patron's list.
func (p *Patron) Return(item *Item, asOf time.Time) (*Loan, error) {
	idx := p.loanIndex(item.ID)
	if idx < 0 {
		return nil, fmt.Errorf("%w for %q", ErrLoanNotFound, item.Title)
	}

	loan := p.loans[idx]
	loan.Close(asOf)
	item.SetAvailable(true)
	p.loans = slices.Delete(p.loans, idx, idx+1)
	return loan, nil
}

// LoanFor returns the open loan on itemID, if any.
func (p *Patron) LoanFor(itemID int) (*Loan, bool) {
	idx := p.loanIndex(itemID)
	if idx < 0 {
		return nil, false
	}
	return p.loans[idx], true
}

func (p *Patron) loanIndex(itemID int) int {
	return slices.IndexFunc(p.loans, func(l *Loan) bool { return l.Item.ID == itemID })
}

// LinkGuardian makes adult the guardian of child. It is pure bookkeeping: no
// loans or borrowing capacity move between the two. Relinking the same pair
// is a no-op; assigning a new guardian detaches the child from the old one,
// which the caller passes as previous (nil if none).
func LinkGuardian(adult, child, previous *Patron) error {
	if adult.Role != RoleAdult {
		return fmt.Errorf("%w: patron %d is not an adult", ErrInvalidGuardian, adult.ID)
	}
	if child.Role != RoleChild {
		return fmt.Errorf("%w: patron %d is not a child", ErrInvalidGuardian, child.ID)
	}
	if previous != nil && previous.ID != adult.ID {
		previous.removeDependent(child.ID)
	}
	child.GuardianID = adult.ID
	if !slices.Contains(adult.Dependents, child.ID) {
		adult.Dependents = append(adult.Dependents, child.ID)
	}
	return nil
}

func (p *Patron) removeDependent(childID int) {
	p.Dependents = slices.DeleteFunc(p.Dependents, func(id int) bool { return id == childID })
}

// Unlink drops any guardian relation between p and other, in both directions.
func (p *Patron) Unlink(other *Patron) {
	if p.GuardianID == other.ID {
		p.GuardianID = 0
	}
	p.removeDependent(other.ID)
}

// Describe renders a one-line summary. guardian is only used for children.
func (p *Patron) Describe(guardian *Patron) string {
	switch p.Role {
	case RoleAdult:
		return fmt.Sprintf("Adult: %s (%s), Dependants: %d", p.Name, p.Email, len(p.Dependents))
	case RoleChild:
		name := "None"
		if guardian != nil {
			name = guardian.Name
		}
		return fmt.Sprintf("Child: %s | Guardian: %s", p.Name, name)
	case RoleStudent:
		return fmt.Sprintf("Student: %s | Course: %s | Year: %d", p.Name, p.Course, p.Year)
	default:
		return fmt.Sprintf("%d - %s (%s) [%s]", p.ID, p.Name, p.Email, p.Role.Name())
	}
}
