package service

import (
	"slices"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

// The helpers below read engine state and must run under the Library lock.

func (s *LendingService) patronView(p *domain.Patron) *ports.PatronView {
	guardian, _ := s.lib.guardianOf(p.ID)
	return &ports.PatronView{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Role:       p.Role,
		GuardianID: p.GuardianID,
		Dependents: slices.Clone(p.Dependents),
		Course:     p.Course,
		Year:       p.Year,
		OpenLoans:  p.OpenLoanCount(),
		Summary:    p.Describe(guardian),
	}
}

func (s *LendingService) loanView(loan *domain.Loan) ports.LoanView {
	today := s.lib.now()
	v := ports.LoanView{
		ID:          loan.ID,
		ItemID:      loan.Item.ID,
		ItemTitle:   loan.Item.Title,
		ItemKind:    loan.Item.Kind,
		PatronID:    loan.Patron.ID,
		PatronName:  loan.Patron.Name,
		PatronRole:  loan.Patron.Role,
		StartDate:   loan.StartDate,
		DueDate:     loan.DueDate,
		ReturnDate:  loan.ReturnDate,
		RenewCount:  loan.RenewCount,
		MaxRenewals: loan.Policy.MaxRenewals(),
		Summary:     loan.Describe(),
	}
	if loan.IsOpen() {
		v.Reminder = domain.DueReminder(loan.DueDate, today).String()
		v.Overdue = loan.IsOverdue(today)
		v.AccruedFine = loan.AccruedFine(today)
	} else {
		v.AccruedFine = loan.AccruedFine(loan.ReturnDate)
	}
	return v
}

func (s *LendingService) loanViews(loans []*domain.Loan) []ports.LoanView {
	out := make([]ports.LoanView, 0, len(loans))
	for _, loan := range loans {
		out = append(out, s.loanView(loan))
	}
	return out
}
