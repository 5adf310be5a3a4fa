package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Loan is one borrowing transaction. The same *Loan is referenced from the
// engine's ledger and from the borrower's open-loan list.
//
// A loan never touches its item's availability or the ledger: closing it only
// records the return date.
type Loan struct {
	ID         int
	Patron     *Patron
	Item       *Item
	Policy     Policy
	StartDate  time.Time
	DueDate    time.Time
	ReturnDate time.Time // zero while open
	RenewCount int
}

// NewLoan opens a loan starting on the calendar date of start.
func NewLoan(id int, patron *Patron, item *Item, policy Policy, start time.Time) *Loan {
	startDate := DateOf(start)
	return &Loan{
		ID:        id,
		Patron:    patron,
		Item:      item,
		Policy:    policy,
		StartDate: startDate,
		DueDate:   startDate.AddDate(0, 0, policy.LoanPeriodDays()),
	}
}

func (l *Loan) IsOpen() bool { return l.ReturnDate.IsZero() }

// IsOverdue reports whether the due date lies strictly before asOf.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	return l.DueDate.Before(DateOf(asOf))
}

// Renew extends the due date by one full period from the current due date.
// It fails, leaving the loan untouched, once policy.MaxRenewals is reached.
func (l *Loan) Renew(policy Policy) bool {
	if l.RenewCount >= policy.MaxRenewals() {
		return false
	}
	l.DueDate = l.DueDate.AddDate(0, 0, policy.LoanPeriodDays())
	l.RenewCount++
	return true
}

// Close records the return date.
func (l *Loan) Close(asOf time.Time) {
	l.ReturnDate = DateOf(asOf)
}

// DaysOverdue is zero for loans that are not overdue on asOf.
func (l *Loan) DaysOverdue(asOf time.Time) int {
	d := daysBetween(l.DueDate, DateOf(asOf))
	if d < 0 {
		return 0
	}
	return d
}

// AccruedFine is the fine that would be owed on asOf. It is reported, never charged.
func (l *Loan) AccruedFine(asOf time.Time) decimal.Decimal {
	return l.Policy.DailyFine().Mul(decimal.NewFromInt(int64(l.DaysOverdue(asOf))))
}

func (l *Loan) Describe() string {
	kind, title := "", ""
	if l.Item != nil {
		kind, title = l.Item.Kind.Name(), l.Item.Title
	}
	borrower, role := "", ""
	if l.Patron != nil {
		borrower, role = l.Patron.Name, l.Patron.Role.Name()
	}
	return fmt.Sprintf("Loan #%d | Type: %s | Title: %s | Borrower: %s [%s] | Due: %s | Renewals: %d",
		l.ID, kind, title, borrower, role, l.DueDate.Format(dateLayout), l.RenewCount)
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
