package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoanEventType names a loan lifecycle transition.
type LoanEventType string

const (
	LoanOpened  LoanEventType = "loan_opened"
	LoanRenewed LoanEventType = "loan_renewed"
	LoanClosed  LoanEventType = "loan_closed"
)

// LoanEvent is the record emitted after a successful loan transition.
type LoanEvent struct {
	ID         string        `json:"id" bson:"_id"`
	Type       LoanEventType `json:"type" bson:"type"`
	LoanID     int           `json:"loan_id" bson:"loan_id"`
	PatronID   int           `json:"patron_id" bson:"patron_id"`
	PatronRole Role          `json:"patron_role" bson:"patron_role"`
	ItemID     int           `json:"item_id" bson:"item_id"`
	DueDate    time.Time     `json:"due_date" bson:"due_date"`
	RenewCount int           `json:"renew_count" bson:"renew_count"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}

// NewLoanEvent snapshots loan at the moment of the transition.
func NewLoanEvent(t LoanEventType, loan *Loan, at time.Time) LoanEvent {
	return LoanEvent{
		ID:         uuid.NewString(),
		Type:       t,
		LoanID:     loan.ID,
		PatronID:   loan.Patron.ID,
		PatronRole: loan.Patron.Role,
		ItemID:     loan.Item.ID,
		DueDate:    loan.DueDate,
		RenewCount: loan.RenewCount,
		OccurredAt: at.UTC(),
	}
}
