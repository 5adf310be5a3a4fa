package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/univlib/lending-system/internal/core/domain"
)

// AddItemInput carries a new catalog entry. Only the fields relevant to Kind are used.
type AddItemInput struct {
	ID       int
	Kind     string
	Title    string
	Author   string
	ISBN     string
	Genre    string
	Composer string
	Director string
	Narrator string
}

// RegisterPatronInput carries a new patron. Course and Year only apply to students,
// GuardianID only to children.
type RegisterPatronInput struct {
	ID         int
	Name       string
	Email      string
	Role       string
	Course     string
	Year       int
	GuardianID int
}

// LoanInput identifies a loan operation by borrower and item.
type LoanInput struct {
	PatronID int
	ItemID   int
	// IdempotencyKey, when set, makes a retried borrow or return replay the first result.
	IdempotencyKey string
}

// PatronView is a read-only snapshot of a patron.
type PatronView struct {
	ID         int
	Name       string
	Email      string
	Role       domain.Role
	GuardianID int
	Dependents []int
	Course     string
	Year       int
	OpenLoans  int
	Summary    string
}

// LoanView is a read-only snapshot of a loan taken under the engine lock.
type LoanView struct {
	ID          int
	ItemID      int
	ItemTitle   string
	ItemKind    domain.ItemKind
	PatronID    int
	PatronName  string
	PatronRole  domain.Role
	StartDate   time.Time
	DueDate     time.Time
	ReturnDate  time.Time
	RenewCount  int
	MaxRenewals int
	Reminder    string
	Overdue     bool
	AccruedFine decimal.Decimal
	Summary     string
}

// LoanResult is returned by the loan operations.
type LoanResult struct {
	Loan LoanView
	// AlreadyExisted is true when the Idempotency-Key matched an earlier request.
	AlreadyExisted bool
}

// LendingService is the use-case surface the transport layer talks to. Every
// value it returns is a snapshot; callers never hold engine-owned pointers.
type LendingService interface {
	ListItems(ctx context.Context, kind string) ([]domain.Item, error)
	GetItem(ctx context.Context, id int) (domain.Item, error)
	AddItem(ctx context.Context, input AddItemInput) (domain.Item, error)
	RemoveItem(ctx context.Context, id int) error

	GetPatron(ctx context.Context, id int) (*PatronView, error)
	PatronRole(ctx context.Context, id int) (domain.Role, error)
	RegisterPatron(ctx context.Context, input RegisterPatronInput) (*PatronView, error)
	RemovePatron(ctx context.Context, id int) error
	AssignGuardian(ctx context.Context, adultID, childID int) error
	PatronLoans(ctx context.Context, id int) ([]LoanView, error)
	PatronHistory(ctx context.Context, id int) ([]domain.LoanEvent, error)

	Borrow(ctx context.Context, input LoanInput) (*LoanResult, error)
	Return(ctx context.Context, input LoanInput) (*LoanResult, error)
	Renew(ctx context.Context, input LoanInput) (*LoanResult, error)

	Ledger(ctx context.Context) []LoanView
	OverdueLoans(ctx context.Context) []LoanView
	LoanReport(ctx context.Context) string
	CheckConsistency(ctx context.Context) error
}
