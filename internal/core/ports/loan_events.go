package ports

import (
	"context"

	"github.com/univlib/lending-system/internal/core/domain"
)

// LoanEventSink receives loan events from the engine after each successful
// mutation. Implementations must not call back into the engine.
type LoanEventSink interface {
	Enqueue(event domain.LoanEvent)
}

// LoanJournal persists or publishes a single loan event. Journals are
// best-effort; a failure is logged and never rolls back the loan.
type LoanJournal interface {
	Name() string
	Record(ctx context.Context, event domain.LoanEvent) error
}

// LoanIDSource reports the highest loan id a journal has seen, so a restarted
// process can seed its issuer past it.
type LoanIDSource interface {
	MaxLoanID(ctx context.Context) (int, error)
}

// LoanHistory answers the recorded loan events of a patron, oldest first.
type LoanHistory interface {
	EventsForPatron(ctx context.Context, patronID int) ([]domain.LoanEvent, error)
}
