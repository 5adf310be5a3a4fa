package domain

import (
	"fmt"
	"time"
)

// Reminder is the due-date projection of a loan on a given day.
// DaysLeft is negative once the loan is overdue.
type Reminder struct {
	DaysLeft int
}

// DueReminder computes the reminder for a due date as seen on today.
// It has no side effects and is independent of Loan.IsOverdue.
func DueReminder(due, today time.Time) Reminder {
	return Reminder{DaysLeft: daysBetween(today, due)}
}

func (r Reminder) DueToday() bool { return r.DaysLeft == 0 }
func (r Reminder) Overdue() bool  { return r.DaysLeft < 0 }

func (r Reminder) String() string {
	switch {
	case r.DaysLeft > 0:
		return fmt.Sprintf("%d day(s) left", r.DaysLeft)
	case r.DaysLeft == 0:
		return "due today"
	default:
		return fmt.Sprintf("overdue by %d day(s)", -r.DaysLeft)
	}
}
