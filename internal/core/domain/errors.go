package domain

import (
	"errors"
	"fmt"
)

// Taxonomy roots. Every rejection returned by the engine wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("not available")
	ErrPolicyViolation = errors.New("policy violation")
)

var (
	ErrItemNotFound   = fmt.Errorf("item %w", ErrNotFound)
	ErrPatronNotFound = fmt.Errorf("patron %w", ErrNotFound)
	ErrLoanNotFound   = fmt.Errorf("loan %w", ErrNotFound)

	ErrItemUnavailable = fmt.Errorf("item %w", ErrUnavailable)

	ErrLoanCapReached      = fmt.Errorf("%w: borrowing limit reached", ErrPolicyViolation)
	ErrRenewalLimitReached = fmt.Errorf("%w: renewal limit reached", ErrPolicyViolation)
	ErrGuardianRequired    = fmt.Errorf("%w: cannot borrow without a guardian", ErrPolicyViolation)
	ErrIdempotencyMismatch = fmt.Errorf("%w: idempotency key already used for another item", ErrPolicyViolation)
)

var (
	ErrDuplicateItem   = errors.New("item already exists")
	ErrDuplicatePatron = errors.New("patron already exists")
	ErrItemOnLoan      = errors.New("item is currently on loan")
	ErrPatronHasLoans  = errors.New("patron has open loans")
	ErrInvalidPolicy   = errors.New("invalid policy")
	ErrInvalidGuardian = errors.New("invalid guardian assignment")
	ErrUnknownRole     = errors.New("unknown patron role")
	ErrUnknownItemKind = errors.New("unknown item kind")
	ErrRequestInFlight = errors.New("a request with this idempotency key is still in progress")
)
