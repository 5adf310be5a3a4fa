package ports

import "context"

// IdempotencyStore remembers the result of a loan request under its
// Idempotency-Key so a retried request replays it instead of running twice.
type IdempotencyStore interface {
	// Reserve claims key for a request about to run. When the key is already
	// taken it returns false with the stored result, which is nil while the
	// first request is still running.
	Reserve(ctx context.Context, key string) (bool, *LoanView, error)
	// Remember stores the result of a reserved request under key.
	Remember(ctx context.Context, key string, view LoanView) error
	// Release frees a reservation whose request failed, so it can be retried.
	Release(ctx context.Context, key string) error
}
