package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/univlib/lending-system/internal/core/ports"
)

const (
	idempotencyTTL = 24 * time.Hour
	// pendingTTL bounds a reservation whose owner died before finishing.
	pendingTTL = 30 * time.Second
	pending    = "pending"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IdempotencyStore keeps the result of loan requests keyed by their
// Idempotency-Key. Key format: idem:<operation>:<patron id>:<client key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a store wrapping client. A ttl <= 0 keeps
// results for 24 hours.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// Reserve claims key with SETNX. When another request holds it, the stored
// view is returned, or nil while that request is still pending.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, *ports.LoanView, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pending, pendingTTL).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return true, nil, nil
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; report it as still pending
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	view, err := decodeView(raw)
	return false, view, err
}

func decodeView(raw []byte) (*ports.LoanView, error) {
	if string(raw) == pending {
		return nil, nil
	}
	var view ports.LoanView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &view, nil
}

// Remember overwrites the reservation with view for the full TTL.
func (s *IdempotencyStore) Remember(ctx context.Context, key string, view ports.LoanView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	return nil
}

// Release deletes a reservation.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(key string) string {
	return "idem:" + key
}
