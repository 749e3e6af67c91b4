package usage

import (
	"context"
	"time"
)

// Repository is the backing store for usage counters. It is the only mutable
// shared state in the core; all writes go through the ledger service, which
// serializes them per key.
type Repository interface {
	// Get returns the live counter for the key, or ErrNotFound if none exists
	Get(ctx context.Context, key CounterKey) (*Counter, error)

	// Upsert writes the counter atomically; readers never observe a partial
	// counter state
	Upsert(ctx context.Context, c *Counter) error

	// Archive moves a superseded counter to the append-only history
	Archive(ctx context.Context, c *Counter) error

	// ListArchived returns archived counters for the key whose periods
	// overlap [from, to), newest first
	ListArchived(ctx context.Context, key CounterKey, from, to time.Time) ([]*Counter, error)

	// DeleteByCustomer drops live counters for the customer (all resources
	// when resourceID is empty); archived history is retained
	DeleteByCustomer(ctx context.Context, customerID, resourceID string) error

	// UpsertWithIdempotencyKey records the idempotency key and writes the
	// counter as one atomic operation. A false return means the key was
	// already recorded and the counter was left untouched; the key is never
	// recorded unless the counter write succeeds.
	UpsertWithIdempotencyKey(ctx context.Context, c *Counter, key string, seenAt time.Time) (bool, error)

	// PruneIdempotencyKeys drops idempotency keys seen before the cutoff
	PruneIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
}
