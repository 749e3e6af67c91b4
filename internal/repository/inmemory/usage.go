package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flexprice/gatekeeper/internal/domain/usage"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// UsageRepository implements usage.Repository in memory. It backs local mode
// and tests; server mode uses the postgres implementation.
type UsageRepository struct {
	mu              sync.RWMutex
	counters        map[string]*usage.Counter
	history         []*usage.Counter
	idempotencyKeys map[string]time.Time
}

func NewUsageRepository() *UsageRepository {
	return &UsageRepository{
		counters:        make(map[string]*usage.Counter),
		idempotencyKeys: make(map[string]time.Time),
	}
}

func usageKey(tenantID string, key usage.CounterKey) string {
	return tenantID + ":" + key.String()
}

func (s *UsageRepository) Get(ctx context.Context, key usage.CounterKey) (*usage.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.counters[usageKey(types.GetTenantID(ctx), key)]
	if !exists {
		return nil, ierr.NewError("usage counter not found").
			WithReportableDetails(map[string]any{
				"key": key.String(),
			}).
			Mark(ierr.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (s *UsageRepository) Upsert(ctx context.Context, c *usage.Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.UpdatedAt = time.Now().UTC()
	copied := *c
	s.counters[usageKey(c.TenantID, c.Key())] = &copied
	return nil
}

func (s *UsageRepository) Archive(ctx context.Context, c *usage.Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	copied.Status = types.StatusArchived
	s.history = append(s.history, &copied)

	key := usageKey(c.TenantID, c.Key())
	if live, exists := s.counters[key]; exists && live.ID == c.ID {
		delete(s.counters, key)
	}
	return nil
}

func (s *UsageRepository) ListArchived(ctx context.Context, key usage.CounterKey, from, to time.Time) ([]*usage.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := types.GetTenantID(ctx)
	var result []*usage.Counter
	for _, c := range s.history {
		if c.TenantID != tenantID || c.Key() != key {
			continue
		}
		if !c.PeriodEnd.After(from) || !c.PeriodStart.Before(to) {
			continue
		}
		copied := *c
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.After(result[j].PeriodStart)
	})
	return result, nil
}

func (s *UsageRepository) DeleteByCustomer(ctx context.Context, customerID, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := types.GetTenantID(ctx)
	for key, c := range s.counters {
		if c.TenantID != tenantID || c.CustomerID != customerID {
			continue
		}
		if resourceID != "" && c.ResourceID != resourceID {
			continue
		}
		delete(s.counters, key)
	}
	return nil
}

func (s *UsageRepository) UpsertWithIdempotencyKey(ctx context.Context, c *usage.Counter, key string, seenAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scoped := types.GetTenantID(ctx) + ":" + key
	if _, exists := s.idempotencyKeys[scoped]; exists {
		return false, nil
	}

	c.UpdatedAt = time.Now().UTC()
	copied := *c
	s.counters[usageKey(c.TenantID, c.Key())] = &copied
	s.idempotencyKeys[scoped] = seenAt
	return true, nil
}

func (s *UsageRepository) PruneIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	for key, seenAt := range s.idempotencyKeys {
		if seenAt.Before(before) {
			delete(s.idempotencyKeys, key)
			pruned++
		}
	}
	return pruned, nil
}

// Clear resets all counters, history and idempotency state
func (s *UsageRepository) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]*usage.Counter)
	s.history = nil
	s.idempotencyKeys = make(map[string]time.Time)
}
