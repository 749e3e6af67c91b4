package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/gatekeeper/internal/api/dto"
	"github.com/flexprice/gatekeeper/internal/cache"
	"github.com/flexprice/gatekeeper/internal/domain/usage"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/idempotency"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
)

// UsageService is the ledger owning all counter state. Reads are served
// lock-free from the store in the common case; rollover and every report are
// serialized per counter key, so no partial counter state is ever observable
// and no global lock exists.
type UsageService interface {
	// Read returns the live counter for the key at now, lazily materializing
	// it and rolling it over when its period has ended. The returned counter
	// always brackets now when a reset period applies.
	Read(ctx context.Context, key usage.CounterKey, res *Resolution, now time.Time) (*usage.Counter, error)

	// Report applies a usage report to the counter, rolling the period over
	// first when needed. Duplicate idempotency keys and stale SET reports
	// are silent no-ops.
	Report(ctx context.Context, req *dto.ReportUsageRequest) (*dto.UsageResponse, error)

	// GetUsageHistory lists archived counters for a key, newest first
	GetUsageHistory(ctx context.Context, req *dto.GetUsageHistoryRequest) (*dto.GetUsageHistoryResponse, error)

	// ClearCustomerCache drops cached resolutions and counter snapshots for
	// the customer so the next access recomputes them
	ClearCustomerCache(ctx context.Context, req *dto.ClearCustomerCacheRequest) error

	// PruneIdempotencyKeys drops idempotency keys older than the retention
	// window; run periodically by the janitor
	PruneIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
}

type usageService struct {
	ServiceParams
	resolver  EntitlementResolver
	generator *idempotency.Generator

	// per-key write serialization; map of counter key to *sync.Mutex
	locks sync.Map
}

func NewUsageService(params ServiceParams, resolver EntitlementResolver) UsageService {
	return &usageService{
		ServiceParams: params,
		resolver:      resolver,
		generator:     idempotency.NewGenerator(),
	}
}

func (s *usageService) lockKey(ctx context.Context, key usage.CounterKey) *sync.Mutex {
	scoped := types.GetTenantID(ctx) + ":" + key.String()
	mu, _ := s.locks.LoadOrStore(scoped, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *usageService) counterCacheKey(ctx context.Context, key usage.CounterKey) string {
	// customer first so ClearCustomerCache can invalidate by prefix
	return cache.GenerateKey(cache.PrefixUsageCounter,
		key.CustomerID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx), key.FeatureID, key.ResourceID)
}

func (s *usageService) Read(ctx context.Context, key usage.CounterKey, res *Resolution, now time.Time) (*usage.Counter, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	// fast path: a cached snapshot still inside its period
	cacheKey := s.counterCacheKey(ctx, key)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if c, ok := cached.(*usage.Counter); ok && !c.Expired(now) {
			return c, nil
		}
	}

	c, err := s.UsageRepo.Get(ctx, key)
	if err == nil && !c.Expired(now) {
		s.Cache.Set(ctx, cacheKey, c, s.Config.Cache.DefaultTTL)
		return c, nil
	}
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	// slow path: missing or expired, serialize with writers on this key
	mu := s.lockKey(ctx, key)
	mu.Lock()
	defer mu.Unlock()

	c, err = s.rolloverLocked(ctx, key, res, now)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cacheKey, c, s.Config.Cache.DefaultTTL)
	return c, nil
}

// rolloverLocked returns the live counter for now, materializing a fresh zero
// counter when none exists and archiving a counter whose period has ended.
// The new period is computed directly from the anchor, never by stepping
// through skipped periods, so catching up after months of inactivity is one
// bounds computation. Caller must hold the key lock.
func (s *usageService) rolloverLocked(ctx context.Context, key usage.CounterKey, res *Resolution, now time.Time) (*usage.Counter, error) {
	c, err := s.UsageRepo.Get(ctx, key)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		c = nil
	}
	if c != nil && !c.Expired(now) {
		return c, nil
	}

	start, end, err := s.periodBounds(res, now)
	if err != nil {
		return nil, err
	}

	if c != nil {
		if err := s.UsageRepo.Archive(ctx, c); err != nil {
			return nil, err
		}
	}

	fresh := usage.NewCounter(key, start, end, types.GetEnvironmentID(ctx), types.GetTenantID(ctx))
	if err := s.UsageRepo.Upsert(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// periodBounds computes the counter period for the resolved entitlement. A
// counter without a reset period never expires; its bounds stay zero.
func (s *usageService) periodBounds(res *Resolution, now time.Time) (time.Time, time.Time, error) {
	if res == nil || res.Effective == nil || res.Effective.ResetPeriod == nil {
		return time.Time{}, time.Time{}, nil
	}
	loc := time.UTC
	if res.Subscription != nil {
		loc = res.Subscription.Location()
	}
	return types.PeriodBounds(*res.Effective.ResetPeriod, now, loc)
}

func (s *usageService) Report(ctx context.Context, req *dto.ReportUsageRequest) (*dto.UsageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.Key()
	now := time.Now().UTC()

	res, err := s.resolver.Resolve(ctx, req.CustomerID, req.FeatureID, req.ResourceID, now)
	if err != nil {
		return nil, err
	}

	idemKey := req.IdempotencyKey
	if idemKey == "" && req.EventID != "" {
		idemKey = s.generator.GenerateKey(idempotency.ScopeUsageReport, map[string]interface{}{
			"event_id": req.EventID,
		})
	}

	mu := s.lockKey(ctx, key)
	mu.Lock()
	defer mu.Unlock()

	var counter *usage.Counter
	apply := func() error {
		counter, err = s.applyLocked(ctx, req, key, res, idemKey, now)
		if err != nil && !ierr.IsDatabase(err) {
			// only transient store failures are retried
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(s.Config.Usage.ReportRetryInterval),
		),
		s.Config.Usage.ReportMaxRetries,
	), ctx)

	if err := backoff.Retry(apply, policy); err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, s.counterCacheKey(ctx, key), counter, s.Config.Cache.DefaultTTL)
	return dto.NewUsageResponse(counter), nil
}

// applyLocked performs one attempt of the report: rollover first, so a report
// crossing a period boundary starts the new period at zero, then the update.
// A keyed report persists the idempotency mark and the counter as one atomic
// write, so a failed attempt never consumes the key and a retry can still
// apply. Caller must hold the key lock.
func (s *usageService) applyLocked(ctx context.Context, req *dto.ReportUsageRequest, key usage.CounterKey, res *Resolution, idemKey string, now time.Time) (*usage.Counter, error) {
	counter, err := s.rolloverLocked(ctx, key, res, now)
	if err != nil {
		return nil, err
	}

	eventTime := now
	if req.CreatedAt != nil {
		eventTime = req.CreatedAt.UTC()
	}

	updated := *counter
	switch req.UpdateBehavior {
	case types.UsageUpdateDelta:
		updated.CurrentValue = updated.CurrentValue.Add(req.Value)
		if updated.CurrentValue.IsNegative() {
			updated.CurrentValue = decimal.Zero
		}
		if eventTime.After(updated.LastWriteAt) {
			updated.LastWriteAt = eventTime
		}

	case types.UsageUpdateSet:
		// last-write-wins by event time, not arrival time; a stale SET is
		// dropped silently to tolerate reordering
		if !updated.LastWriteAt.IsZero() && eventTime.Before(updated.LastWriteAt) {
			s.Logger.Debugw("stale SET report dropped",
				"key", key.String(),
				"event_time", eventTime,
				"last_write_at", updated.LastWriteAt)
			return counter, nil
		}
		updated.CurrentValue = req.Value
		updated.LastWriteAt = eventTime
	}

	if idemKey != "" {
		fresh, err := s.UsageRepo.UpsertWithIdempotencyKey(ctx, &updated, idemKey, now)
		if err != nil {
			return nil, err
		}
		if !fresh {
			// at-least-once redelivery, already applied
			s.Logger.Debugw("duplicate usage report ignored",
				"key", key.String(), "idempotency_key", idemKey)
			return counter, nil
		}
		return &updated, nil
	}

	if err := s.UsageRepo.Upsert(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *usageService) GetUsageHistory(ctx context.Context, req *dto.GetUsageHistoryRequest) (*dto.GetUsageHistoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	from := req.From
	to := req.To
	if to.IsZero() {
		to = time.Now().UTC()
	}

	key := usage.CounterKey{
		CustomerID: req.CustomerID,
		FeatureID:  req.FeatureID,
		ResourceID: req.ResourceID,
	}
	archived, err := s.UsageRepo.ListArchived(ctx, key, from, to)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.UsageResponse, len(archived))
	for i, c := range archived {
		items[i] = dto.NewUsageResponse(c)
	}
	return &dto.GetUsageHistoryResponse{Items: items, Total: len(items)}, nil
}

func (s *usageService) ClearCustomerCache(ctx context.Context, req *dto.ClearCustomerCacheRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.resolver.ClearCustomer(ctx, req.CustomerID)
	s.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixUsageCounter, req.CustomerID)+":")

	// in local mode the in-memory counter store is itself the persistent
	// cache of the authoritative ledger, so it is dropped too; persisted
	// rows in server mode survive
	if s.Config.Deployment.Mode == types.ModeLocal {
		if err := s.UsageRepo.DeleteByCustomer(ctx, req.CustomerID, req.ResourceID); err != nil {
			return err
		}
	}

	s.Logger.Infow("cleared customer caches",
		"customer_id", req.CustomerID, "resource_id", req.ResourceID)
	return nil
}

func (s *usageService) PruneIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	return s.UsageRepo.PruneIdempotencyKeys(ctx, before)
}
