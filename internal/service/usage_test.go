package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flexprice/gatekeeper/internal/api/dto"
	"github.com/flexprice/gatekeeper/internal/domain/customer"
	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	"github.com/flexprice/gatekeeper/internal/domain/feature"
	"github.com/flexprice/gatekeeper/internal/domain/plan"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	"github.com/flexprice/gatekeeper/internal/domain/usage"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/testutil"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UsageServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  UsageService
	resolver EntitlementResolver
	subStart time.Time
}

func TestUsageService(t *testing.T) {
	suite.Run(t, new(UsageServiceSuite))
}

func (s *UsageServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.resolver = NewEntitlementResolver(params)
	s.service = NewUsageService(params, s.resolver)

	s.setupTestData()
}

func (s *UsageServiceSuite) setupTestData() {
	ctx := s.GetContext()

	feat := &feature.Feature{
		ID:            "feat_api_calls",
		Name:          "API Calls",
		LookupKey:     "api_calls",
		Type:          types.FeatureTypeMetered,
		MeterKind:     types.MeterKindIncremental,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().FeatureRepo.Create(ctx, feat))

	cust := &customer.Customer{
		ID:            "cust_1",
		ExternalID:    "ext_cust_1",
		Name:          "Acme",
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, cust))

	p := &plan.Plan{
		ID:            "plan_pro",
		Name:          "Pro",
		Version:       1,
		IsLatest:      true,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().PlanRepo.Create(ctx, p))

	s.subStart = s.GetNow().AddDate(0, -1, 0)
	sub := &subscription.Subscription{
		ID:                 "sub_1",
		CustomerID:         cust.ID,
		PlanID:             p.ID,
		PlanVersion:        1,
		SubscriptionStatus: types.SubscriptionStatusActive,
		StartDate:          s.subStart,
		EnvironmentID:      types.GetEnvironmentID(ctx),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))

	_, err := s.GetStores().EntitlementRepo.Create(ctx, &entitlement.Entitlement{
		ID:            s.GetUUID(),
		EntityType:    types.EntitlementSourcePlan,
		EntityID:      p.ID,
		EntityVersion: 1,
		FeatureID:     feat.ID,
		FeatureType:   types.FeatureTypeMetered,
		IsEnabled:     true,
		Behavior:      types.EntitlementBehaviorOverride,
		UsageLimit:    lo.ToPtr(decimal.NewFromInt(1000)),
		ResetPeriod: &types.ResetPeriod{
			Kind:   types.ResetPeriodMonth,
			Anchor: types.ResetAnchor{Kind: types.ResetAnchorSubscriptionStart},
		},
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	})
	s.NoError(err)
}

func (s *UsageServiceSuite) report(req *dto.ReportUsageRequest) *dto.UsageResponse {
	if req.CustomerID == "" {
		req.CustomerID = "cust_1"
	}
	if req.FeatureID == "" {
		req.FeatureID = "feat_api_calls"
	}
	resp, err := s.service.Report(s.GetContext(), req)
	s.NoError(err)
	return resp
}

func (s *UsageServiceSuite) TestDeltaAccumulates() {
	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(10), UpdateBehavior: types.UsageUpdateDelta})
	resp := s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(5), UpdateBehavior: types.UsageUpdateDelta})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(15)))
}

func (s *UsageServiceSuite) TestDeltaClampsBelowZero() {
	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(10), UpdateBehavior: types.UsageUpdateDelta})
	resp := s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(-25), UpdateBehavior: types.UsageUpdateDelta})
	s.True(resp.CurrentValue.IsZero())
}

func (s *UsageServiceSuite) TestIdempotencyKeyDeduplicates() {
	s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_1",
	})
	// at-least-once redelivery of the same report
	resp := s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_1",
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(10)), "duplicate must be a no-op")
}

func (s *UsageServiceSuite) TestEventIDDerivesIdempotencyKey() {
	s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(7),
		UpdateBehavior: types.UsageUpdateDelta,
		EventID:        "evt_42",
	})
	resp := s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(7),
		UpdateBehavior: types.UsageUpdateDelta,
		EventID:        "evt_42",
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(7)))

	resp = s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(7),
		UpdateBehavior: types.UsageUpdateDelta,
		EventID:        "evt_43",
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(14)))
}

func (s *UsageServiceSuite) TestConcurrentDeltasAllLand() {
	const workers = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.service.Report(s.GetContext(), &dto.ReportUsageRequest{
				CustomerID:     "cust_1",
				FeatureID:      "feat_api_calls",
				Value:          decimal.NewFromInt(1),
				UpdateBehavior: types.UsageUpdateDelta,
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	counter, err := s.GetStores().UsageRepo.Get(s.GetContext(), usage.CounterKey{
		CustomerID: "cust_1",
		FeatureID:  "feat_api_calls",
	})
	s.NoError(err)
	s.True(counter.CurrentValue.Equal(decimal.NewFromInt(workers)))
}

func (s *UsageServiceSuite) TestStaleSetDroppedSilently() {
	t1 := s.GetNow().Add(-10 * time.Minute)
	t0 := s.GetNow().Add(-20 * time.Minute)
	t2 := s.GetNow().Add(-5 * time.Minute)

	s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(50),
		UpdateBehavior: types.UsageUpdateSet,
		CreatedAt:      &t1,
	})

	// delivered out of order; the older event must not rewind the counter
	resp := s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateSet,
		CreatedAt:      &t0,
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(50)))

	resp = s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(80),
		UpdateBehavior: types.UsageUpdateSet,
		CreatedAt:      &t2,
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(80)))
}

func (s *UsageServiceSuite) TestNegativeSetRejected() {
	_, err := s.service.Report(s.GetContext(), &dto.ReportUsageRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		Value:          decimal.NewFromInt(-1),
		UpdateBehavior: types.UsageUpdateSet,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UsageServiceSuite) TestRolloverAfterSkippedPeriods() {
	ctx := s.GetContext()
	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(42), UpdateBehavior: types.UsageUpdateDelta})

	key := usage.CounterKey{CustomerID: "cust_1", FeatureID: "feat_api_calls"}
	res, err := s.resolver.Resolve(ctx, "cust_1", "feat_api_calls", "", s.GetNow())
	s.NoError(err)

	// four months of inactivity; the read lands in the current period with a
	// fresh zero counter, the stale one goes to history
	future := s.GetNow().AddDate(0, 4, 0)
	counter, err := s.service.Read(ctx, key, res, future)
	s.NoError(err)
	s.True(counter.CurrentValue.IsZero())
	s.True(counter.InPeriod(future), "new period must bracket the read instant")

	history, err := s.service.GetUsageHistory(ctx, &dto.GetUsageHistoryRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_api_calls",
		From:       s.subStart,
		To:         future,
	})
	s.NoError(err)
	s.Equal(1, history.Total)
	s.True(history.Items[0].CurrentValue.Equal(decimal.NewFromInt(42)))
}

func (s *UsageServiceSuite) TestReadMaterializesZeroCounter() {
	ctx := s.GetContext()
	key := usage.CounterKey{CustomerID: "cust_1", FeatureID: "feat_api_calls"}
	res, err := s.resolver.Resolve(ctx, "cust_1", "feat_api_calls", "", s.GetNow())
	s.NoError(err)

	counter, err := s.service.Read(ctx, key, res, s.GetNow())
	s.NoError(err)
	s.True(counter.CurrentValue.IsZero())
	s.True(counter.InPeriod(s.GetNow()))
	// monthly period anchored to the subscription start
	s.True(counter.PeriodStart.Equal(s.subStart) || counter.PeriodStart.After(s.subStart))
}

func (s *UsageServiceSuite) TestResourceScopedCountersAreIndependent() {
	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(10), UpdateBehavior: types.UsageUpdateDelta})
	resp := s.report(&dto.ReportUsageRequest{
		ResourceID:     "res_a",
		Value:          decimal.NewFromInt(3),
		UpdateBehavior: types.UsageUpdateDelta,
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(3)))
}

func (s *UsageServiceSuite) TestClearCustomerCacheDropsLocalCounters() {
	ctx := s.GetContext()
	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(10), UpdateBehavior: types.UsageUpdateDelta})

	s.NoError(s.service.ClearCustomerCache(ctx, &dto.ClearCustomerCacheRequest{CustomerID: "cust_1"}))

	_, err := s.GetStores().UsageRepo.Get(ctx, usage.CounterKey{
		CustomerID: "cust_1",
		FeatureID:  "feat_api_calls",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *UsageServiceSuite) TestPruneIdempotencyKeys() {
	ctx := s.GetContext()
	s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_old",
	})

	pruned, err := s.service.PruneIdempotencyKeys(ctx, time.Now().UTC().Add(time.Hour))
	s.NoError(err)
	s.Equal(int64(1), pruned)

	// with the key forgotten, a redelivery applies again
	resp := s.report(&dto.ReportUsageRequest{
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_old",
	})
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(20)))
}

// flakyUsageRepo fails the next n keyed counter writes with a transient store
// error, then delegates
type flakyUsageRepo struct {
	usage.Repository
	failures int
}

func (r *flakyUsageRepo) UpsertWithIdempotencyKey(ctx context.Context, c *usage.Counter, key string, seenAt time.Time) (bool, error) {
	if r.failures > 0 {
		r.failures--
		return false, ierr.NewError("counter store unavailable").Mark(ierr.ErrDatabase)
	}
	return r.Repository.UpsertWithIdempotencyKey(ctx, c, key, seenAt)
}

func (s *UsageServiceSuite) TestKeyedReportSurvivesTransientStoreFailure() {
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	flaky := &flakyUsageRepo{Repository: params.UsageRepo, failures: 1}
	params.UsageRepo = flaky
	svc := NewUsageService(params, s.resolver)

	s.report(&dto.ReportUsageRequest{Value: decimal.NewFromInt(1), UpdateBehavior: types.UsageUpdateDelta})

	// the first write attempt fails; the retry must still apply the delta
	// because the failed attempt did not consume the idempotency key
	req := &dto.ReportUsageRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_flaky",
	}
	resp, err := svc.Report(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(11)), "acked report must be applied, got %s", resp.CurrentValue)
	s.Zero(flaky.failures)

	// once the write lands the key is consumed; redelivery is a no-op
	resp, err = svc.Report(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(11)))
}

func (s *UsageServiceSuite) TestExhaustedRetriesDoNotConsumeKey() {
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	flaky := &flakyUsageRepo{Repository: params.UsageRepo, failures: 10}
	params.UsageRepo = flaky
	svc := NewUsageService(params, s.resolver)

	req := &dto.ReportUsageRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		Value:          decimal.NewFromInt(10),
		UpdateBehavior: types.UsageUpdateDelta,
		IdempotencyKey: "idem_down",
	}
	_, err := svc.Report(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsDatabase(err))

	// store recovers; the redelivery applies because no failed attempt
	// recorded the key
	flaky.failures = 0
	resp, err := svc.Report(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.CurrentValue.Equal(decimal.NewFromInt(10)))
}
