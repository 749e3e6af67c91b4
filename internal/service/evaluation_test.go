package service

import (
	"context"
	"testing"

	"github.com/flexprice/gatekeeper/internal/api/dto"
	"github.com/flexprice/gatekeeper/internal/domain/customer"
	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	"github.com/flexprice/gatekeeper/internal/domain/feature"
	"github.com/flexprice/gatekeeper/internal/domain/plan"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/testutil"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// stubSpendProvider returns a fixed spend or error for every subscription
type stubSpendProvider struct {
	spend decimal.Decimal
	err   error
}

func (p *stubSpendProvider) GetSpend(_ context.Context, _ string) (decimal.Decimal, error) {
	if p.err != nil {
		return decimal.Zero, p.err
	}
	return p.spend, nil
}

type EvaluationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  EvaluationService
	usageSvc UsageService
	resolver EntitlementResolver
	spend    *stubSpendProvider
	testData struct {
		customer *customer.Customer
		plan     *plan.Plan
		sub      *subscription.Subscription
		features struct {
			apiCalls *feature.Feature
			sso      *feature.Feature
		}
	}
}

func TestEvaluationService(t *testing.T) {
	suite.Run(t, new(EvaluationServiceSuite))
}

func (s *EvaluationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.spend = &stubSpendProvider{spend: decimal.Zero}
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SpendProvider = s.spend

	s.resolver = NewEntitlementResolver(params)
	s.usageSvc = NewUsageService(params, s.resolver)
	s.service = NewEvaluationService(params, s.resolver, s.usageSvc, NewBudgetService(params))

	s.setupTestData()
}

func (s *EvaluationServiceSuite) setupTestData() {
	ctx := s.GetContext()

	s.testData.features.apiCalls = &feature.Feature{
		ID:            "feat_api_calls",
		Name:          "API Calls",
		LookupKey:     "api_calls",
		Type:          types.FeatureTypeMetered,
		MeterKind:     types.MeterKindIncremental,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.testData.features.sso = &feature.Feature{
		ID:            "feat_sso",
		Name:          "Single Sign-On",
		LookupKey:     "sso",
		Type:          types.FeatureTypeBoolean,
		MeterKind:     types.MeterKindNone,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().FeatureRepo.Create(ctx, s.testData.features.apiCalls))
	s.NoError(s.GetStores().FeatureRepo.Create(ctx, s.testData.features.sso))

	s.testData.customer = &customer.Customer{
		ID:            "cust_1",
		ExternalID:    "ext_cust_1",
		Name:          "Acme",
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, s.testData.customer))

	s.testData.plan = &plan.Plan{
		ID:            "plan_pro",
		Name:          "Pro",
		Version:       1,
		IsLatest:      true,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().PlanRepo.Create(ctx, s.testData.plan))

	s.testData.sub = &subscription.Subscription{
		ID:                 "sub_1",
		CustomerID:         s.testData.customer.ID,
		PlanID:             s.testData.plan.ID,
		PlanVersion:        1,
		SubscriptionStatus: types.SubscriptionStatusActive,
		StartDate:          s.GetNow().AddDate(0, -2, 0),
		EnvironmentID:      types.GetEnvironmentID(ctx),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(ctx, s.testData.sub))
}

// meteredEntitlement publishes a plan-layer metered definition with a monthly
// subscription-anchored reset period
func (s *EvaluationServiceSuite) meteredEntitlement(limit *decimal.Decimal, soft, unlimited bool) {
	ctx := s.GetContext()
	_, err := s.GetStores().EntitlementRepo.Create(ctx, &entitlement.Entitlement{
		ID:                s.GetUUID(),
		EntityType:        types.EntitlementSourcePlan,
		EntityID:          s.testData.plan.ID,
		EntityVersion:     1,
		FeatureID:         s.testData.features.apiCalls.ID,
		FeatureType:       types.FeatureTypeMetered,
		IsEnabled:         true,
		Behavior:          types.EntitlementBehaviorOverride,
		UsageLimit:        limit,
		IsSoftLimit:       soft,
		HasUnlimitedUsage: unlimited,
		ResetPeriod: &types.ResetPeriod{
			Kind:   types.ResetPeriodMonth,
			Anchor: types.ResetAnchor{Kind: types.ResetAnchorSubscriptionStart},
		},
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	})
	s.NoError(err)
}

func (s *EvaluationServiceSuite) booleanEntitlement(enabled bool) {
	ctx := s.GetContext()
	_, err := s.GetStores().EntitlementRepo.Create(ctx, &entitlement.Entitlement{
		ID:            s.GetUUID(),
		EntityType:    types.EntitlementSourcePlan,
		EntityID:      s.testData.plan.ID,
		EntityVersion: 1,
		FeatureID:     s.testData.features.sso.ID,
		FeatureType:   types.FeatureTypeBoolean,
		IsEnabled:     enabled,
		Behavior:      types.EntitlementBehaviorOverride,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	})
	s.NoError(err)
}

func (s *EvaluationServiceSuite) seedUsage(value int64) {
	_, err := s.usageSvc.Report(s.GetContext(), &dto.ReportUsageRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		Value:          decimal.NewFromInt(value),
		UpdateBehavior: types.UsageUpdateDelta,
	})
	s.NoError(err)
}

func (s *EvaluationServiceSuite) TestHardLimitDeniesProjectedOverage() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), false, false)
	s.seedUsage(95)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		RequestedUsage: lo.ToPtr(decimal.NewFromInt(10)),
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	s.Equal(types.DeniedReasonRequestedUsageExceedingLimit, decision.AccessDeniedReason)
	s.True(decision.CurrentUsage.Equal(decimal.NewFromInt(95)))
	// denial still tells the caller when the counter resets
	s.NotNil(decision.NextResetDate)
	s.True(decision.NextResetDate.After(s.GetNow()))
}

func (s *EvaluationServiceSuite) TestHardLimitGrantsWithinLimit() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), false, false)
	s.seedUsage(95)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		RequestedUsage: lo.ToPtr(decimal.NewFromInt(5)),
	})
	s.NoError(err)
	s.True(decision.HasAccess)
	s.True(decision.CurrentUsage.Equal(decimal.NewFromInt(95)))
}

func (s *EvaluationServiceSuite) TestSoftLimitFlagsButNeverBlocks() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), true, false)
	s.seedUsage(95)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		RequestedUsage: lo.ToPtr(decimal.NewFromInt(10)),
		ShouldTrack:    true,
	})
	s.NoError(err)
	s.True(decision.HasAccess)
	s.True(decision.HasSoftLimit)
	s.NotNil(decision.UsageLimit)
	s.True(decision.UsageLimit.Equal(decimal.NewFromInt(100)))
	// tracked usage lands on the counter and is reflected back
	s.True(decision.CurrentUsage.Equal(decimal.NewFromInt(105)))
}

func (s *EvaluationServiceSuite) TestUnlimitedClampsNegativeRequestedUsage() {
	s.meteredEntitlement(nil, false, true)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		RequestedUsage: lo.ToPtr(decimal.NewFromInt(-50)),
		ShouldTrack:    true,
	})
	s.NoError(err)
	s.True(decision.HasAccess)
	s.True(decision.HasUnlimitedUsage)
	// the negative request was clamped, nothing was tracked
	s.True(decision.CurrentUsage.IsZero())
}

func (s *EvaluationServiceSuite) TestBooleanFeature() {
	s.booleanEntitlement(true)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_sso",
	})
	s.NoError(err)
	s.True(decision.HasAccess)
	s.Nil(decision.NextResetDate)
	s.Equal(types.EntitlementSourcePlan, decision.Source)
}

func (s *EvaluationServiceSuite) TestDisabledBooleanFeatureDenied() {
	s.booleanEntitlement(false)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_sso",
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	s.Equal(types.DeniedReasonNoFeatureEntitlementInSubscription, decision.AccessDeniedReason)
}

func (s *EvaluationServiceSuite) TestBudgetExceededOverridesGrant() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), false, false)

	s.testData.sub.BudgetLimit = lo.ToPtr(decimal.NewFromInt(100))
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))
	s.spend.spend = decimal.NewFromInt(150)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_api_calls",
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	s.Equal(types.DeniedReasonBudgetExceeded, decision.AccessDeniedReason)
}

func (s *EvaluationServiceSuite) TestBudgetLookupFailureDeniesFailSafe() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), false, false)

	s.testData.sub.BudgetLimit = lo.ToPtr(decimal.NewFromInt(100))
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))
	s.spend.err = ierr.NewError("billing provider unavailable").Mark(ierr.ErrTimeout)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_api_calls",
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	s.Equal(types.DeniedReasonUnknown, decision.AccessDeniedReason)
}

func (s *EvaluationServiceSuite) TestBudgetNotConsultedOnFeatureDenial() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(10)), false, false)
	s.seedUsage(10)

	s.testData.sub.BudgetLimit = lo.ToPtr(decimal.NewFromInt(100))
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))
	s.spend.err = ierr.NewError("billing provider unavailable").Mark(ierr.ErrTimeout)

	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID:     "cust_1",
		FeatureID:      "feat_api_calls",
		RequestedUsage: lo.ToPtr(decimal.NewFromInt(1)),
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	// the feature-level reason survives; the failing provider was never asked
	s.Equal(types.DeniedReasonRequestedUsageExceedingLimit, decision.AccessDeniedReason)
}

func (s *EvaluationServiceSuite) TestUnknownFeatureDenied() {
	decision, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
		FeatureID:  "feat_missing",
	})
	s.NoError(err)
	s.False(decision.HasAccess)
	s.Equal(types.DeniedReasonFeatureNotFound, decision.AccessDeniedReason)
}

func (s *EvaluationServiceSuite) TestFetchEntitlementsBulk() {
	s.meteredEntitlement(lo.ToPtr(decimal.NewFromInt(100)), false, false)
	s.booleanEntitlement(true)

	resp, err := s.service.FetchEntitlements(s.GetContext(), &dto.FetchEntitlementsRequest{
		CustomerID: "cust_1",
	})
	s.NoError(err)
	s.Equal(2, resp.Total)

	byFeature := map[string]*dto.EntitlementDecision{}
	for _, d := range resp.Items {
		byFeature[d.FeatureID] = d
	}
	s.True(byFeature["feat_api_calls"].HasAccess)
	s.NotNil(byFeature["feat_api_calls"].NextResetDate)
	s.True(byFeature["feat_sso"].HasAccess)
}

func (s *EvaluationServiceSuite) TestValidationErrorIsAFault() {
	_, err := s.service.FetchEntitlement(s.GetContext(), &dto.FetchEntitlementRequest{
		CustomerID: "cust_1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
