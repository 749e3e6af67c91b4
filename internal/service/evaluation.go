package service

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/api/dto"
	"github.com/flexprice/gatekeeper/internal/domain/usage"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// bulkEvaluationWorkers bounds the fan-out of one bulk fetch
const bulkEvaluationWorkers = 8

// EvaluationService combines resolved entitlements with usage counters and
// the budget guard to produce access decisions. Evaluation always returns a
// decision, never a fault; missing data degrades to a fail-safe deny.
type EvaluationService interface {
	FetchEntitlement(ctx context.Context, req *dto.FetchEntitlementRequest) (*dto.EntitlementDecision, error)

	// FetchEntitlements evaluates every feature the customer holds any
	// entitlement reference to
	FetchEntitlements(ctx context.Context, req *dto.FetchEntitlementsRequest) (*dto.FetchEntitlementsResponse, error)
}

type evaluationService struct {
	ServiceParams
	resolver EntitlementResolver
	usage    UsageService
	budget   BudgetService
}

func NewEvaluationService(params ServiceParams, resolver EntitlementResolver, usageSvc UsageService, budgetSvc BudgetService) EvaluationService {
	return &evaluationService{
		ServiceParams: params,
		resolver:      resolver,
		usage:         usageSvc,
		budget:        budgetSvc,
	}
}

func (s *evaluationService) FetchEntitlement(ctx context.Context, req *dto.FetchEntitlementRequest) (*dto.EntitlementDecision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.resolver.Resolve(ctx, req.CustomerID, req.FeatureID, req.ResourceID, now)
	if err != nil {
		s.Logger.Warnw("resolution failed, denying fail-safe",
			"customer_id", req.CustomerID, "feature_id", req.FeatureID, "error", err)
		return dto.Denied(req, types.DeniedReasonUnknown), nil
	}

	return s.decide(ctx, req, res, now), nil
}

func (s *evaluationService) FetchEntitlements(ctx context.Context, req *dto.FetchEntitlementsRequest) (*dto.FetchEntitlementsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resolutions, err := s.resolver.ResolveAll(ctx, req.CustomerID, req.ResourceID, now)
	if err != nil {
		s.Logger.Warnw("bulk resolution failed, denying fail-safe",
			"customer_id", req.CustomerID, "error", err)
		singleReq := &dto.FetchEntitlementRequest{CustomerID: req.CustomerID, ResourceID: req.ResourceID}
		return &dto.FetchEntitlementsResponse{
			Items: []*dto.EntitlementDecision{dto.Denied(singleReq, types.DeniedReasonUnknown)},
			Total: 1,
		}, nil
	}

	decisions := make([]*dto.EntitlementDecision, len(resolutions))
	p := pool.New().WithMaxGoroutines(bulkEvaluationWorkers)
	for i, res := range resolutions {
		i, res := i, res
		p.Go(func() {
			featureReq := &dto.FetchEntitlementRequest{
				CustomerID: req.CustomerID,
				FeatureID:  res.FeatureID,
				ResourceID: req.ResourceID,
			}
			decisions[i] = s.decide(ctx, featureReq, res, now)
		})
	}
	p.Wait()

	return &dto.FetchEntitlementsResponse{Items: decisions, Total: len(decisions)}, nil
}

// decide applies the decision matrix for one resolved entitlement
func (s *evaluationService) decide(ctx context.Context, req *dto.FetchEntitlementRequest, res *Resolution, now time.Time) *dto.EntitlementDecision {
	if !res.Entitled() {
		return dto.Denied(req, res.DeniedReason)
	}

	eff := res.Effective
	decision := &dto.EntitlementDecision{
		FeatureID:         req.FeatureID,
		CustomerID:        req.CustomerID,
		ResourceID:        req.ResourceID,
		UsageLimit:        eff.UsageLimit,
		HasSoftLimit:      eff.IsSoftLimit,
		HasUnlimitedUsage: eff.HasUnlimitedUsage,
		Source:            eff.Source,
	}

	if eff.FeatureType == types.FeatureTypeBoolean {
		if !eff.IsEnabled {
			decision.AccessDeniedReason = types.DeniedReasonNoFeatureEntitlementInSubscription
			return decision
		}
		decision.HasAccess = true
		return s.applyBudget(ctx, res, decision)
	}

	key := usage.CounterKey{
		CustomerID: req.CustomerID,
		FeatureID:  req.FeatureID,
		ResourceID: req.ResourceID,
	}
	counter, err := s.usage.Read(ctx, key, res, now)
	if err != nil {
		s.Logger.Warnw("usage read failed, denying fail-safe",
			"key", key.String(), "error", err)
		decision.AccessDeniedReason = types.DeniedReasonUnknown
		return decision
	}

	decision.CurrentUsage = counter.CurrentValue
	if !counter.PeriodEnd.IsZero() {
		// populated even when access is denied, so callers can show
		// "resets on ..."
		periodEnd := counter.PeriodEnd
		decision.NextResetDate = &periodEnd
	}

	if !eff.IsEnabled {
		decision.AccessDeniedReason = types.DeniedReasonNoFeatureEntitlementInSubscription
		return decision
	}

	// negative requested usage is clamped before projection
	requested := decimal.Zero
	if req.RequestedUsage != nil && req.RequestedUsage.IsPositive() {
		requested = *req.RequestedUsage
	}

	switch {
	case eff.HasUnlimitedUsage:
		decision.HasAccess = true
	case eff.UsageLimit == nil:
		// metered but uncapped
		decision.HasAccess = true
	default:
		projected := counter.CurrentValue.Add(requested)
		if projected.LessThanOrEqual(*eff.UsageLimit) {
			decision.HasAccess = true
		} else if eff.IsSoftLimit {
			// soft limits never block, they only flag; the limit stays on
			// the decision so callers can warn about overage
			decision.HasAccess = true
		} else {
			decision.AccessDeniedReason = types.DeniedReasonRequestedUsageExceedingLimit
		}
	}

	decision = s.applyBudget(ctx, res, decision)

	if decision.HasAccess && req.ShouldTrack && requested.IsPositive() {
		s.trackUsage(ctx, req, requested, decision)
	}
	return decision
}

// applyBudget consults the budget guard on a would-grant decision. Budget
// denial takes precedence over a feature-level grant; a feature-level denial
// is reported as-is without the external lookup.
func (s *evaluationService) applyBudget(ctx context.Context, res *Resolution, decision *dto.EntitlementDecision) *dto.EntitlementDecision {
	if !decision.HasAccess || res.Subscription == nil {
		return decision
	}

	status, err := s.budget.CheckBudget(ctx, res.Subscription)
	if err != nil {
		s.Logger.Warnw("budget lookup failed, denying fail-safe",
			"subscription_id", res.Subscription.ID, "error", err)
		decision.HasAccess = false
		decision.AccessDeniedReason = types.DeniedReasonUnknown
		return decision
	}
	if !status.WithinBudget {
		decision.HasAccess = false
		decision.AccessDeniedReason = types.DeniedReasonBudgetExceeded
	}
	return decision
}

// trackUsage records granted requested usage as a delta, best effort
func (s *evaluationService) trackUsage(ctx context.Context, req *dto.FetchEntitlementRequest, requested decimal.Decimal, decision *dto.EntitlementDecision) {
	resp, err := s.usage.Report(ctx, &dto.ReportUsageRequest{
		CustomerID:     req.CustomerID,
		FeatureID:      req.FeatureID,
		ResourceID:     req.ResourceID,
		Value:          requested,
		UpdateBehavior: types.UsageUpdateDelta,
	})
	if err != nil {
		s.Logger.Errorw("failed to track requested usage",
			"customer_id", req.CustomerID, "feature_id", req.FeatureID, "error", err)
		return
	}
	decision.CurrentUsage = resp.CurrentValue
}
