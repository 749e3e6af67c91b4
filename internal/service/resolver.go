package service

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/cache"
	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	"github.com/flexprice/gatekeeper/internal/domain/grant"
	"github.com/flexprice/gatekeeper/internal/domain/plan"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Resolution is the outcome of merging every entitlement source for one
// (customer, feature, resource) triple. Effective is nil when the customer
// holds no entitlement for the feature; DeniedReason then names why.
type Resolution struct {
	FeatureID string
	Effective *entitlement.EffectiveEntitlement

	// Subscription is the active subscription the resolution ran against;
	// nil when a promotional grant won for a customer without one
	Subscription *subscription.Subscription

	DeniedReason types.AccessDeniedReason
}

// Entitled reports whether resolution produced a governing entitlement
func (r *Resolution) Entitled() bool {
	return r.Effective != nil
}

// EntitlementResolver merges the candidate entitlement definitions attached
// to a customer into one effective entitlement per feature. Precedence,
// highest first: active promotional grant, subscription-level override,
// compatible addon entitlements, the base plan's own entitlement, then the
// nearest plan ancestor's. A higher-precedence source fully replaces a lower
// one; only same-layer increment siblings sum.
type EntitlementResolver interface {
	Resolve(ctx context.Context, customerID, featureID, resourceID string, now time.Time) (*Resolution, error)

	// ResolveAll resolves every feature the customer holds any entitlement
	// reference to
	ResolveAll(ctx context.Context, customerID, resourceID string, now time.Time) ([]*Resolution, error)

	// ClearCustomer drops every cached resolution for the customer so the
	// next access re-resolves from the catalog
	ClearCustomer(ctx context.Context, customerID string)
}

type entitlementResolver struct {
	ServiceParams
}

func NewEntitlementResolver(params ServiceParams) EntitlementResolver {
	return &entitlementResolver{ServiceParams: params}
}

func (s *entitlementResolver) Resolve(ctx context.Context, customerID, featureID, resourceID string, now time.Time) (*Resolution, error) {
	if reason, ok := s.checkCustomer(ctx, customerID, resourceID); !ok {
		return &Resolution{FeatureID: featureID, DeniedReason: reason}, nil
	}

	cacheKey := s.resolutionCacheKey(ctx, customerID, featureID, resourceID)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if res, ok := cached.(*Resolution); ok {
			return res, nil
		}
	}

	if _, err := s.FeatureRepo.Get(ctx, featureID); err != nil {
		if ierr.IsNotFound(err) {
			return &Resolution{FeatureID: featureID, DeniedReason: types.DeniedReasonFeatureNotFound}, nil
		}
		return nil, err
	}

	sub, err := s.activeSubscription(ctx, customerID)
	if err != nil {
		return nil, err
	}

	res, err := s.resolveFeature(ctx, customerID, featureID, sub, now)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, cacheKey, res, s.Config.Entitlement.CacheTTL)
	return res, nil
}

func (s *entitlementResolver) ResolveAll(ctx context.Context, customerID, resourceID string, now time.Time) ([]*Resolution, error) {
	if reason, ok := s.checkCustomer(ctx, customerID, resourceID); !ok {
		return []*Resolution{{DeniedReason: reason}}, nil
	}

	sub, err := s.activeSubscription(ctx, customerID)
	if err != nil {
		return nil, err
	}

	featureIDs, err := s.referencedFeatures(ctx, customerID, sub, now)
	if err != nil {
		return nil, err
	}

	resolutions := make([]*Resolution, 0, len(featureIDs))
	for _, featureID := range featureIDs {
		res, err := s.resolveFeature(ctx, customerID, featureID, sub, now)
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

func (s *entitlementResolver) ClearCustomer(ctx context.Context, customerID string) {
	s.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixEffectiveEntitlement, customerID)+":")
	s.Logger.Debugw("cleared cached resolutions", "customer_id", customerID)
}

func (s *entitlementResolver) resolutionCacheKey(ctx context.Context, customerID, featureID, resourceID string) string {
	// customer first so ClearCustomer can invalidate by prefix
	return cache.GenerateKey(cache.PrefixEffectiveEntitlement,
		customerID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx), featureID, resourceID)
}

// checkCustomer validates the customer and resource exist and are usable.
// These are decision reasons, never faults.
func (s *entitlementResolver) checkCustomer(ctx context.Context, customerID, resourceID string) (types.AccessDeniedReason, bool) {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return types.DeniedReasonCustomerNotFound, false
	}
	if cust.IsArchived() {
		return types.DeniedReasonCustomerIsArchived, false
	}
	if !cust.HasResource(resourceID) {
		return types.DeniedReasonCustomerResourceNotFound, false
	}
	return "", true
}

// activeSubscription returns the customer's most recently started
// subscription in a state that can hold entitlements, or nil
func (s *entitlementResolver) activeSubscription(ctx context.Context, customerID string) (*subscription.Subscription, error) {
	subs, err := s.SubRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	// ListByCustomer returns newest StartDate first
	for _, sub := range subs {
		if sub.SubscriptionStatus.CanHoldEntitlements() {
			return sub, nil
		}
	}
	return nil, nil
}

// resolveFeature walks the precedence chain for one feature, first match wins
func (s *entitlementResolver) resolveFeature(ctx context.Context, customerID, featureID string, sub *subscription.Subscription, now time.Time) (*Resolution, error) {
	// 1. active promotional grant; customer-scoped, applies even without a
	// subscription
	grants, err := s.GrantRepo.ListActive(ctx, customerID, featureID, now)
	if err != nil {
		return nil, err
	}
	if len(grants) > 0 {
		eff, err := s.effectiveFromGrant(grants[0], sub)
		if err != nil {
			return nil, err
		}
		return &Resolution{FeatureID: featureID, Effective: eff, Subscription: sub}, nil
	}

	if sub == nil {
		return &Resolution{FeatureID: featureID, DeniedReason: types.DeniedReasonNoActiveSubscription}, nil
	}

	// 2. subscription-level override
	defs, err := s.EntitlementRepo.ListByFeature(ctx, types.EntitlementSourceSubscriptionOverride, sub.ID, 0, featureID)
	if err != nil {
		return nil, err
	}
	if eff, err := s.mergeLayer(defs, nil, sub); err != nil {
		return nil, err
	} else if eff != nil {
		return &Resolution{FeatureID: featureID, Effective: eff, Subscription: sub}, nil
	}

	// 3. entitlements from active, compatible addons
	addonDefs, attachedAt, err := s.addonDefinitions(ctx, sub, featureID)
	if err != nil {
		return nil, err
	}
	if eff, err := s.mergeLayer(addonDefs, attachedAt, sub); err != nil {
		return nil, err
	} else if eff != nil {
		return &Resolution{FeatureID: featureID, Effective: eff, Subscription: sub}, nil
	}

	// 4. the base plan's entitlement, else the nearest ancestor's
	eff, err := s.planDefinition(ctx, sub, featureID)
	if err != nil {
		return nil, err
	}
	if eff != nil {
		return &Resolution{FeatureID: featureID, Effective: eff, Subscription: sub}, nil
	}

	// 5. no source found; distinct from a zero limit
	return &Resolution{
		FeatureID:    featureID,
		Subscription: sub,
		DeniedReason: types.DeniedReasonNoFeatureEntitlementInSubscription,
	}, nil
}

// addonDefinitions collects entitlement definitions for the feature from the
// subscription's active, plan-compatible addons, along with each definition's
// attachment time for tie-breaking
func (s *entitlementResolver) addonDefinitions(ctx context.Context, sub *subscription.Subscription, featureID string) ([]*entitlement.Entitlement, map[string]time.Time, error) {
	assocs, err := s.AddonAssociationRepo.ListBySubscription(ctx, sub.ID)
	if err != nil {
		return nil, nil, err
	}

	var defs []*entitlement.Entitlement
	attachedAt := make(map[string]time.Time)
	for _, assoc := range assocs {
		if !assoc.IsActive() {
			continue
		}
		ad, err := s.AddonRepo.Get(ctx, assoc.AddonID)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, nil, err
		}
		if !ad.IsCompatibleWith(sub.PlanID) {
			continue
		}

		addonEnts, err := s.EntitlementRepo.ListByFeature(ctx, types.EntitlementSourceAddon, ad.ID, 0, featureID)
		if err != nil {
			return nil, nil, err
		}
		for _, def := range addonEnts {
			defs = append(defs, def)
			attachedAt[def.ID] = assoc.AttachedAt
		}
	}
	return defs, attachedAt, nil
}

// planDefinition resolves the plan-layer entitlement, walking the parent
// chain when the plan carries none of its own for the feature. The plan
// version is the one pinned on the subscription or the latest published one,
// per the configured policy; ancestors always resolve latest.
func (s *entitlementResolver) planDefinition(ctx context.Context, sub *subscription.Subscription, featureID string) (*entitlement.EffectiveEntitlement, error) {
	current, err := s.resolvePlanVersion(ctx, sub)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	for current != nil && !visited[current.ID] {
		visited[current.ID] = true

		defs, err := s.EntitlementRepo.ListByFeature(ctx, types.EntitlementSourcePlan, current.ID, current.Version, featureID)
		if err != nil {
			return nil, err
		}
		eff, err := s.mergeLayer(defs, nil, sub)
		if err != nil {
			return nil, err
		}
		if eff != nil {
			return eff, nil
		}

		if current.ParentPlanID == nil {
			return nil, nil
		}
		current, err = s.PlanRepo.Get(ctx, *current.ParentPlanID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
	}
	return nil, nil
}

// mergeLayer merges sibling definitions within one precedence layer. When
// any override-behavior sibling is present the layer reduces to the single
// winning override: lowest display order, ties broken by most recent
// attachment (addon layer) or earliest authoring. Otherwise all increment
// siblings sum their limits; the sum is unlimited if any sibling is, and
// soft only if every sibling is.
func (s *entitlementResolver) mergeLayer(defs []*entitlement.Entitlement, attachedAt map[string]time.Time, sub *subscription.Subscription) (*entitlement.EffectiveEntitlement, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	overrides := lo.Filter(defs, func(d *entitlement.Entitlement, _ int) bool {
		return d.Behavior == types.EntitlementBehaviorOverride
	})

	if len(overrides) > 0 {
		winner := overrides[0]
		for _, def := range overrides[1:] {
			if def.DisplayOrder < winner.DisplayOrder {
				winner = def
				continue
			}
			if def.DisplayOrder == winner.DisplayOrder && attachedAt != nil &&
				attachedAt[def.ID].After(attachedAt[winner.ID]) {
				winner = def
			}
		}
		return s.effectiveFromDefinition(winner, winner.UsageLimit, winner.IsSoftLimit, sub)
	}

	// all increment siblings
	base := defs[0]
	unlimited := false
	soft := true
	sum := decimal.Zero
	hasLimit := false
	for _, def := range defs {
		if def.DisplayOrder < base.DisplayOrder {
			base = def
		}
		if def.HasUnlimitedUsage {
			unlimited = true
		}
		if !def.IsSoftLimit {
			soft = false
		}
		if def.UsageLimit != nil {
			sum = sum.Add(*def.UsageLimit)
			hasLimit = true
		}
	}

	if unlimited {
		return s.effectiveFromDefinition(base, nil, soft, sub)
	}
	var limit *decimal.Decimal
	if hasLimit {
		limit = &sum
	}
	return s.effectiveFromDefinition(base, limit, soft, sub)
}

func (s *entitlementResolver) effectiveFromDefinition(def *entitlement.Entitlement, limit *decimal.Decimal, soft bool, sub *subscription.Subscription) (*entitlement.EffectiveEntitlement, error) {
	unlimited := def.HasUnlimitedUsage
	if limit != nil {
		unlimited = false
	}

	rp, err := s.bindResetPeriod(def.ResetPeriod, sub, def.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &entitlement.EffectiveEntitlement{
		FeatureID:         def.FeatureID,
		FeatureType:       def.FeatureType,
		Source:            def.EntityType,
		SourceID:          def.ID,
		IsEnabled:         def.IsEnabled,
		UsageLimit:        limit,
		IsSoftLimit:       soft,
		HasUnlimitedUsage: unlimited,
		ResetPeriod:       rp,
	}, nil
}

func (s *entitlementResolver) effectiveFromGrant(g *grant.PromotionalGrant, sub *subscription.Subscription) (*entitlement.EffectiveEntitlement, error) {
	// grants anchor subscription-relative periods to their own start date,
	// so they stay self-contained for customers without a subscription
	var rp *types.ResetPeriod
	if g.ResetPeriod != nil {
		bound := g.ResetPeriod.BindSubscriptionStart(g.StartDate)
		if err := bound.Validate(); err != nil {
			return nil, err
		}
		rp = &bound
	}

	featureType := types.FeatureTypeMetered
	if g.UsageLimit == nil && !g.HasUnlimitedUsage && rp == nil {
		featureType = types.FeatureTypeBoolean
	}

	return &entitlement.EffectiveEntitlement{
		FeatureID:         g.FeatureID,
		FeatureType:       featureType,
		Source:            types.EntitlementSourcePromotional,
		SourceID:          g.ID,
		IsEnabled:         true,
		UsageLimit:        g.UsageLimit,
		IsSoftLimit:       g.IsSoftLimit,
		HasUnlimitedUsage: g.HasUnlimitedUsage,
		ResetPeriod:       rp,
	}, nil
}

// bindResetPeriod binds an unbound subscription-start anchor and validates
// the combination; invalid configurations surface here, at merge time
func (s *entitlementResolver) bindResetPeriod(rp *types.ResetPeriod, sub *subscription.Subscription, fallback time.Time) (*types.ResetPeriod, error) {
	if rp == nil {
		return nil, nil
	}
	anchor := fallback
	if sub != nil {
		anchor = sub.StartDate
	}
	bound := rp.BindSubscriptionStart(anchor)
	if err := bound.Validate(); err != nil {
		return nil, err
	}
	return &bound, nil
}

// referencedFeatures enumerates every feature the customer's grants,
// overrides, addons and plan chain reference, deduplicated
func (s *entitlementResolver) referencedFeatures(ctx context.Context, customerID string, sub *subscription.Subscription, now time.Time) ([]string, error) {
	seen := map[string]bool{}
	var featureIDs []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			featureIDs = append(featureIDs, id)
		}
	}

	grants, err := s.GrantRepo.ListActive(ctx, customerID, "", now)
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		add(g.FeatureID)
	}

	if sub == nil {
		return featureIDs, nil
	}

	overrides, err := s.EntitlementRepo.ListByEntity(ctx, types.EntitlementSourceSubscriptionOverride, sub.ID, 0)
	if err != nil {
		return nil, err
	}
	for _, def := range overrides {
		add(def.FeatureID)
	}

	assocs, err := s.AddonAssociationRepo.ListBySubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	for _, assoc := range assocs {
		if !assoc.IsActive() {
			continue
		}
		addonDefs, err := s.EntitlementRepo.ListByEntity(ctx, types.EntitlementSourceAddon, assoc.AddonID, 0)
		if err != nil {
			return nil, err
		}
		for _, def := range addonDefs {
			add(def.FeatureID)
		}
	}

	current, err := s.resolvePlanVersion(ctx, sub)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{}
	for current != nil && !visited[current.ID] {
		visited[current.ID] = true
		planDefs, err := s.EntitlementRepo.ListByEntity(ctx, types.EntitlementSourcePlan, current.ID, current.Version)
		if err != nil {
			return nil, err
		}
		for _, def := range planDefs {
			add(def.FeatureID)
		}
		if current.ParentPlanID == nil {
			break
		}
		current, err = s.PlanRepo.Get(ctx, *current.ParentPlanID)
		if err != nil {
			if ierr.IsNotFound(err) {
				break
			}
			return nil, err
		}
	}

	return featureIDs, nil
}

func (s *entitlementResolver) resolvePlanVersion(ctx context.Context, sub *subscription.Subscription) (*plan.Plan, error) {
	var (
		p   *plan.Plan
		err error
	)
	if s.Config.Entitlement.VersionPolicy == types.VersionPolicyPinned && sub.PlanVersion > 0 {
		p, err = s.PlanRepo.GetVersion(ctx, sub.PlanID, sub.PlanVersion)
	} else {
		p, err = s.PlanRepo.Get(ctx, sub.PlanID)
	}
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
