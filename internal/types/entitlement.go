package types

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// EntitlementBehavior controls how sibling entitlement definitions within the
// same source layer combine. Override supersedes, increment sums usage limits.
// Behavior never stacks across layers; a higher-precedence layer fully
// replaces a lower one.
type EntitlementBehavior string

const (
	EntitlementBehaviorOverride  EntitlementBehavior = "override"
	EntitlementBehaviorIncrement EntitlementBehavior = "increment"
)

func (b EntitlementBehavior) String() string {
	return string(b)
}

func (b EntitlementBehavior) Validate() error {
	allowed := []EntitlementBehavior{
		EntitlementBehaviorOverride,
		EntitlementBehaviorIncrement,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid entitlement behavior").
			WithHint("Entitlement behavior must be override or increment").
			WithReportableDetails(map[string]any{
				"behavior": b,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EntitlementSourceType tags which layer of the customer's configuration an
// entitlement definition belongs to.
type EntitlementSourceType string

const (
	EntitlementSourcePlan                 EntitlementSourceType = "plan"
	EntitlementSourceAddon                EntitlementSourceType = "addon"
	EntitlementSourceSubscriptionOverride EntitlementSourceType = "subscription_override"
	EntitlementSourcePromotional          EntitlementSourceType = "promotional"
)

func (s EntitlementSourceType) String() string {
	return string(s)
}

func (s EntitlementSourceType) Validate() error {
	allowed := []EntitlementSourceType{
		EntitlementSourcePlan,
		EntitlementSourceAddon,
		EntitlementSourceSubscriptionOverride,
		EntitlementSourcePromotional,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid entitlement source type").
			WithHint("Invalid entitlement source type").
			WithReportableDetails(map[string]any{
				"source_type": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AccessDeniedReason is the closed set of machine-readable reasons carried by
// a denied entitlement decision.
type AccessDeniedReason string

const (
	DeniedReasonBudgetExceeded                     AccessDeniedReason = "BudgetExceeded"
	DeniedReasonCustomerIsArchived                 AccessDeniedReason = "CustomerIsArchived"
	DeniedReasonCustomerNotFound                   AccessDeniedReason = "CustomerNotFound"
	DeniedReasonCustomerResourceNotFound           AccessDeniedReason = "CustomerResourceNotFound"
	DeniedReasonFeatureNotFound                    AccessDeniedReason = "FeatureNotFound"
	DeniedReasonNoActiveSubscription               AccessDeniedReason = "NoActiveSubscription"
	DeniedReasonNoFeatureEntitlementInSubscription AccessDeniedReason = "NoFeatureEntitlementInSubscription"
	DeniedReasonRequestedUsageExceedingLimit       AccessDeniedReason = "RequestedUsageExceedingLimit"
	DeniedReasonUnknown                            AccessDeniedReason = "Unknown"
)

func (r AccessDeniedReason) String() string {
	return string(r)
}
