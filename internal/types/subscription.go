package types

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusNotStarted SubscriptionStatus = "not_started"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired    SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusTrialing,
		SubscriptionStatusPastDue,
		SubscriptionStatusNotStarted,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanHoldEntitlements reports whether a subscription in this state
// contributes entitlement definitions at evaluation time. Cancelled, expired
// and not-yet-started subscriptions never do.
func (s SubscriptionStatus) CanHoldEntitlements() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}
