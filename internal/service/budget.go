package service

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/cache"
	"github.com/flexprice/gatekeeper/internal/domain/budget"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
)

// budgetCacheTTL bounds how long a spend verdict is reused before the
// external provider is consulted again
const budgetCacheTTL = 30 * time.Second

// BudgetService tracks subscription-wide monetary spend caps, independent of
// per-feature limits. Spend is accumulated by an external billing
// collaborator; the guard only makes the binary cutover decision.
type BudgetService interface {
	// CheckBudget returns the budget verdict for the subscription. The
	// external lookup is bounded by the configured timeout; an error here
	// means the verdict is unknown and the caller must fail safe.
	CheckBudget(ctx context.Context, sub *subscription.Subscription) (*budget.Status, error)
}

type budgetService struct {
	ServiceParams
}

func NewBudgetService(params ServiceParams) BudgetService {
	return &budgetService{ServiceParams: params}
}

func (s *budgetService) CheckBudget(ctx context.Context, sub *subscription.Subscription) (*budget.Status, error) {
	if !s.Config.Budget.Enabled || sub == nil || sub.BudgetLimit == nil || s.SpendProvider == nil {
		return &budget.Status{WithinBudget: true}, nil
	}

	cacheKey := cache.GenerateKey(cache.PrefixBudget, sub.TenantID, sub.ID)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if status, ok := cached.(*budget.Status); ok {
			return status, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.Config.Budget.LookupTimeout)
	defer cancel()

	spend, err := s.SpendProvider.GetSpend(lookupCtx, sub.ID)
	if err != nil {
		return nil, err
	}

	status := &budget.Status{
		WithinBudget: spend.LessThan(*sub.BudgetLimit),
		SpendSoFar:   spend,
		Limit:        sub.BudgetLimit,
	}
	s.Cache.Set(ctx, cacheKey, status, budgetCacheTTL)
	return status, nil
}
