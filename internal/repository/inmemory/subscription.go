package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// SubscriptionRepository implements subscription.Repository on the in-memory
// store
type SubscriptionRepository struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

type subscriptionFilter struct {
	customerID string
}

func subscriptionFilterFn(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
	if sub == nil {
		return false
	}
	if !checkTenant(ctx, sub.TenantID) || !checkEnvironment(ctx, sub.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*subscriptionFilter)
	if !ok {
		return true
	}
	if filter_.customerID != "" && sub.CustomerID != filter_.customerID {
		return false
	}
	return true
}

func subscriptionSortFn(i, j *subscription.Subscription) bool {
	if i == nil || j == nil {
		return false
	}
	return i.StartDate.After(j.StartDate)
}

func (s *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (s *SubscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Subscription with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *SubscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, &subscriptionFilter{customerID: customerID}, subscriptionFilterFn, subscriptionSortFn)
}

func (s *SubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, sub.ID, sub)
}

func (s *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
