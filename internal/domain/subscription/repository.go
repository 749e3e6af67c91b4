package subscription

import "context"

// Repository provides access to subscriptions
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)

	// ListByCustomer returns all subscriptions held by the customer,
	// regardless of state
	ListByCustomer(ctx context.Context, customerID string) ([]*Subscription, error)

	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, id string) error
}
