package addonassociation

import "context"

// Repository provides access to addon attachments
type Repository interface {
	Create(ctx context.Context, a *AddonAssociation) error
	Get(ctx context.Context, id string) (*AddonAssociation, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*AddonAssociation, error)
	Update(ctx context.Context, a *AddonAssociation) error
	Delete(ctx context.Context, id string) error
}
