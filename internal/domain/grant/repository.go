package grant

import (
	"context"
	"time"
)

// Repository provides access to promotional grants
type Repository interface {
	Create(ctx context.Context, g *PromotionalGrant) (*PromotionalGrant, error)
	Get(ctx context.Context, id string) (*PromotionalGrant, error)

	// ListActive returns the grants for (customer, feature) whose validity
	// window contains now. An empty featureID matches all features.
	ListActive(ctx context.Context, customerID, featureID string, now time.Time) ([]*PromotionalGrant, error)

	ListByCustomer(ctx context.Context, customerID string) ([]*PromotionalGrant, error)
	Delete(ctx context.Context, id string) error
}
