package inmemory

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/domain/grant"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// GrantRepository implements grant.Repository on the in-memory store
type GrantRepository struct {
	*InMemoryStore[*grant.PromotionalGrant]
}

func NewGrantRepository() *GrantRepository {
	return &GrantRepository{
		InMemoryStore: NewInMemoryStore[*grant.PromotionalGrant](),
	}
}

type grantFilter struct {
	customerID string
	featureID  string
	activeAt   *time.Time
}

func grantFilterFn(ctx context.Context, g *grant.PromotionalGrant, filter interface{}) bool {
	if g == nil {
		return false
	}
	if !checkTenant(ctx, g.TenantID) || !checkEnvironment(ctx, g.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*grantFilter)
	if !ok {
		return true
	}
	if filter_.customerID != "" && g.CustomerID != filter_.customerID {
		return false
	}
	if filter_.featureID != "" && g.FeatureID != filter_.featureID {
		return false
	}
	if filter_.activeAt != nil && !g.IsActiveAt(*filter_.activeAt) {
		return false
	}
	return true
}

func grantSortFn(i, j *grant.PromotionalGrant) bool {
	if i == nil || j == nil {
		return false
	}
	if i.DisplayOrder != j.DisplayOrder {
		return i.DisplayOrder < j.DisplayOrder
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *GrantRepository) Create(ctx context.Context, g *grant.PromotionalGrant) (*grant.PromotionalGrant, error) {
	if g == nil {
		return nil, ierr.NewError("grant cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, g.ID, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GrantRepository) Get(ctx context.Context, id string) (*grant.PromotionalGrant, error) {
	g, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Promotional grant with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return g, nil
}

func (s *GrantRepository) ListActive(ctx context.Context, customerID, featureID string, now time.Time) ([]*grant.PromotionalGrant, error) {
	return s.InMemoryStore.List(ctx, &grantFilter{
		customerID: customerID,
		featureID:  featureID,
		activeAt:   &now,
	}, grantFilterFn, grantSortFn)
}

func (s *GrantRepository) ListByCustomer(ctx context.Context, customerID string) ([]*grant.PromotionalGrant, error) {
	return s.InMemoryStore.List(ctx, &grantFilter{customerID: customerID}, grantFilterFn, grantSortFn)
}

func (s *GrantRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
