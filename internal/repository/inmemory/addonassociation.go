package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/addonassociation"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// AddonAssociationRepository implements addonassociation.Repository on the
// in-memory store
type AddonAssociationRepository struct {
	*InMemoryStore[*addonassociation.AddonAssociation]
}

func NewAddonAssociationRepository() *AddonAssociationRepository {
	return &AddonAssociationRepository{
		InMemoryStore: NewInMemoryStore[*addonassociation.AddonAssociation](),
	}
}

type addonAssociationFilter struct {
	subscriptionID string
}

func addonAssociationFilterFn(ctx context.Context, a *addonassociation.AddonAssociation, filter interface{}) bool {
	if a == nil {
		return false
	}
	if !checkTenant(ctx, a.TenantID) || !checkEnvironment(ctx, a.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*addonAssociationFilter)
	if !ok {
		return true
	}
	if filter_.subscriptionID != "" && a.SubscriptionID != filter_.subscriptionID {
		return false
	}
	return true
}

func addonAssociationSortFn(i, j *addonassociation.AddonAssociation) bool {
	if i == nil || j == nil {
		return false
	}
	return i.AttachedAt.After(j.AttachedAt)
}

func (s *AddonAssociationRepository) Create(ctx context.Context, a *addonassociation.AddonAssociation) error {
	if a == nil {
		return ierr.NewError("addon association cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, a.ID, a)
}

func (s *AddonAssociationRepository) Get(ctx context.Context, id string) (*addonassociation.AddonAssociation, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Addon association with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

func (s *AddonAssociationRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*addonassociation.AddonAssociation, error) {
	return s.InMemoryStore.List(ctx, &addonAssociationFilter{subscriptionID: subscriptionID}, addonAssociationFilterFn, addonAssociationSortFn)
}

func (s *AddonAssociationRepository) Update(ctx context.Context, a *addonassociation.AddonAssociation) error {
	if a == nil {
		return ierr.NewError("addon association cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, a.ID, a)
}

func (s *AddonAssociationRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
