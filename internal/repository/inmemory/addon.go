package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/addon"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// AddonRepository implements addon.Repository on the in-memory store
type AddonRepository struct {
	*InMemoryStore[*addon.Addon]
}

func NewAddonRepository() *AddonRepository {
	return &AddonRepository{
		InMemoryStore: NewInMemoryStore[*addon.Addon](),
	}
}

type addonFilter struct {
	ids []string
}

func addonFilterFn(ctx context.Context, a *addon.Addon, filter interface{}) bool {
	if a == nil {
		return false
	}
	if !checkTenant(ctx, a.TenantID) || !checkEnvironment(ctx, a.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*addonFilter)
	if !ok {
		return true
	}
	if len(filter_.ids) > 0 && !lo.Contains(filter_.ids, a.ID) {
		return false
	}
	return true
}

func addonSortFn(i, j *addon.Addon) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *AddonRepository) Create(ctx context.Context, a *addon.Addon) error {
	if a == nil {
		return ierr.NewError("addon cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, a.ID, a)
}

func (s *AddonRepository) Get(ctx context.Context, id string) (*addon.Addon, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Addon with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

func (s *AddonRepository) List(ctx context.Context, ids []string) ([]*addon.Addon, error) {
	return s.InMemoryStore.List(ctx, &addonFilter{ids: ids}, addonFilterFn, addonSortFn)
}

func (s *AddonRepository) Update(ctx context.Context, a *addon.Addon) error {
	if a == nil {
		return ierr.NewError("addon cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, a.ID, a)
}

func (s *AddonRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
