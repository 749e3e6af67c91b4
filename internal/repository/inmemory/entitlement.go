package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// EntitlementRepository implements entitlement.Repository on the in-memory store
type EntitlementRepository struct {
	*InMemoryStore[*entitlement.Entitlement]
}

func NewEntitlementRepository() *EntitlementRepository {
	return &EntitlementRepository{
		InMemoryStore: NewInMemoryStore[*entitlement.Entitlement](),
	}
}

type entitlementFilter struct {
	entityType types.EntitlementSourceType
	entityID   string
	version    int
	featureID  string
}

func entitlementFilterFn(ctx context.Context, e *entitlement.Entitlement, filter interface{}) bool {
	if e == nil {
		return false
	}
	if !checkTenant(ctx, e.TenantID) || !checkEnvironment(ctx, e.EnvironmentID) {
		return false
	}
	if e.Status != types.StatusPublished {
		return false
	}

	filter_, ok := filter.(*entitlementFilter)
	if !ok {
		return true
	}
	if e.EntityType != filter_.entityType || e.EntityID != filter_.entityID {
		return false
	}
	// plan definitions are versioned; addon and subscription definitions
	// are not
	if filter_.entityType == types.EntitlementSourcePlan && e.EntityVersion != filter_.version {
		return false
	}
	if filter_.featureID != "" && e.FeatureID != filter_.featureID {
		return false
	}
	return true
}

func entitlementSortFn(i, j *entitlement.Entitlement) bool {
	if i == nil || j == nil {
		return false
	}
	if i.DisplayOrder != j.DisplayOrder {
		return i.DisplayOrder < j.DisplayOrder
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *EntitlementRepository) Create(ctx context.Context, e *entitlement.Entitlement) (*entitlement.Entitlement, error) {
	if e == nil {
		return nil, ierr.NewError("entitlement cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, e.ID, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EntitlementRepository) Get(ctx context.Context, id string) (*entitlement.Entitlement, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Entitlement with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return e, nil
}

func (s *EntitlementRepository) ListByEntity(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int) ([]*entitlement.Entitlement, error) {
	return s.InMemoryStore.List(ctx, &entitlementFilter{
		entityType: entityType,
		entityID:   entityID,
		version:    version,
	}, entitlementFilterFn, entitlementSortFn)
}

func (s *EntitlementRepository) ListByFeature(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int, featureID string) ([]*entitlement.Entitlement, error) {
	return s.InMemoryStore.List(ctx, &entitlementFilter{
		entityType: entityType,
		entityID:   entityID,
		version:    version,
		featureID:  featureID,
	}, entitlementFilterFn, entitlementSortFn)
}

func (s *EntitlementRepository) Update(ctx context.Context, e *entitlement.Entitlement) (*entitlement.Entitlement, error) {
	if e == nil {
		return nil, ierr.NewError("entitlement cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, e.ID, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EntitlementRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
