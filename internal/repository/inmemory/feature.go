package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/feature"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// FeatureRepository implements feature.Repository on the in-memory store
type FeatureRepository struct {
	*InMemoryStore[*feature.Feature]
}

func NewFeatureRepository() *FeatureRepository {
	return &FeatureRepository{
		InMemoryStore: NewInMemoryStore[*feature.Feature](),
	}
}

type featureFilter struct {
	ids       []string
	lookupKey string
}

func featureFilterFn(ctx context.Context, f *feature.Feature, filter interface{}) bool {
	if f == nil {
		return false
	}
	if !checkTenant(ctx, f.TenantID) || !checkEnvironment(ctx, f.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*featureFilter)
	if !ok {
		return true
	}
	if len(filter_.ids) > 0 && !lo.Contains(filter_.ids, f.ID) {
		return false
	}
	if filter_.lookupKey != "" && f.LookupKey != filter_.lookupKey {
		return false
	}
	return true
}

func featureSortFn(i, j *feature.Feature) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *FeatureRepository) Create(ctx context.Context, f *feature.Feature) error {
	if f == nil {
		return ierr.NewError("feature cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, f.ID, f)
}

func (s *FeatureRepository) Get(ctx context.Context, id string) (*feature.Feature, error) {
	f, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Feature with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return f, nil
}

func (s *FeatureRepository) GetByLookupKey(ctx context.Context, lookupKey string) (*feature.Feature, error) {
	features, err := s.InMemoryStore.List(ctx, &featureFilter{lookupKey: lookupKey}, featureFilterFn, featureSortFn)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, ierr.NewError("feature not found").
			WithHintf("Feature with lookup key %s was not found", lookupKey).
			Mark(ierr.ErrNotFound)
	}
	return features[0], nil
}

func (s *FeatureRepository) List(ctx context.Context, ids []string) ([]*feature.Feature, error) {
	return s.InMemoryStore.List(ctx, &featureFilter{ids: ids}, featureFilterFn, featureSortFn)
}

func (s *FeatureRepository) ListAll(ctx context.Context) ([]*feature.Feature, error) {
	return s.InMemoryStore.List(ctx, nil, featureFilterFn, featureSortFn)
}

func (s *FeatureRepository) Update(ctx context.Context, f *feature.Feature) error {
	if f == nil {
		return ierr.NewError("feature cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, f.ID, f)
}

func (s *FeatureRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
