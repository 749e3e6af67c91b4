package inmemory

import (
	"context"
	"fmt"

	"github.com/flexprice/gatekeeper/internal/domain/plan"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// PlanRepository implements plan.Repository on the in-memory store. Versions
// of one plan share the plan ID, so rows are keyed by (id, version).
type PlanRepository struct {
	*InMemoryStore[*plan.Plan]
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func planKey(id string, version int) string {
	return fmt.Sprintf("%s:v%d", id, version)
}

type planFilter struct {
	ids        []string
	id         string
	latestOnly bool
}

func planFilterFn(ctx context.Context, p *plan.Plan, filter interface{}) bool {
	if p == nil {
		return false
	}
	if !checkTenant(ctx, p.TenantID) || !checkEnvironment(ctx, p.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*planFilter)
	if !ok {
		return true
	}
	if filter_.id != "" && p.ID != filter_.id {
		return false
	}
	if len(filter_.ids) > 0 && !lo.Contains(filter_.ids, p.ID) {
		return false
	}
	if filter_.latestOnly && !p.IsLatest {
		return false
	}
	return true
}

func planSortFn(i, j *plan.Plan) bool {
	if i == nil || j == nil {
		return false
	}
	if i.ID != j.ID {
		return i.CreatedAt.After(j.CreatedAt)
	}
	return i.Version > j.Version
}

func (s *PlanRepository) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if p.IsLatest {
		// publishing a version supersedes the previous latest
		prior, err := s.InMemoryStore.List(ctx, &planFilter{id: p.ID, latestOnly: true}, planFilterFn, nil)
		if err != nil {
			return err
		}
		for _, old := range prior {
			old.IsLatest = false
			if err := s.InMemoryStore.Update(ctx, planKey(old.ID, old.Version), old); err != nil {
				return err
			}
		}
	}
	return s.InMemoryStore.Create(ctx, planKey(p.ID, p.Version), p)
}

func (s *PlanRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	plans, err := s.InMemoryStore.List(ctx, &planFilter{id: id, latestOnly: true}, planFilterFn, planSortFn)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return plans[0], nil
}

func (s *PlanRepository) GetVersion(ctx context.Context, id string, version int) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, planKey(id, version))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Plan %s version %d was not found", id, version).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

// List returns the latest version of each requested plan
func (s *PlanRepository) List(ctx context.Context, ids []string) ([]*plan.Plan, error) {
	return s.InMemoryStore.List(ctx, &planFilter{ids: ids, latestOnly: true}, planFilterFn, planSortFn)
}

func (s *PlanRepository) Update(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, planKey(p.ID, p.Version), p)
}

// Delete removes every version of the plan
func (s *PlanRepository) Delete(ctx context.Context, id string) error {
	versions, err := s.InMemoryStore.List(ctx, &planFilter{id: id}, planFilterFn, nil)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return ierr.NewError("plan not found").
			WithHintf("Plan with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	for _, v := range versions {
		if err := s.InMemoryStore.Delete(ctx, planKey(v.ID, v.Version)); err != nil {
			return err
		}
	}
	return nil
}
