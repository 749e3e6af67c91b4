package inmemory

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/customer"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// CustomerRepository implements customer.Repository on the in-memory store
type CustomerRepository struct {
	*InMemoryStore[*customer.Customer]
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

type customerFilter struct {
	externalID string
}

func customerFilterFn(ctx context.Context, c *customer.Customer, filter interface{}) bool {
	if c == nil {
		return false
	}
	if !checkTenant(ctx, c.TenantID) || !checkEnvironment(ctx, c.EnvironmentID) {
		return false
	}

	filter_, ok := filter.(*customerFilter)
	if !ok {
		return true
	}
	if filter_.externalID != "" && c.ExternalID != filter_.externalID {
		return false
	}
	return true
}

func customerSortFn(i, j *customer.Customer) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return ierr.NewError("customer cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *CustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *CustomerRepository) GetByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	customers, err := s.InMemoryStore.List(ctx, &customerFilter{externalID: externalID}, customerFilterFn, customerSortFn)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with external ID %s was not found", externalID).
			Mark(ierr.ErrNotFound)
	}
	return customers[0], nil
}

func (s *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return ierr.NewError("customer cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, c.ID, c)
}

func (s *CustomerRepository) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
