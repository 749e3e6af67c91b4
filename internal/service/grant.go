package service

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/api/dto"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// GrantService authors promotional grants, the time-bounded entitlement
// overrides attached directly to customers.
type GrantService interface {
	CreateGrant(ctx context.Context, req *dto.CreateGrantRequest) (*dto.GrantResponse, error)
	GetGrant(ctx context.Context, id string) (*dto.GrantResponse, error)
	ListGrants(ctx context.Context, customerID string) (*dto.ListGrantsResponse, error)
	DeleteGrant(ctx context.Context, id string) error
}

type grantService struct {
	ServiceParams
	resolver EntitlementResolver
}

func NewGrantService(params ServiceParams, resolver EntitlementResolver) GrantService {
	return &grantService{ServiceParams: params, resolver: resolver}
}

func (s *grantService) CreateGrant(ctx context.Context, req *dto.CreateGrantRequest) (*dto.GrantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.CustomerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Customer %s does not exist", req.CustomerID).
			Mark(ierr.ErrNotFound)
	}
	if _, err := s.FeatureRepo.Get(ctx, req.FeatureID); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Feature %s does not exist", req.FeatureID).
			Mark(ierr.ErrNotFound)
	}

	g := req.ToGrant(ctx)
	if err := g.Validate(); err != nil {
		return nil, err
	}

	created, err := s.GrantRepo.Create(ctx, g)
	if err != nil {
		return nil, err
	}

	// the grant outranks every cached resolution for this customer
	s.resolver.ClearCustomer(ctx, req.CustomerID)

	s.Logger.Infow("created promotional grant",
		"grant_id", created.ID,
		"customer_id", created.CustomerID,
		"feature_id", created.FeatureID,
		"period", created.Period)
	return &dto.GrantResponse{PromotionalGrant: created}, nil
}

func (s *grantService) GetGrant(ctx context.Context, id string) (*dto.GrantResponse, error) {
	g, err := s.GrantRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.GrantResponse{PromotionalGrant: g}, nil
}

func (s *grantService) ListGrants(ctx context.Context, customerID string) (*dto.ListGrantsResponse, error) {
	grants, err := s.GrantRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.GrantResponse, len(grants))
	for i, g := range grants {
		items[i] = &dto.GrantResponse{PromotionalGrant: g}
	}
	return &dto.ListGrantsResponse{Items: items, Total: len(items)}, nil
}

func (s *grantService) DeleteGrant(ctx context.Context, id string) error {
	g, err := s.GrantRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.GrantRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.ClearCustomer(ctx, g.CustomerID)
	return nil
}
