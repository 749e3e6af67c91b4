package service

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/api/dto"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// EntitlementService authors entitlement definitions. Configuration errors
// fail here, before a definition ever reaches evaluation.
type EntitlementService interface {
	CreateEntitlement(ctx context.Context, req *dto.CreateEntitlementRequest) (*dto.EntitlementResponse, error)
	GetEntitlement(ctx context.Context, id string) (*dto.EntitlementResponse, error)
	ListEntitlements(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int) (*dto.ListEntitlementsResponse, error)
	DeleteEntitlement(ctx context.Context, id string) error
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

func (s *entitlementService) CreateEntitlement(ctx context.Context, req *dto.CreateEntitlementRequest) (*dto.EntitlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	feat, err := s.FeatureRepo.Get(ctx, req.FeatureID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Feature %s does not exist", req.FeatureID).
			Mark(ierr.ErrNotFound)
	}

	if feat.Type == types.FeatureTypeBoolean {
		if req.UsageLimit != nil || req.HasUnlimitedUsage || req.ResetPeriod != nil {
			return nil, ierr.NewError("usage configuration on a boolean feature").
				WithHint("Boolean features carry no usage limits or reset periods").
				WithReportableDetails(map[string]any{
					"feature_id": req.FeatureID,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	if err := s.checkEntity(ctx, req); err != nil {
		return nil, err
	}

	ent := req.ToEntitlement(ctx, feat.Type)
	if err := ent.Validate(); err != nil {
		return nil, err
	}

	created, err := s.EntitlementRepo.Create(ctx, ent)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created entitlement definition",
		"entitlement_id", created.ID,
		"entity_type", created.EntityType,
		"entity_id", created.EntityID,
		"feature_id", created.FeatureID)
	return &dto.EntitlementResponse{Entitlement: created}, nil
}

// checkEntity verifies the declaring entity exists
func (s *entitlementService) checkEntity(ctx context.Context, req *dto.CreateEntitlementRequest) error {
	var err error
	switch req.EntityType {
	case types.EntitlementSourcePlan:
		if req.EntityVersion > 0 {
			_, err = s.PlanRepo.GetVersion(ctx, req.EntityID, req.EntityVersion)
		} else {
			_, err = s.PlanRepo.Get(ctx, req.EntityID)
		}
	case types.EntitlementSourceAddon:
		_, err = s.AddonRepo.Get(ctx, req.EntityID)
	case types.EntitlementSourceSubscriptionOverride:
		_, err = s.SubRepo.Get(ctx, req.EntityID)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Entity %s of type %s does not exist", req.EntityID, req.EntityType).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *entitlementService) GetEntitlement(ctx context.Context, id string) (*dto.EntitlementResponse, error) {
	ent, err := s.EntitlementRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.EntitlementResponse{Entitlement: ent}, nil
}

func (s *entitlementService) ListEntitlements(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int) (*dto.ListEntitlementsResponse, error) {
	ents, err := s.EntitlementRepo.ListByEntity(ctx, entityType, entityID, version)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.EntitlementResponse, len(ents))
	for i, ent := range ents {
		items[i] = &dto.EntitlementResponse{Entitlement: ent}
	}
	return &dto.ListEntitlementsResponse{Items: items, Total: len(items)}, nil
}

func (s *entitlementService) DeleteEntitlement(ctx context.Context, id string) error {
	return s.EntitlementRepo.Delete(ctx, id)
}
