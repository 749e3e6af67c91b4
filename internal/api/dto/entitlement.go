package dto

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateEntitlementRequest represents the request to author a new
// entitlement definition
type CreateEntitlementRequest struct {
	EntityType    types.EntitlementSourceType `json:"entity_type" validate:"required"`
	EntityID      string                      `json:"entity_id" validate:"required"`
	EntityVersion int                         `json:"entity_version,omitempty"`
	FeatureID     string                      `json:"feature_id" validate:"required"`

	IsEnabled         bool                      `json:"is_enabled"`
	Behavior          types.EntitlementBehavior `json:"behavior"`
	UsageLimit        *decimal.Decimal          `json:"usage_limit,omitempty"`
	IsSoftLimit       bool                      `json:"is_soft_limit"`
	HasUnlimitedUsage bool                      `json:"has_unlimited_usage"`
	ResetPeriod       *types.ResetPeriod        `json:"reset_period,omitempty"`
	DisplayOrder      int                       `json:"display_order"`
	Metadata          types.Metadata            `json:"metadata,omitempty"`
}

func (r *CreateEntitlementRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.EntityType.Validate(); err != nil {
		return err
	}
	if r.EntityType == types.EntitlementSourcePromotional {
		return ierr.NewError("promotional entitlements are authored as grants").
			WithHint("Use the promotional grant API instead").
			Mark(ierr.ErrInvalidOperation)
	}
	if r.Behavior != "" {
		if err := r.Behavior.Validate(); err != nil {
			return err
		}
	}
	if r.ResetPeriod != nil {
		if err := r.ResetPeriod.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (r *CreateEntitlementRequest) ToEntitlement(ctx context.Context, featureType types.FeatureType) *entitlement.Entitlement {
	behavior := r.Behavior
	if behavior == "" {
		behavior = types.EntitlementBehaviorOverride
	}

	return &entitlement.Entitlement{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ENTITLEMENT),
		EntityType:        r.EntityType,
		EntityID:          r.EntityID,
		EntityVersion:     r.EntityVersion,
		FeatureID:         r.FeatureID,
		FeatureType:       featureType,
		IsEnabled:         r.IsEnabled,
		Behavior:          behavior,
		UsageLimit:        r.UsageLimit,
		IsSoftLimit:       r.IsSoftLimit,
		HasUnlimitedUsage: r.HasUnlimitedUsage,
		ResetPeriod:       r.ResetPeriod,
		DisplayOrder:      r.DisplayOrder,
		Metadata:          r.Metadata,
		EnvironmentID:     types.GetEnvironmentID(ctx),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

// EntitlementResponse represents the response for an entitlement definition
type EntitlementResponse struct {
	*entitlement.Entitlement
}

// ListEntitlementsResponse represents a list of entitlement definitions
type ListEntitlementsResponse struct {
	Items []*EntitlementResponse `json:"items"`
	Total int                    `json:"total"`
}
