package dto

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/domain/grant"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateGrantRequest represents the request to author a promotional grant
type CreateGrantRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	FeatureID  string `json:"feature_id" validate:"required"`

	Period    types.GrantPeriod `json:"period" validate:"required"`
	StartDate *time.Time        `json:"start_date,omitempty"`
	// EndDate is required for custom period grants and derived from the
	// period otherwise
	EndDate *time.Time `json:"end_date,omitempty"`

	UsageLimit        *decimal.Decimal   `json:"usage_limit,omitempty"`
	IsSoftLimit       bool               `json:"is_soft_limit"`
	HasUnlimitedUsage bool               `json:"has_unlimited_usage"`
	ResetPeriod       *types.ResetPeriod `json:"reset_period,omitempty"`
	DisplayOrder      int                `json:"display_order"`
	Metadata          types.Metadata     `json:"metadata,omitempty"`
}

func (r *CreateGrantRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Period.Validate()
}

func (r *CreateGrantRequest) ToGrant(ctx context.Context) *grant.PromotionalGrant {
	start := time.Now().UTC()
	if r.StartDate != nil {
		start = r.StartDate.UTC()
	}

	end := r.EndDate
	if end == nil {
		end = r.Period.EndDate(start)
	}

	return &grant.PromotionalGrant{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GRANT),
		CustomerID:        r.CustomerID,
		FeatureID:         r.FeatureID,
		Period:            r.Period,
		StartDate:         start,
		EndDate:           end,
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

// GrantResponse represents the response for a promotional grant
type GrantResponse struct {
	*grant.PromotionalGrant
}

// ListGrantsResponse represents a list of promotional grants
type ListGrantsResponse struct {
	Items []*GrantResponse `json:"items"`
	Total int              `json:"total"`
}
