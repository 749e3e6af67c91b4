package entitlement

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
)

// Entitlement is a single entitlement definition attached to a plan, an
// addon, or a subscription override. Definitions are versioned and immutable
// once published; authoring a change produces a new version that supersedes
// the old one for new evaluations.
type Entitlement struct {
	ID            string                      `db:"id" json:"id"`
	EntityType    types.EntitlementSourceType `db:"entity_type" json:"entity_type"`
	EntityID      string                      `db:"entity_id" json:"entity_id"`
	// EntityVersion is the plan version the definition belongs to; zero for
	// addon and subscription-override definitions, which are unversioned
	EntityVersion int               `db:"entity_version" json:"entity_version,omitempty"`
	FeatureID     string            `db:"feature_id" json:"feature_id"`
	FeatureType   types.FeatureType `db:"feature_type" json:"feature_type"`
	IsEnabled     bool              `db:"is_enabled" json:"is_enabled"`

	// Behavior controls merging with sibling definitions in the same layer
	Behavior types.EntitlementBehavior `db:"behavior" json:"behavior"`

	UsageLimit        *decimal.Decimal   `db:"usage_limit" json:"usage_limit,omitempty"`
	IsSoftLimit       bool               `db:"is_soft_limit" json:"is_soft_limit"`
	HasUnlimitedUsage bool               `db:"has_unlimited_usage" json:"has_unlimited_usage"`
	ResetPeriod       *types.ResetPeriod `db:"reset_period" json:"reset_period,omitempty"`

	// DisplayOrder is the tie-break priority, ascending = higher priority
	DisplayOrder int `db:"display_order" json:"display_order"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the entitlement definition. Configuration
// errors fail the authoring operation before the definition ever reaches
// evaluation.
func (e *Entitlement) Validate() error {
	if e.FeatureID == "" {
		return ierr.NewError("feature_id is required").
			WithHint("Please provide a valid feature ID").
			Mark(ierr.ErrValidation)
	}
	if err := e.EntityType.Validate(); err != nil {
		return err
	}
	if err := e.FeatureType.Validate(); err != nil {
		return err
	}
	if err := e.Behavior.Validate(); err != nil {
		return err
	}

	switch e.FeatureType {
	case types.FeatureTypeBoolean:
		// Boolean features reduce to granted vs not granted; usage fields
		// are ignored entirely.
	case types.FeatureTypeMetered:
		if e.HasUnlimitedUsage && e.UsageLimit != nil {
			return ierr.NewError("usage_limit cannot be set on an unlimited entitlement").
				WithHint("Remove the usage limit or the unlimited flag").
				WithReportableDetails(map[string]any{
					"feature_id": e.FeatureID,
				}).
				Mark(ierr.ErrValidation)
		}
		if e.UsageLimit != nil && e.UsageLimit.IsNegative() {
			return ierr.NewError("usage_limit cannot be negative").
				WithHint("Usage limit must be zero or positive").
				WithReportableDetails(map[string]any{
					"feature_id":  e.FeatureID,
					"usage_limit": e.UsageLimit.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		if e.ResetPeriod != nil {
			if err := e.ResetPeriod.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

// EffectiveEntitlement is the single merged definition governing a
// (customer, feature, resource) pair at evaluation time. It is ephemeral,
// computed per evaluation and never persisted. Exactly one exists per pair
// per evaluation.
type EffectiveEntitlement struct {
	FeatureID   string                      `json:"feature_id"`
	FeatureType types.FeatureType           `json:"feature_type"`
	Source      types.EntitlementSourceType `json:"source"`
	// SourceID identifies the winning definition or grant
	SourceID string `json:"source_id"`

	IsEnabled         bool               `json:"is_enabled"`
	UsageLimit        *decimal.Decimal   `json:"usage_limit,omitempty"`
	IsSoftLimit       bool               `json:"is_soft_limit"`
	HasUnlimitedUsage bool               `json:"has_unlimited_usage"`
	ResetPeriod       *types.ResetPeriod `json:"reset_period,omitempty"`
}
