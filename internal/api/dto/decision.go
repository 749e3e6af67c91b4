package dto

import (
	"time"

	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/shopspring/decimal"
)

// FetchEntitlementRequest asks for an access decision for one
// (customer, feature, resource) triple
type FetchEntitlementRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	FeatureID  string `json:"feature_id" validate:"required"`
	ResourceID string `json:"resource_id,omitempty"`

	// RequestedUsage projects the decision as if this amount were about to
	// be consumed; negative values are clamped to zero
	RequestedUsage *decimal.Decimal `json:"requested_usage,omitempty"`

	// ShouldTrack records the requested usage as a delta when access is
	// granted
	ShouldTrack bool `json:"should_track,omitempty"`
}

func (r *FetchEntitlementRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// FetchEntitlementsRequest asks for decisions across every feature the
// customer holds any entitlement to
type FetchEntitlementsRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ResourceID string `json:"resource_id,omitempty"`
}

func (r *FetchEntitlementsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// EntitlementDecision is the definitive access decision for one triple.
// Evaluation always returns a decision, never a fault, so callers can render
// synchronously.
type EntitlementDecision struct {
	FeatureID  string `json:"feature_id"`
	CustomerID string `json:"customer_id"`
	ResourceID string `json:"resource_id,omitempty"`

	HasAccess bool `json:"has_access"`
	// AccessDeniedReason is only set when access is denied
	AccessDeniedReason types.AccessDeniedReason `json:"access_denied_reason,omitempty"`

	CurrentUsage      decimal.Decimal  `json:"current_usage"`
	UsageLimit        *decimal.Decimal `json:"usage_limit,omitempty"`
	HasSoftLimit      bool             `json:"has_soft_limit"`
	HasUnlimitedUsage bool             `json:"has_unlimited_usage"`

	// NextResetDate is populated whenever a reset period applies, including
	// on denied decisions, so callers can show "resets on ..."
	NextResetDate *time.Time `json:"next_reset_date,omitempty"`

	// Source names the entitlement layer that won resolution
	Source types.EntitlementSourceType `json:"source,omitempty"`
}

// Denied builds a denial decision carrying the machine-readable reason
func Denied(req *FetchEntitlementRequest, reason types.AccessDeniedReason) *EntitlementDecision {
	return &EntitlementDecision{
		FeatureID:          req.FeatureID,
		CustomerID:         req.CustomerID,
		ResourceID:         req.ResourceID,
		HasAccess:          false,
		AccessDeniedReason: reason,
	}
}

// FetchEntitlementsResponse carries bulk decisions for a customer
type FetchEntitlementsResponse struct {
	Items []*EntitlementDecision `json:"items"`
	Total int                    `json:"total"`
}
