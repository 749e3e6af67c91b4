package grant

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
)

// PromotionalGrant is a time-bounded entitlement override attached directly
// to a customer, independent of the subscribed package. It only contributes
// to resolution while now is inside [StartDate, EndDate).
type PromotionalGrant struct {
	ID         string `db:"id" json:"id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	FeatureID  string `db:"feature_id" json:"feature_id"`

	Period    types.GrantPeriod `db:"period" json:"period"`
	StartDate time.Time         `db:"start_date" json:"start_date"`
	// EndDate is nil for lifetime grants
	EndDate *time.Time `db:"end_date" json:"end_date,omitempty"`

	UsageLimit        *decimal.Decimal   `db:"usage_limit" json:"usage_limit,omitempty"`
	IsSoftLimit       bool               `db:"is_soft_limit" json:"is_soft_limit"`
	HasUnlimitedUsage bool               `db:"has_unlimited_usage" json:"has_unlimited_usage"`
	ResetPeriod       *types.ResetPeriod `db:"reset_period" json:"reset_period,omitempty"`

	// DisplayOrder breaks ties between overlapping grants, ascending wins
	DisplayOrder int `db:"display_order" json:"display_order"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the grant
func (g *PromotionalGrant) Validate() error {
	if g.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Please provide a valid customer ID").
			Mark(ierr.ErrValidation)
	}
	if g.FeatureID == "" {
		return ierr.NewError("feature_id is required").
			WithHint("Please provide a valid feature ID").
			Mark(ierr.ErrValidation)
	}
	if err := g.Period.Validate(); err != nil {
		return err
	}
	if g.Period == types.GrantPeriodCustom && g.EndDate == nil {
		return ierr.NewError("end_date is required for custom period grants").
			WithHint("Custom grants must carry an explicit end date").
			Mark(ierr.ErrValidation)
	}
	if g.EndDate != nil && !g.EndDate.After(g.StartDate) {
		return ierr.NewError("end_date must be after start_date").
			WithReportableDetails(map[string]any{
				"start_date": g.StartDate,
				"end_date":   g.EndDate,
			}).
			Mark(ierr.ErrValidation)
	}
	if g.HasUnlimitedUsage && g.UsageLimit != nil {
		return ierr.NewError("usage_limit cannot be set on an unlimited grant").
			WithHint("Remove the usage limit or the unlimited flag").
			Mark(ierr.ErrValidation)
	}
	if g.ResetPeriod != nil {
		if err := g.ResetPeriod.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsActiveAt reports whether the grant contributes at the given instant
func (g *PromotionalGrant) IsActiveAt(now time.Time) bool {
	if g.Status != types.StatusPublished {
		return false
	}
	if now.Before(g.StartDate) {
		return false
	}
	if g.EndDate != nil && !now.Before(*g.EndDate) {
		return false
	}
	return true
}
