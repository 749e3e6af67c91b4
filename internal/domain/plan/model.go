package plan

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// Plan is a published package of entitlement definitions. Plans are
// versioned: publishing a change creates a new version and flips IsLatest;
// older versions stay resolvable for subscriptions pinned to them. A plan may
// inherit entitlements from a base plan via ParentPlanID.
type Plan struct {
	ID          string `db:"id" json:"id"`
	LookupKey   string `db:"lookup_key" json:"lookup_key"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`

	// ParentPlanID points at the base plan whose entitlements this plan
	// inherits when it carries none of its own for a feature
	ParentPlanID *string `db:"parent_plan_id" json:"parent_plan_id,omitempty"`

	Version  int  `db:"version" json:"version"`
	IsLatest bool `db:"is_latest" json:"is_latest"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the plan
func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Please provide a plan name").
			Mark(ierr.ErrValidation)
	}
	if p.Version < 1 {
		return ierr.NewError("plan version must be positive").
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
				"version": p.Version,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.ParentPlanID != nil && *p.ParentPlanID == p.ID {
		return ierr.NewError("plan cannot inherit from itself").
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
