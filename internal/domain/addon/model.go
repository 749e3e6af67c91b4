package addon

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// Addon is an attachable package of entitlement definitions compatible with
// one or more plans.
type Addon struct {
	ID          string `db:"id" json:"id"`
	LookupKey   string `db:"lookup_key" json:"lookup_key"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`

	// CompatiblePlanIDs restricts which plans the addon may attach to;
	// empty means compatible with every plan
	CompatiblePlanIDs []string `db:"compatible_plan_ids" json:"compatible_plan_ids,omitempty"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the addon
func (a *Addon) Validate() error {
	if a.Name == "" {
		return ierr.NewError("addon name is required").
			WithHint("Please provide an addon name").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCompatibleWith reports whether the addon can attach to the given plan
func (a *Addon) IsCompatibleWith(planID string) bool {
	if len(a.CompatiblePlanIDs) == 0 {
		return true
	}
	for _, id := range a.CompatiblePlanIDs {
		if id == planID {
			return true
		}
	}
	return false
}
