package addonassociation

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// AddonAssociation attaches an addon to a subscription with a quantity.
// Only associations with quantity > 0 contribute entitlements.
type AddonAssociation struct {
	ID             string    `db:"id" json:"id"`
	SubscriptionID string    `db:"subscription_id" json:"subscription_id"`
	AddonID        string    `db:"addon_id" json:"addon_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	AttachedAt     time.Time `db:"attached_at" json:"attached_at"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the association
func (a *AddonAssociation) Validate() error {
	if a.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Please provide a valid subscription ID").
			Mark(ierr.ErrValidation)
	}
	if a.AddonID == "" {
		return ierr.NewError("addon_id is required").
			WithHint("Please provide a valid addon ID").
			Mark(ierr.ErrValidation)
	}
	if a.Quantity < 0 {
		return ierr.NewError("quantity cannot be negative").
			WithReportableDetails(map[string]any{
				"addon_id": a.AddonID,
				"quantity": a.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the association contributes entitlements
func (a *AddonAssociation) IsActive() bool {
	return a.Status == types.StatusPublished && a.Quantity > 0
}
