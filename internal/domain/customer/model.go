package customer

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// Customer is the subject of entitlement evaluation. Resources model
// sub-scopes of a customer (seats, projects, workspaces) that carry their own
// usage counters.
type Customer struct {
	ID         string `db:"id" json:"id"`
	ExternalID string `db:"external_id" json:"external_id"`
	Name       string `db:"name" json:"name"`

	// ResourceIDs enumerates the customer's known resources; a decision for
	// an unknown resource is denied with CustomerResourceNotFound
	ResourceIDs []string `db:"resource_ids" json:"resource_ids,omitempty"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the customer
func (c *Customer) Validate() error {
	if c.ExternalID == "" {
		return ierr.NewError("external_id is required").
			WithHint("Please provide a valid external customer ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsArchived reports whether the customer has been archived
func (c *Customer) IsArchived() bool {
	return c.Status == types.StatusArchived
}

// HasResource reports whether the resource ID is known for this customer.
// An empty resource ID always matches, it addresses the customer itself.
func (c *Customer) HasResource(resourceID string) bool {
	if resourceID == "" {
		return true
	}
	for _, id := range c.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}
