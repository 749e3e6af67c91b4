package entitlement

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/types"
)

// Repository provides access to published entitlement definitions.
// Definitions are owned by the plan/addon/subscription aggregate that
// declares them and are read-only to the evaluation core.
type Repository interface {
	Create(ctx context.Context, e *Entitlement) (*Entitlement, error)
	Get(ctx context.Context, id string) (*Entitlement, error)

	// ListByEntity returns the published definitions attached to one source
	// entity. Version selects a plan version; it is ignored for addon and
	// subscription sources, which are unversioned.
	ListByEntity(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int) ([]*Entitlement, error)

	// ListByFeature narrows ListByEntity to a single feature
	ListByFeature(ctx context.Context, entityType types.EntitlementSourceType, entityID string, version int, featureID string) ([]*Entitlement, error)

	Update(ctx context.Context, e *Entitlement) (*Entitlement, error)
	Delete(ctx context.Context, id string) error
}
