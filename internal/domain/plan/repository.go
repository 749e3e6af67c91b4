package plan

import "context"

// Repository provides access to published plan versions
type Repository interface {
	Create(ctx context.Context, p *Plan) error

	// Get returns the latest published version of the plan
	Get(ctx context.Context, id string) (*Plan, error)

	// GetVersion returns one specific published version of the plan
	GetVersion(ctx context.Context, id string, version int) (*Plan, error)

	List(ctx context.Context, ids []string) ([]*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id string) error
}
