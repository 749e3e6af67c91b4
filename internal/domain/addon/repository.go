package addon

import "context"

// Repository provides access to the addon catalog
type Repository interface {
	Create(ctx context.Context, a *Addon) error
	Get(ctx context.Context, id string) (*Addon, error)
	List(ctx context.Context, ids []string) ([]*Addon, error)
	Update(ctx context.Context, a *Addon) error
	Delete(ctx context.Context, id string) error
}
