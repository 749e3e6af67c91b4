package budget

import (
	"context"

	"github.com/shopspring/decimal"
)

// SpendProvider is the external billing collaborator that accumulates
// subscription spend. The core only consults it; it never computes spend.
type SpendProvider interface {
	// GetSpend returns the accumulated spend for the subscription. The call
	// is bounded by the caller-supplied context deadline.
	GetSpend(ctx context.Context, subscriptionID string) (decimal.Decimal, error)
}

// Status is the budget guard's verdict for one subscription
type Status struct {
	WithinBudget bool            `json:"within_budget"`
	SpendSoFar   decimal.Decimal `json:"spend_so_far"`
	// Limit is the configured ceiling; nil means no budget cap is set
	Limit *decimal.Decimal `json:"limit,omitempty"`
}
