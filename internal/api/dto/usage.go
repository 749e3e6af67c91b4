package dto

import (
	"time"

	"github.com/flexprice/gatekeeper/internal/domain/usage"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/shopspring/decimal"
)

// ReportUsageRequest reports consumed usage against a counter
type ReportUsageRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	FeatureID  string `json:"feature_id" validate:"required"`
	ResourceID string `json:"resource_id,omitempty"`

	Value          decimal.Decimal           `json:"value"`
	UpdateBehavior types.UsageUpdateBehavior `json:"update_behavior" validate:"required"`

	// CreatedAt is the event timestamp used for SET ordering; arrival time
	// is used when absent
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// EventID identifies the source event for event-sourced reports; used to
	// derive an idempotency key when none is given
	EventID string `json:"event_id,omitempty"`

	// IdempotencyKey deduplicates at-least-once redelivery; a report with a
	// previously seen key is a no-op
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (r *ReportUsageRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.UpdateBehavior.Validate(); err != nil {
		return err
	}
	if r.UpdateBehavior == types.UsageUpdateSet && r.Value.IsNegative() {
		return ierr.NewError("SET value cannot be negative").
			WithHint("Counter values are never negative").
			WithReportableDetails(map[string]any{
				"value": r.Value.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Key returns the counter key addressed by the report
func (r *ReportUsageRequest) Key() usage.CounterKey {
	return usage.CounterKey{
		CustomerID: r.CustomerID,
		FeatureID:  r.FeatureID,
		ResourceID: r.ResourceID,
	}
}

// UsageResponse is the updated counter snapshot returned by report and read
type UsageResponse struct {
	CustomerID string `json:"customer_id"`
	FeatureID  string `json:"feature_id"`
	ResourceID string `json:"resource_id,omitempty"`

	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	CurrentValue decimal.Decimal `json:"current_value"`
}

// NewUsageResponse builds the snapshot from a counter
func NewUsageResponse(c *usage.Counter) *UsageResponse {
	return &UsageResponse{
		CustomerID:   c.CustomerID,
		FeatureID:    c.FeatureID,
		ResourceID:   c.ResourceID,
		PeriodStart:  c.PeriodStart,
		PeriodEnd:    c.PeriodEnd,
		CurrentValue: c.CurrentValue,
	}
}

// ClearCustomerCacheRequest forces cached entitlements and counter snapshots
// for the customer to be dropped and recomputed on next access
type ClearCustomerCacheRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ResourceID string `json:"resource_id,omitempty"`
}

func (r *ClearCustomerCacheRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GetUsageHistoryRequest lists archived counters for a key
type GetUsageHistoryRequest struct {
	CustomerID string    `json:"customer_id" validate:"required"`
	FeatureID  string    `json:"feature_id" validate:"required"`
	ResourceID string    `json:"resource_id,omitempty"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

func (r *GetUsageHistoryRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GetUsageHistoryResponse carries archived counter snapshots, newest first
type GetUsageHistoryResponse struct {
	Items []*UsageResponse `json:"items"`
	Total int              `json:"total"`
}
