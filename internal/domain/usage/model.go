package usage

import (
	"fmt"
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
)

// CounterKey identifies one usage counter. ResourceID is empty when the
// counter belongs to the customer as a whole.
type CounterKey struct {
	CustomerID string `json:"customer_id"`
	FeatureID  string `json:"feature_id"`
	ResourceID string `json:"resource_id,omitempty"`
}

func (k CounterKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.CustomerID, k.FeatureID, k.ResourceID)
}

// Validate performs validation on the key
func (k CounterKey) Validate() error {
	if k.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Please provide a valid customer ID").
			Mark(ierr.ErrValidation)
	}
	if k.FeatureID == "" {
		return ierr.NewError("feature_id is required").
			WithHint("Please provide a valid feature ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Counter is the usage counter for one key within one reset period. Counters
// are replaced, never mutated, on period rollover: the superseded counter is
// archived and a fresh zero counter takes its place.
type Counter struct {
	ID         string `db:"id" json:"id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	FeatureID  string `db:"feature_id" json:"feature_id"`
	ResourceID string `db:"resource_id" json:"resource_id,omitempty"`

	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	CurrentValue decimal.Decimal `db:"current_value" json:"current_value"`

	// LastWriteAt is the event timestamp of the latest applied write, the
	// monotonic guard for SET reports
	LastWriteAt time.Time `db:"last_write_at" json:"last_write_at"`

	EnvironmentID string `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Key returns the counter's identifying key
func (c *Counter) Key() CounterKey {
	return CounterKey{
		CustomerID: c.CustomerID,
		FeatureID:  c.FeatureID,
		ResourceID: c.ResourceID,
	}
}

// InPeriod reports whether the instant falls inside the counter's period
func (c *Counter) InPeriod(now time.Time) bool {
	return !now.Before(c.PeriodStart) && now.Before(c.PeriodEnd)
}

// Expired reports whether the counter's period has ended at the instant.
// A counter with a zero PeriodEnd never expires (no reset period configured).
func (c *Counter) Expired(now time.Time) bool {
	if c.PeriodEnd.IsZero() {
		return false
	}
	return !now.Before(c.PeriodEnd)
}

// NewCounter materializes a fresh zero counter for the key and period
func NewCounter(key CounterKey, periodStart, periodEnd time.Time, environmentID, tenantID string) *Counter {
	now := time.Now().UTC()
	return &Counter{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_COUNTER),
		CustomerID:    key.CustomerID,
		FeatureID:     key.FeatureID,
		ResourceID:    key.ResourceID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		CurrentValue:  decimal.Zero,
		EnvironmentID: environmentID,
		BaseModel: types.BaseModel{
			TenantID:  tenantID,
			Status:    types.StatusPublished,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
