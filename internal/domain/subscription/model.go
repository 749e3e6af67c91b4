package subscription

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription binds a customer to a plan version. Its start date anchors
// subscription-relative reset periods and its budget limit feeds the budget
// guard.
type Subscription struct {
	ID         string `db:"id" json:"id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	PlanID     string `db:"plan_id" json:"plan_id"`

	// PlanVersion is the plan version captured at subscription time; used
	// when the version policy is pinned
	PlanVersion int `db:"plan_version" json:"plan_version"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`

	// TimeZone is the IANA zone reset periods are computed in for this
	// subscription; empty means UTC
	TimeZone string `db:"time_zone" json:"time_zone,omitempty"`

	// BudgetLimit is the subscription-wide monetary spend ceiling; nil means
	// no budget cap
	BudgetLimit *decimal.Decimal `db:"budget_limit" json:"budget_limit,omitempty"`

	Metadata      types.Metadata `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string         `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the subscription
func (s *Subscription) Validate() error {
	if s.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Please provide a valid customer ID").
			Mark(ierr.ErrValidation)
	}
	if s.PlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if s.EndDate != nil && !s.EndDate.After(s.StartDate) {
		return ierr.NewError("end_date must be after start_date").
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.BudgetLimit != nil && s.BudgetLimit.IsNegative() {
		return ierr.NewError("budget_limit cannot be negative").
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
				"budget_limit":    s.BudgetLimit.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Location resolves the subscription's time zone, defaulting to UTC
func (s *Subscription) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
