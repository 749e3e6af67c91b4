package types

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// UsageUpdateBehavior controls how a usage report moves the counter.
type UsageUpdateBehavior string

const (
	// UsageUpdateDelta adds the reported value to the counter. Deltas are
	// commutative so they are safe to apply concurrently and out of order.
	UsageUpdateDelta UsageUpdateBehavior = "DELTA"
	// UsageUpdateSet replaces the counter value, last-write-wins by event
	// timestamp. A stale SET is dropped silently.
	UsageUpdateSet UsageUpdateBehavior = "SET"
)

func (b UsageUpdateBehavior) String() string {
	return string(b)
}

func (b UsageUpdateBehavior) Validate() error {
	allowed := []UsageUpdateBehavior{
		UsageUpdateDelta,
		UsageUpdateSet,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid usage update behavior").
			WithHint("Update behavior must be SET or DELTA").
			WithReportableDetails(map[string]any{
				"update_behavior": b,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
