package types

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// GrantPeriod is the nominal validity duration of a promotional grant.
type GrantPeriod string

const (
	GrantPeriodOneWeek  GrantPeriod = "one_week"
	GrantPeriodOneMonth GrantPeriod = "one_month"
	GrantPeriodSixMonth GrantPeriod = "six_month"
	GrantPeriodOneYear  GrantPeriod = "one_year"
	GrantPeriodLifetime GrantPeriod = "lifetime"
	// GrantPeriodCustom carries an explicit end date instead of a nominal duration
	GrantPeriodCustom GrantPeriod = "custom"
)

func (p GrantPeriod) String() string {
	return string(p)
}

func (p GrantPeriod) Validate() error {
	allowed := []GrantPeriod{
		GrantPeriodOneWeek,
		GrantPeriodOneMonth,
		GrantPeriodSixMonth,
		GrantPeriodOneYear,
		GrantPeriodLifetime,
		GrantPeriodCustom,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid grant period").
			WithHint("Invalid promotional grant period").
			WithReportableDetails(map[string]any{
				"period": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EndDate returns the grant's end instant for a given start. Lifetime grants
// have no end and return nil; custom grants carry their own end date and also
// return nil here.
func (p GrantPeriod) EndDate(start time.Time) *time.Time {
	switch p {
	case GrantPeriodOneWeek:
		return lo.ToPtr(AddClampedDate(start, 0, 0, 7))
	case GrantPeriodOneMonth:
		return lo.ToPtr(AddClampedDate(start, 0, 1, 0))
	case GrantPeriodSixMonth:
		return lo.ToPtr(AddClampedDate(start, 0, 6, 0))
	case GrantPeriodOneYear:
		return lo.ToPtr(AddClampedDate(start, 1, 0, 0))
	default:
		return nil
	}
}
