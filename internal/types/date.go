package types

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
)

// PeriodBounds computes the reset period containing ref for the given period
// configuration, in the given time zone. It is pure and performs no I/O.
//
// The returned pair always satisfies start <= ref < end. The period is
// computed directly from the anchor, never by iterating period-by-period, so
// the cost is O(1) no matter how many periods have elapsed since the anchor.
//
// Anchors that name a day that does not exist in the target month (day 31 in
// February, Feb 29 in a non-leap year) clamp to the last day of that month.
// An unrecognized period/anchor combination returns ErrInvalidResetPeriod.
func PeriodBounds(p ResetPeriod, ref time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if err := p.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if p.Anchor.Kind == ResetAnchorSubscriptionStart && p.Anchor.SubscriptionStart == nil {
		return time.Time{}, time.Time{}, ierr.NewError("subscription start anchor is not bound").
			WithHint("Bind the anchor to a subscription start before computing bounds").
			Mark(ierr.ErrInvalidResetPeriod)
	}

	local := ref.In(loc)

	switch p.Kind {
	case ResetPeriodDay:
		y, m, d := local.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, time.Date(y, m, d+1, 0, 0, 0, 0, loc), nil

	case ResetPeriodWeek:
		var anchorDay time.Weekday
		switch p.Anchor.Kind {
		case ResetAnchorWeekday:
			anchorDay = *p.Anchor.Weekday
		case ResetAnchorSubscriptionStart:
			anchorDay = p.Anchor.SubscriptionStart.In(loc).Weekday()
		}
		y, m, d := local.Date()
		offset := (int(local.Weekday()) - int(anchorDay) + 7) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 7), nil

	case ResetPeriodMonth:
		if p.Anchor.Kind == ResetAnchorCalendar {
			y, m, _ := local.Date()
			start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
			return start, time.Date(y, m+1, 1, 0, 0, 0, 0, loc), nil
		}
		anchor := p.Anchor.SubscriptionStart.In(loc)
		day := anchor.Day()
		h, min, sec := anchor.Clock()
		y, m, _ := local.Date()
		start := clampedDate(y, m, day, h, min, sec, loc)
		if start.After(local) {
			start = clampedDate(y, m-1, day, h, min, sec, loc)
		}
		end := clampedDate(start.Year(), start.Month()+1, day, h, min, sec, loc)
		return start, end, nil

	case ResetPeriodYear:
		anchor := p.Anchor.SubscriptionStart.In(loc)
		_, am, ad := anchor.Date()
		h, min, sec := anchor.Clock()
		start := clampedDate(local.Year(), am, ad, h, min, sec, loc)
		if start.After(local) {
			start = clampedDate(local.Year()-1, am, ad, h, min, sec, loc)
		}
		end := clampedDate(start.Year()+1, am, ad, h, min, sec, loc)
		return start, end, nil
	}

	return time.Time{}, time.Time{}, ierr.NewError("invalid reset period kind").
		WithReportableDetails(map[string]any{
			"reset_period": p.Kind,
		}).
		Mark(ierr.ErrInvalidResetPeriod)
}

// clampedDate builds a date from nominal components, normalizing month
// overflow and clamping the day to the last valid day of the target month.
func clampedDate(year int, month time.Month, day, hour, min, sec int, loc *time.Location) time.Time {
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}

	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month, day, hour, min, sec, 0, loc)
}

// AddClampedDate adds years/months/days to t, clamping the resulting day to
// the last valid day of the target month. Unlike time.AddDate, adding one
// month to January 31 lands on the last day of February instead of rolling
// into March.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	out := clampedDate(y+years, time.Month(int(m)+months), d, h, min, sec, t.Location())
	if days != 0 {
		out = out.AddDate(0, 0, days)
	}
	return out
}
