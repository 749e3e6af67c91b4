package types

import (
	"time"

	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

// ResetPeriodKind is the calendar granularity on which a usage counter zeroes.
type ResetPeriodKind string

const (
	ResetPeriodDay   ResetPeriodKind = "day"
	ResetPeriodWeek  ResetPeriodKind = "week"
	ResetPeriodMonth ResetPeriodKind = "month"
	ResetPeriodYear  ResetPeriodKind = "year"
)

func (k ResetPeriodKind) String() string {
	return string(k)
}

func (k ResetPeriodKind) Validate() error {
	allowed := []ResetPeriodKind{
		ResetPeriodDay,
		ResetPeriodWeek,
		ResetPeriodMonth,
		ResetPeriodYear,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid reset period kind").
			WithHint("Reset period must be day, week, month or year").
			WithReportableDetails(map[string]any{
				"reset_period": k,
			}).
			Mark(ierr.ErrInvalidResetPeriod)
	}
	return nil
}

// ResetAnchorKind discriminates the anchor configuration variants. The source
// models these as mutually exclusive configuration shapes, so they are a
// tagged sum switched exhaustively by the clock.
type ResetAnchorKind string

const (
	// ResetAnchorCalendar anchors to the calendar unit start: midnight for
	// day, the first of the month for month
	ResetAnchorCalendar ResetAnchorKind = "calendar"
	// ResetAnchorWeekday anchors weekly periods to a fixed day of week
	ResetAnchorWeekday ResetAnchorKind = "weekday"
	// ResetAnchorSubscriptionStart anchors to the subscription start instant:
	// its weekday for week, its day-of-month for month, its date for year
	ResetAnchorSubscriptionStart ResetAnchorKind = "subscription_start"
)

// ResetAnchor fixes where a reset period begins within its granularity.
// Exactly one variant field is meaningful for a given Kind.
type ResetAnchor struct {
	Kind ResetAnchorKind `json:"kind"`

	// Weekday is set for ResetAnchorWeekday
	Weekday *time.Weekday `json:"weekday,omitempty"`

	// SubscriptionStart is set for ResetAnchorSubscriptionStart
	SubscriptionStart *time.Time `json:"subscription_start,omitempty"`
}

// ResetPeriod pairs a granularity with its anchor configuration.
type ResetPeriod struct {
	Kind   ResetPeriodKind `json:"kind"`
	Anchor ResetAnchor     `json:"anchor"`
}

// Validate rejects unrecognized period/anchor combinations. This is a
// configuration error surfaced at authoring or merge time, never retried.
func (p ResetPeriod) Validate() error {
	if err := p.Kind.Validate(); err != nil {
		return err
	}

	invalid := func() error {
		return ierr.NewError("invalid reset period anchor combination").
			WithHintf("Anchor %s cannot be used with a %s reset period", p.Anchor.Kind, p.Kind).
			WithReportableDetails(map[string]any{
				"reset_period": p.Kind,
				"anchor":       p.Anchor.Kind,
			}).
			Mark(ierr.ErrInvalidResetPeriod)
	}

	switch p.Kind {
	case ResetPeriodDay:
		if p.Anchor.Kind != ResetAnchorCalendar {
			return invalid()
		}
	case ResetPeriodWeek:
		switch p.Anchor.Kind {
		case ResetAnchorWeekday:
			if p.Anchor.Weekday == nil {
				return invalid()
			}
		case ResetAnchorSubscriptionStart:
			// SubscriptionStart may be unbound at authoring time; it is
			// bound from the subscription at resolution
		default:
			return invalid()
		}
	case ResetPeriodMonth:
		switch p.Anchor.Kind {
		case ResetAnchorCalendar, ResetAnchorSubscriptionStart:
		default:
			return invalid()
		}
	case ResetPeriodYear:
		if p.Anchor.Kind != ResetAnchorSubscriptionStart {
			return invalid()
		}
	}

	return nil
}

// CalendarReset returns a period anchored to the calendar unit start.
func CalendarReset(kind ResetPeriodKind) *ResetPeriod {
	return &ResetPeriod{
		Kind:   kind,
		Anchor: ResetAnchor{Kind: ResetAnchorCalendar},
	}
}

// WeekdayReset returns a weekly period anchored to the given day of week.
func WeekdayReset(day time.Weekday) *ResetPeriod {
	return &ResetPeriod{
		Kind:   ResetPeriodWeek,
		Anchor: ResetAnchor{Kind: ResetAnchorWeekday, Weekday: &day},
	}
}

// SubscriptionStartReset returns a period anchored to the subscription start.
func SubscriptionStartReset(kind ResetPeriodKind, start time.Time) *ResetPeriod {
	return &ResetPeriod{
		Kind:   kind,
		Anchor: ResetAnchor{Kind: ResetAnchorSubscriptionStart, SubscriptionStart: &start},
	}
}

// BindSubscriptionStart returns a copy with an unbound subscription-start
// anchor bound to the given instant. Periods with other anchor kinds, or an
// anchor already bound, are returned unchanged.
func (p ResetPeriod) BindSubscriptionStart(start time.Time) ResetPeriod {
	if p.Anchor.Kind == ResetAnchorSubscriptionStart && p.Anchor.SubscriptionStart == nil {
		p.Anchor.SubscriptionStart = &start
	}
	return p
}
