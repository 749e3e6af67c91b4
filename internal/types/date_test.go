package types

import (
	"testing"
	"time"
)

var (
	ist = time.FixedZone("IST", 5*60*60+30*60)
	pst = time.FixedZone("PST", -8*60*60)
)

func TestPeriodBounds_Day(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid day UTC",
			ref:       time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "exactly midnight",
			ref:       time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "timezone shifts the local date",
			ref:       time.Date(2024, time.March, 10, 22, 0, 0, 0, time.UTC),
			loc:       ist,
			wantStart: time.Date(2024, time.March, 11, 0, 0, 0, 0, ist),
			wantEnd:   time.Date(2024, time.March, 12, 0, 0, 0, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PeriodBounds(*CalendarReset(ResetPeriodDay), tt.ref, tt.loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("got [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPeriodBounds_Week(t *testing.T) {
	subStart := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		name      string
		period    ResetPeriod
		ref       time.Time
		wantStart time.Time
	}{
		{
			name:      "monday anchor, reference on thursday",
			period:    *WeekdayReset(time.Monday),
			ref:       time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monday anchor, reference on monday",
			period:    *WeekdayReset(time.Monday),
			ref:       time.Date(2024, time.March, 11, 0, 30, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "sunday anchor wraps the weekday arithmetic",
			period:    *WeekdayReset(time.Sunday),
			ref:       time.Date(2024, time.March, 16, 23, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "subscription start weekday anchor",
			period:    *SubscriptionStartReset(ResetPeriodWeek, subStart),
			ref:       time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC), // a Friday
			wantStart: time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC), // the preceding Wednesday
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PeriodBounds(tt.period, tt.ref, time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start: got %v, want %v", start, tt.wantStart)
			}
			if want := tt.wantStart.AddDate(0, 0, 7); !end.Equal(want) {
				t.Errorf("end: got %v, want %v", end, want)
			}
		})
	}
}

func TestPeriodBounds_Month(t *testing.T) {
	tests := []struct {
		name      string
		period    ResetPeriod
		ref       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "calendar month",
			period:    *CalendarReset(ResetPeriodMonth),
			ref:       time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "subscription day 15, reference after anchor day",
			period:    *SubscriptionStartReset(ResetPeriodMonth, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.April, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "subscription day 15, reference before anchor day",
			period:    *SubscriptionStartReset(ResetPeriodMonth, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.February, 15, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "day 31 anchor clamps to end of February",
			period:    *SubscriptionStartReset(ResetPeriodMonth, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "day 31 anchor inside clamped February period",
			period:    *SubscriptionStartReset(ResetPeriodMonth, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "day 30 anchor in non-leap February",
			period:    *SubscriptionStartReset(ResetPeriodMonth, time.Date(2023, time.January, 30, 0, 0, 0, 0, time.UTC)),
			ref:       time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2023, time.March, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PeriodBounds(tt.period, tt.ref, time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("got [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPeriodBounds_Year(t *testing.T) {
	leapAnchor := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    ResetPeriod
		ref       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "reference after anniversary",
			period:    *SubscriptionStartReset(ResetPeriodYear, time.Date(2022, time.June, 10, 0, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "reference before anniversary",
			period:    *SubscriptionStartReset(ResetPeriodYear, time.Date(2022, time.June, 10, 0, 0, 0, 0, time.UTC)),
			ref:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2023, time.June, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "leap day anchor clamps to Feb 28 in non-leap years",
			period:    *SubscriptionStartReset(ResetPeriodYear, leapAnchor),
			ref:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PeriodBounds(tt.period, tt.ref, time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("got [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// The bounds must bracket the reference for every kind and anchor, no matter
// how far the reference is from the anchor. The computation is direct, so a
// decade of skipped periods costs the same as one.
func TestPeriodBounds_BracketInvariant(t *testing.T) {
	subStart := time.Date(2015, time.July, 31, 14, 45, 0, 0, time.UTC)

	periods := []ResetPeriod{
		*CalendarReset(ResetPeriodDay),
		*WeekdayReset(time.Monday),
		*WeekdayReset(time.Sunday),
		*SubscriptionStartReset(ResetPeriodWeek, subStart),
		*CalendarReset(ResetPeriodMonth),
		*SubscriptionStartReset(ResetPeriodMonth, subStart),
		*SubscriptionStartReset(ResetPeriodYear, subStart),
	}

	refs := []time.Time{
		time.Date(2015, time.August, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2031, time.December, 31, 6, 30, 0, 0, time.UTC),
	}

	for _, p := range periods {
		for _, ref := range refs {
			for _, loc := range []*time.Location{time.UTC, ist, pst} {
				start, end, err := PeriodBounds(p, ref, loc)
				if err != nil {
					t.Fatalf("%s/%s at %v: unexpected error: %v", p.Kind, p.Anchor.Kind, ref, err)
				}
				if start.After(ref) {
					t.Errorf("%s/%s at %v in %v: start %v is after reference", p.Kind, p.Anchor.Kind, ref, loc, start)
				}
				if !ref.Before(end) {
					t.Errorf("%s/%s at %v in %v: reference is not before end %v", p.Kind, p.Anchor.Kind, ref, loc, end)
				}
				if !start.Before(end) {
					t.Errorf("%s/%s: empty period [%v, %v)", p.Kind, p.Anchor.Kind, start, end)
				}
			}
		}
	}
}

func TestPeriodBounds_UnboundAnchor(t *testing.T) {
	p := ResetPeriod{
		Kind:   ResetPeriodMonth,
		Anchor: ResetAnchor{Kind: ResetAnchorSubscriptionStart},
	}
	_, _, err := PeriodBounds(p, time.Now(), time.UTC)
	if err == nil {
		t.Fatal("expected error for unbound subscription start anchor")
	}
}

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		years  int
		months int
		days   int
		want   time.Time
	}{
		{
			name:   "one month from January 31 clamps to end of February",
			start:  time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "one year from leap day clamps to Feb 28",
			start: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			years: 1,
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "six months across year boundary",
			start:  time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC),
			months: 6,
			want:   time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "plain days use calendar arithmetic",
			start: time.Date(2024, time.March, 30, 0, 0, 0, 0, time.UTC),
			days:  7,
			want:  time.Date(2024, time.April, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddClampedDate(tt.start, tt.years, tt.months, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
