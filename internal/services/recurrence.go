package services

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/models"
)

// RecurrenceUnit is the step unit for custom recurrences.
type RecurrenceUnit string

const (
	UnitDays   RecurrenceUnit = "days"
	UnitWeeks  RecurrenceUnit = "weeks"
	UnitMonths RecurrenceUnit = "months"
)

// RecurrenceSpec describes how a habit's occurrences are generated.
type RecurrenceSpec struct {
	Pattern         models.RecurrencePattern
	Interval        int            // custom only; step multiplier
	Unit            RecurrenceUnit // custom only
	EndDate         *time.Time     // inclusive; occurrences stop after this day
	OccurrenceCount int            // explicit cap; 0 means "use defaults"
}

// OccurrenceCaps carries the configured expansion limits.
type OccurrenceCaps struct {
	Daily  int
	Weekly int
}

// DefaultOccurrenceCaps returns the built-in cap values.
func DefaultOccurrenceCaps() OccurrenceCaps {
	return OccurrenceCaps{
		Daily:  constants.DefaultDailyOccurrenceCap,
		Weekly: constants.DefaultWeeklyOccurrenceCap,
	}
}

// ExpandOccurrences materializes the concrete due dates of a habit series by
// walking a cursor forward from start, stopping at the earlier of the spec's
// end date or the applicable occurrence cap. Expansion is eager because each
// occurrence needs its own addressable per-user status row; a computed
// projection of the rule could not carry per-occurrence XP, ring color or
// recovery state.
func ExpandOccurrences(start time.Time, spec RecurrenceSpec, caps OccurrenceCaps) []time.Time {
	cap := occurrenceCap(spec, caps)
	step := stepFor(spec)

	dates := make([]time.Time, 0, cap)
	cursor := start
	for len(dates) < cap {
		if spec.EndDate != nil && cursor.After(*spec.EndDate) {
			break
		}
		dates = append(dates, cursor)
		cursor = step(cursor)
	}
	return dates
}

func occurrenceCap(spec RecurrenceSpec, caps OccurrenceCaps) int {
	cap := spec.OccurrenceCount
	if cap <= 0 {
		switch spec.Pattern {
		case models.RecurrenceDaily:
			cap = caps.Daily
		case models.RecurrenceWeekly:
			cap = caps.Weekly
		default:
			cap = constants.MaxOccurrenceCap
		}
	}
	if cap > constants.MaxOccurrenceCap {
		cap = constants.MaxOccurrenceCap
	}
	return cap
}

func stepFor(spec RecurrenceSpec) func(time.Time) time.Time {
	switch spec.Pattern {
	case models.RecurrenceDaily:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case models.RecurrenceWeekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	default:
		interval := spec.Interval
		if interval <= 0 {
			interval = 1
		}
		switch spec.Unit {
		case UnitWeeks:
			return func(t time.Time) time.Time { return t.AddDate(0, 0, 7*interval) }
		case UnitMonths:
			return func(t time.Time) time.Time { return t.AddDate(0, interval, 0) }
		default:
			return func(t time.Time) time.Time { return t.AddDate(0, 0, interval) }
		}
	}
}
