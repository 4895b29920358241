// Package recurrence expands daily weekday recurrence definitions into
// concrete departure instants. It is pure: no state, no I/O.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"flightops-service/internal/domain/entity"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// buildRule translates a validated Recurrence into an RRULE anchored at the
// recurrence's start date in its own timezone. Iterating in the local zone
// is what keeps the wall-clock departure time stable across DST changes.
func buildRule(rec entity.Recurrence) (*rrule.RRule, *time.Location, error) {
	loc, err := time.LoadLocation(rec.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone %q: %w", rec.Timezone, err)
	}

	tod, err := time.Parse("15:04", rec.TimeOfDay)
	if err != nil {
		return nil, nil, fmt.Errorf("parse time-of-day %q: %w", rec.TimeOfDay, err)
	}

	start := rec.StartDate.In(loc)
	dtstart := time.Date(start.Year(), start.Month(), start.Day(),
		tod.Hour(), tod.Minute(), 0, 0, loc)

	days := make([]rrule.Weekday, 0, len(rec.Weekdays))
	for _, d := range rec.Weekdays {
		wd, ok := rruleWeekdays[d]
		if !ok {
			return nil, nil, fmt.Errorf("invalid weekday %d", d)
		}
		days = append(days, wd)
	}

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: days,
	}
	if rec.Count > 0 {
		opt.Count = rec.Count
	}
	if rec.Until != nil {
		opt.Until = rec.Until.In(loc)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, nil, fmt.Errorf("build rrule: %w", err)
	}
	return r, loc, nil
}

// NextOccurrence returns the earliest concrete departure instant strictly
// after the given time, in UTC, or false when the recurrence has exhausted
// its bound. The recurrence must already have passed Validate.
func NextOccurrence(rec entity.Recurrence, after time.Time) (time.Time, bool) {
	r, loc, err := buildRule(rec)
	if err != nil {
		return time.Time{}, false
	}

	next := r.After(after.In(loc), false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next.UTC(), true
}
