package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flightops-service/internal/domain/entity"
)

func allWeekdays() []time.Weekday {
	return []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
}

func TestNextOccurrenceDailyUTC(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "08:00",
		Weekdays:  allWeekdays(),
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, rec.Validate())

	after := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	next, ok := NextOccurrence(rec, after)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceStrictlyAfter(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "08:00",
		Weekdays:  allWeekdays(),
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// Asking from an exact occurrence instant must return the next one,
	// not the same instant again.
	occurrence := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	next, ok := NextOccurrence(rec, occurrence)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceAdvancesForward(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "14:30",
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Timezone:  "Europe/Amsterdam",
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, rec.Validate())

	cursor := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		next, ok := NextOccurrence(rec, cursor)
		require.True(t, ok)
		require.True(t, next.After(cursor), "occurrence %d did not advance", i)

		loc, _ := time.LoadLocation("Europe/Amsterdam")
		local := next.In(loc)
		require.Equal(t, 14, local.Hour())
		require.Equal(t, 30, local.Minute())
		cursor = next
	}
}

func TestNextOccurrenceWeekdaySubset(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "10:00",
		Weekdays:  []time.Weekday{time.Wednesday},
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// 2024-01-01 is a Monday; the first Wednesday is 2024-01-03.
	next, ok := NextOccurrence(rec, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceDaylightSaving(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "08:00",
		Weekdays:  allWeekdays(),
		Timezone:  "America/New_York",
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	// 2024-03-09 08:00 EST is 13:00 UTC; after the spring-forward on
	// 2024-03-10 the same wall-clock time is 12:00 UTC.
	before, ok := NextOccurrence(rec, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC), before)

	after, ok := NextOccurrence(rec, before)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), after)

	loc, _ := time.LoadLocation("America/New_York")
	require.Equal(t, 8, before.In(loc).Hour())
	require.Equal(t, 8, after.In(loc).Hour())
}

func TestNextOccurrenceCountBound(t *testing.T) {
	rec := entity.Recurrence{
		TimeOfDay: "06:00",
		Weekdays:  allWeekdays(),
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:     3,
	}

	cursor := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		next, ok := NextOccurrence(rec, cursor)
		require.True(t, ok, "occurrence %d should exist", i)
		cursor = next
	}

	_, ok := NextOccurrence(rec, cursor)
	require.False(t, ok, "recurrence should be exhausted after three occurrences")
}

func TestNextOccurrenceUntilBound(t *testing.T) {
	until := time.Date(2024, 1, 3, 23, 59, 0, 0, time.UTC)
	rec := entity.Recurrence{
		TimeOfDay: "06:00",
		Weekdays:  allWeekdays(),
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:     &until,
	}

	next, ok := NextOccurrence(rec, time.Date(2024, 1, 3, 7, 0, 0, 0, time.UTC))
	require.False(t, ok, "no occurrence should remain past the until bound, got %v", next)
}

func TestRecurrenceValidation(t *testing.T) {
	base := entity.Recurrence{
		TimeOfDay: "08:00",
		Weekdays:  []time.Weekday{time.Monday},
		Timezone:  "UTC",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, base.Validate())

	noDays := base
	noDays.Weekdays = nil
	require.ErrorIs(t, noDays.Validate(), entity.ErrInvalidRecurrence)

	badTime := base
	badTime.TimeOfDay = "25:99"
	require.ErrorIs(t, badTime.Validate(), entity.ErrInvalidRecurrence)

	badZone := base
	badZone.Timezone = "Mars/Olympus"
	require.ErrorIs(t, badZone.Validate(), entity.ErrInvalidRecurrence)

	dupDays := base
	dupDays.Weekdays = []time.Weekday{time.Monday, time.Monday}
	require.ErrorIs(t, dupDays.Validate(), entity.ErrInvalidRecurrence)
}
