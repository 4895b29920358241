package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flightops-service/internal/domain/entity"
	"flightops-service/pkg/recurrence"
)

// dailyRecurrence returns an unbounded recurrence firing every day at the
// given UTC instant's wall-clock time
func dailyRecurrence(at time.Time) entity.Recurrence {
	return entity.Recurrence{
		TimeOfDay: at.UTC().Format("15:04"),
		Weekdays: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		Timezone:  "UTC",
		StartDate: at.UTC().Truncate(24 * time.Hour),
	}
}

func TestScheduleCreateMaterializesWithinHorizon(t *testing.T) {
	engine, schedules, flights, publisher := newTestEngine(t, EngineConfig{
		MaterializeHorizon: 48 * time.Hour,
	})
	reg := newTestRegistry()
	engine.Bind(reg)

	rec := dailyRecurrence(time.Now().Add(2 * time.Hour))
	rec.Count = 1

	cmd := CreateScheduleCommand{
		ScheduleID:    "sched-1",
		AirlineID:     "KL",
		FlightNumber:  "KL1234",
		DestinationID: "AMS",
		Recurrence:    rec,
	}
	require.NoError(t, deliver(t, engine, cmd))

	saved, err := schedules.Load(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Equal(t, "KL1234", saved.FlightNumber)

	// The single occurrence is inside the horizon, so the timer fires at
	// once and the flight appears in check-in.
	require.Eventually(t, func() bool {
		return flights.countBySchedule("sched-1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	active, err := flights.FindActiveBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	flight := active[0]
	require.Equal(t, entity.StatusCheckIn, flight.Status)
	require.Equal(t, "KL", flight.AirlineID)
	require.Equal(t, uint64(1), flight.EventSeq)

	events := publisher.eventsFor(flight.ID)
	require.Len(t, events, 1)
	require.Equal(t, entity.EventFlightCreated, events[0].Type)
	require.Equal(t, uint64(1), events[0].Sequence)
}

func TestScheduleCreateOutsideHorizonDefersMaterialization(t *testing.T) {
	engine, _, flights, _ := newTestEngine(t, EngineConfig{
		MaterializeHorizon: time.Minute,
	})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	rec.Count = 1

	require.NoError(t, deliver(t, engine, CreateScheduleCommand{
		ScheduleID: "sched-2", AirlineID: "KL", FlightNumber: "KL2",
		DestinationID: "AMS", Recurrence: rec,
	}))

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, flights.countBySchedule("sched-2"))
}

func TestRecoveryDoesNotRematerialize(t *testing.T) {
	engine, schedules, flights, publisher := newTestEngine(t, EngineConfig{
		MaterializeHorizon: 48 * time.Hour,
	})

	rec := dailyRecurrence(time.Now().Add(2 * time.Hour))
	rec.Count = 1
	next, ok := recurrence.NextOccurrence(rec, time.Now())
	require.True(t, ok)

	schedule := &entity.FlightSchedule{
		ID: "sched-3", AirlineID: "KL", FlightNumber: "KL3",
		DestinationID: "AMS", Recurrence: rec,
	}
	require.NoError(t, schedules.Save(context.Background(), schedule))

	existing := schedule.MaterializeFlight("flight-3", next, time.Now())
	existing.EventSeq = 1
	flights.put(*existing)

	require.NoError(t, engine.Recover(context.Background()))

	// The occurrence is due immediately but already materialized; the
	// worker must skip it instead of creating a duplicate.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, flights.countBySchedule("sched-3"))
	require.Empty(t, publisher.eventsFor("flight-3"))
}

func TestEditScheduleLockedByActiveFlight(t *testing.T) {
	engine, schedules, flights, _ := newTestEngine(t, EngineConfig{
		MaterializeHorizon: time.Minute,
	})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	schedule := &entity.FlightSchedule{
		ID: "sched-4", AirlineID: "KL", FlightNumber: "KL4",
		DestinationID: "AMS", Recurrence: rec,
	}
	require.NoError(t, schedules.Save(context.Background(), schedule))
	flights.put(entity.Flight{
		ID: "flight-4", ScheduleID: "sched-4", Status: entity.StatusBoarding,
		ScheduledDepartureUTC: time.Now().Add(time.Hour).UTC(),
	})

	newRec := dailyRecurrence(time.Now().Add(13 * time.Hour))
	err := deliver(t, engine, EditScheduleCommand{ScheduleID: "sched-4", Recurrence: newRec})
	require.ErrorIs(t, err, entity.ErrScheduleLocked)

	// A departed flight no longer locks the schedule.
	flights.put(entity.Flight{
		ID: "flight-4", ScheduleID: "sched-4", Status: entity.StatusDeparted,
		ScheduledDepartureUTC: time.Now().Add(time.Hour).UTC(),
	})
	require.NoError(t, deliver(t, engine, EditScheduleCommand{ScheduleID: "sched-4", Recurrence: newRec}))

	saved, err := schedules.Load(context.Background(), "sched-4")
	require.NoError(t, err)
	require.Equal(t, newRec.TimeOfDay, saved.Recurrence.TimeOfDay)
}

func TestDeleteScheduleWithActiveFlight(t *testing.T) {
	engine, schedules, flights, _ := newTestEngine(t, EngineConfig{
		MaterializeHorizon: time.Minute,
	})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	require.NoError(t, schedules.Save(context.Background(), &entity.FlightSchedule{
		ID: "sched-5", AirlineID: "KL", FlightNumber: "KL5",
		DestinationID: "AMS", Recurrence: rec,
	}))
	flights.put(entity.Flight{
		ID: "flight-5", ScheduleID: "sched-5", Status: entity.StatusBoarding,
		ScheduledDepartureUTC: time.Now().Add(time.Hour).UTC(),
	})

	err := deliver(t, engine, DeleteScheduleCommand{ScheduleID: "sched-5"})
	require.ErrorIs(t, err, entity.ErrScheduleHasActiveFlight)

	saved, err := schedules.Load(context.Background(), "sched-5")
	require.NoError(t, err)
	require.False(t, saved.Deleted)
}

func TestDeleteScheduleRetiresWorker(t *testing.T) {
	engine, schedules, _, _ := newTestEngine(t, EngineConfig{
		MaterializeHorizon: time.Minute,
	})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	require.NoError(t, schedules.Save(context.Background(), &entity.FlightSchedule{
		ID: "sched-6", AirlineID: "KL", FlightNumber: "KL6",
		DestinationID: "AMS", Recurrence: rec,
	}))

	evicted := make(chan struct{})
	cmd := DeleteScheduleCommand{ScheduleID: "sched-6"}
	w, err := engine.NewWorker(context.Background(), cmd, func() { close(evicted) })
	require.NoError(t, err)
	w.Start()
	require.NoError(t, w.Deliver(context.Background(), cmd))

	saved, err := schedules.Load(context.Background(), "sched-6")
	require.NoError(t, err)
	require.True(t, saved.Deleted)

	select {
	case <-evicted:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not retire after delete")
	}

	err = w.Deliver(context.Background(), cmd)
	require.ErrorIs(t, err, entity.ErrWorkerStopped)
}

func TestCreateScheduleRejectsInvalidRecurrence(t *testing.T) {
	engine, schedules, _, _ := newTestEngine(t, EngineConfig{})

	err := deliver(t, engine, CreateScheduleCommand{
		ScheduleID: "sched-7", AirlineID: "KL", FlightNumber: "KL7",
		DestinationID: "AMS",
		Recurrence: entity.Recurrence{
			TimeOfDay: "25:99", Timezone: "UTC",
			Weekdays: []time.Weekday{time.Monday},
		},
	})
	require.ErrorIs(t, err, entity.ErrInvalidRecurrence)

	_, err = schedules.Load(context.Background(), "sched-7")
	require.ErrorIs(t, err, entity.ErrScheduleNotFound)
}

func TestTransientScheduleLoadRetriedAtSpawn(t *testing.T) {
	engine, schedules, _, _ := newTestEngine(t, EngineConfig{
		MaterializeHorizon: time.Minute,
	})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	require.NoError(t, schedules.Save(context.Background(), &entity.FlightSchedule{
		ID: "sched-9", AirlineID: "KL", FlightNumber: "KL9",
		DestinationID: "AMS", Recurrence: rec,
	}))
	schedules.failLoads = 1

	require.NoError(t, deliver(t, engine, EditScheduleCommand{ScheduleID: "sched-9", Recurrence: rec}))
	require.GreaterOrEqual(t, schedules.loadCalls, 2)
}

func TestEditDeletedScheduleNotFound(t *testing.T) {
	engine, schedules, _, _ := newTestEngine(t, EngineConfig{})

	rec := dailyRecurrence(time.Now().Add(12 * time.Hour))
	require.NoError(t, schedules.Save(context.Background(), &entity.FlightSchedule{
		ID: "sched-8", Recurrence: rec, Deleted: true,
	}))

	err := deliver(t, engine, EditScheduleCommand{ScheduleID: "sched-8", Recurrence: rec})
	require.ErrorIs(t, err, entity.ErrScheduleNotFound)
}
