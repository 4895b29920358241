package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flightops-service/internal/domain/entity"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"
)

// memScheduleRepo is an in-memory ScheduleRepository; failLoads makes the
// first N loads return a transient error
type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]entity.FlightSchedule
	failLoads int
	loadCalls int
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: make(map[string]entity.FlightSchedule)}
}

func (r *memScheduleRepo) Load(ctx context.Context, id string) (*entity.FlightSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadCalls++
	if r.failLoads > 0 {
		r.failLoads--
		return nil, errStoreUnavailable
	}
	s, ok := r.schedules[id]
	if !ok {
		return nil, entity.ErrScheduleNotFound
	}
	copied := s
	return &copied, nil
}

func (r *memScheduleRepo) Save(ctx context.Context, schedule *entity.FlightSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ID] = *schedule
	return nil
}

func (r *memScheduleRepo) FindAllActive(ctx context.Context) ([]*entity.FlightSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FlightSchedule
	for _, s := range r.schedules {
		if !s.Deleted {
			copied := s
			out = append(out, &copied)
		}
	}
	return out, nil
}

// memFlightRepo is an in-memory FlightRepository; failSaves and failLoads
// make the first N calls return a transient error to exercise retry paths
type memFlightRepo struct {
	mu        sync.Mutex
	flights   map[string]entity.Flight
	failSaves int
	saveCalls int
	failLoads int
	loadCalls int
}

var errStoreUnavailable = errors.New("store unavailable")

func newMemFlightRepo() *memFlightRepo {
	return &memFlightRepo{flights: make(map[string]entity.Flight)}
}

func (r *memFlightRepo) Load(ctx context.Context, id string) (*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadCalls++
	if r.failLoads > 0 {
		r.failLoads--
		return nil, errStoreUnavailable
	}
	f, ok := r.flights[id]
	if !ok {
		return nil, entity.ErrFlightNotFound
	}
	copied := f
	return &copied, nil
}

func (r *memFlightRepo) Save(ctx context.Context, flight *entity.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.failSaves > 0 {
		r.failSaves--
		return errStoreUnavailable
	}
	r.flights[flight.ID] = *flight
	return nil
}

func (r *memFlightRepo) LoadActive(ctx context.Context) ([]*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Flight
	for _, f := range r.flights {
		if !f.Status.IsTerminal() {
			copied := f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memFlightRepo) FindByScheduleAndDeparture(ctx context.Context, scheduleID string, departure time.Time) (*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.flights {
		if f.ScheduleID == scheduleID && f.ScheduledDepartureUTC.Equal(departure.UTC()) {
			copied := f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memFlightRepo) FindActiveBySchedule(ctx context.Context, scheduleID string) ([]*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Flight
	for _, f := range r.flights {
		if f.ScheduleID == scheduleID && !f.Status.IsTerminal() {
			copied := f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memFlightRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

func (r *memFlightRepo) get(id string) (entity.Flight, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	return f, ok
}

func (r *memFlightRepo) put(f entity.Flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flights[f.ID] = f
}

func (r *memFlightRepo) countBySchedule(scheduleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.flights {
		if f.ScheduleID == scheduleID {
			n++
		}
	}
	return n
}

// memPublisher records published events per partition key
type memPublisher struct {
	mu     sync.Mutex
	events map[string][]entity.DomainEvent
}

func newMemPublisher() *memPublisher {
	return &memPublisher{events: make(map[string][]entity.DomainEvent)}
}

func (p *memPublisher) Publish(ctx context.Context, key string, event entity.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[key] = append(p.events[key], event)
	return nil
}

func (p *memPublisher) eventsFor(key string) []entity.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.DomainEvent, len(p.events[key]))
	copy(out, p.events[key])
	return out
}

// testRegistry is a minimal Registry for engine tests
type testRegistry struct {
	mu      sync.Mutex
	workers map[string]Worker
}

func newTestRegistry() *testRegistry {
	return &testRegistry{workers: make(map[string]Worker)}
}

func (r *testRegistry) Register(key string, w Worker) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workers[key]; ok {
		return nil, false
	}
	r.workers[key] = w
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.workers, key)
	}, true
}

func (r *testRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

func newTestEngine(t *testing.T, cfg EngineConfig) (*Engine, *memScheduleRepo, *memFlightRepo, *memPublisher) {
	t.Helper()
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = time.Millisecond
	}
	if cfg.RetryMaxAttempts == 0 {
		cfg.RetryMaxAttempts = 3
	}

	schedules := newMemScheduleRepo()
	flights := newMemFlightRepo()
	publisher := newMemPublisher()
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := NewEngine(ctx, schedules, flights, publisher, nil, cfg, logger.NewNop(), m)
	return engine, schedules, flights, publisher
}

// deliver spawns the worker for the command (when absent) and delivers it,
// mirroring what the router does for a single command
func deliver(t *testing.T, e *Engine, cmd Command) error {
	t.Helper()
	w, err := e.NewWorker(context.Background(), cmd, nil)
	if err != nil {
		return err
	}
	w.Start()
	return w.Deliver(context.Background(), cmd)
}
