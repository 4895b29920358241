package router

import (
	"context"
	"errors"
	"sync"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/usecase"
	"flightops-service/pkg/logger"
)

// WorkerFactory builds (and rehydrates) a worker for a command's key. The
// evict callback removes the worker from the router when it retires.
type WorkerFactory interface {
	NewWorker(ctx context.Context, cmd usecase.Command, evict func()) (usecase.Worker, error)
}

// workerSlot reserves a key while its worker is being rehydrated. ready is
// closed once w and err are final; a slot that failed to spawn is removed
// from the map before ready closes, so waiters re-enter obtain.
type workerSlot struct {
	ready chan struct{}
	w     usecase.Worker
	err   error
}

// EntityRouter maps entity keys to live workers, creating or rehydrating
// them on demand. It guarantees at most one live worker per key, which is
// what serializes all operations on a single schedule or flight. The map
// lock only ever guards map access; rehydration store reads happen outside
// it so one key's spawn never stalls dispatch on other keys.
type EntityRouter struct {
	mu      sync.Mutex
	workers map[string]*workerSlot
	factory WorkerFactory
	logger  logger.Logger
}

// NewEntityRouter creates a new entity router
func NewEntityRouter(factory WorkerFactory, logger logger.Logger) *EntityRouter {
	return &EntityRouter{
		workers: make(map[string]*workerSlot),
		factory: factory,
		logger:  logger,
	}
}

// Dispatch routes one command to its entity's worker and waits for the
// result. A command racing a retiring worker is redelivered to a fresh one.
func (r *EntityRouter) Dispatch(ctx context.Context, cmd usecase.Command) error {
	key := cmd.Key()
	for attempt := 0; attempt < 2; attempt++ {
		slot, err := r.obtain(ctx, cmd)
		if err != nil {
			return err
		}
		err = slot.w.Deliver(ctx, cmd)
		if errors.Is(err, entity.ErrWorkerStopped) {
			r.remove(key, slot)
			continue
		}
		return err
	}
	return entity.ErrWorkerStopped
}

// Register attaches an externally created worker (materialized flight,
// recovery) under its key
func (r *EntityRouter) Register(key string, w usecase.Worker) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workers[key]; ok {
		return nil, false
	}
	slot := &workerSlot{ready: make(chan struct{}), w: w}
	close(slot.ready)
	r.workers[key] = slot
	return func() { r.remove(key, slot) }, true
}

// Len returns the number of live workers
func (r *EntityRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// obtain returns the live worker slot for the key, spawning one through the
// factory when absent. The key is reserved with a placeholder slot before
// the lock is released, so at most one rehydration runs per key and the
// single-writer guarantee holds without holding the lock across store I/O.
func (r *EntityRouter) obtain(ctx context.Context, cmd usecase.Command) (*workerSlot, error) {
	key := cmd.Key()
	for {
		r.mu.Lock()
		if slot, ok := r.workers[key]; ok {
			r.mu.Unlock()
			select {
			case <-slot.ready:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if slot.err != nil {
				// The spawn this command piggybacked on failed and the
				// slot is gone; rebuild for this command's own sake.
				continue
			}
			return slot, nil
		}

		slot := &workerSlot{ready: make(chan struct{})}
		r.workers[key] = slot
		r.mu.Unlock()

		w, err := r.factory.NewWorker(ctx, cmd, func() { r.remove(key, slot) })
		if err != nil {
			slot.err = err
			r.remove(key, slot)
			close(slot.ready)
			return nil, err
		}
		slot.w = w
		close(slot.ready)
		w.Start()
		r.logger.Debug("Worker spawned", "key", key)
		return slot, nil
	}
}

// remove drops the slot only if it is still the registered one, so a
// retiring worker never evicts its replacement
func (r *EntityRouter) remove(key string, slot *workerSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.workers[key]; ok && current == slot {
		delete(r.workers, key)
	}
}
