package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// eventLocks hands out one single-slot semaphore per event id.  Entries
// are reference counted and removed when the last waiter or holder
// leaves, so the map only grows with the number of events being
// purchased right now.
type eventLocks struct {
	mu    sync.Mutex
	locks map[uint64]*eventLock
}

type eventLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[uint64]*eventLock)}
}

// lock waits until the caller holds the slot for id or ctx is done.  On
// success it returns the function that releases the slot.
func (l *eventLocks) lock(ctx context.Context, id uint64) (func(), error) {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &eventLock{sem: semaphore.NewWeighted(1)}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	if err := el.sem.Acquire(ctx, 1); err != nil {
		l.leave(id, el)
		return nil, err
	}
	return func() {
		el.sem.Release(1)
		l.leave(id, el)
	}, nil
}

func (l *eventLocks) leave(id uint64, el *eventLock) {
	l.mu.Lock()
	el.refs--
	if el.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}

func (l *eventLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
