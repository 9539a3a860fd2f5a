package application

import (
	"context"
	"sync"
)

// courtLocks serialises bookings per court inside one process. Entries are
// reference counted and dropped once nobody holds or waits for them, so the
// table only grows with concurrently contended courts.
type courtLocks struct {
	mu      sync.Mutex
	entries map[int64]*courtLock
}

type courtLock struct {
	sem  chan struct{}
	refs int
}

func newCourtLocks() *courtLocks {
	return &courtLocks{entries: make(map[int64]*courtLock)}
}

// acquire blocks until the lock for courtID is held or ctx is done. The
// returned release must be called exactly once.
func (l *courtLocks) acquire(ctx context.Context, courtID int64) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[courtID]
	if !ok {
		entry = &courtLock{sem: make(chan struct{}, 1)}
		l.entries[courtID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(courtID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.drop(courtID, entry)
		})
	}, nil
}

func (l *courtLocks) drop(courtID int64, entry *courtLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, courtID)
	}
	l.mu.Unlock()
}

func (l *courtLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
