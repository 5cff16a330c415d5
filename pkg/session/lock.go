package session

import (
	"context"
	"sync"
)

// turnLocks is a set of per-session mutexes that can be acquired with a
// context. Entries are reference counted and removed when unused, so the map
// does not grow with the number of sessions ever seen.
type turnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	sem  chan struct{}
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[string]*turnLock)}
}

func (l *turnLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &turnLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.release(id, lock)
		})
	}, nil
}

func (l *turnLocks) release(id string, lock *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *turnLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Lock serializes chat turns on one session. It blocks until no other turn
// holds the session or ctx is done, and returns a function that releases
// the lock. Turns on different sessions never block each other.
func (s *Store) Lock(ctx context.Context, id string) (unlock func(), err error) {
	return s.locks.acquire(ctx, id)
}
