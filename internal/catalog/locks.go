package catalog

import "sync"

type tenantLock struct {
	mu   sync.Mutex
	refs int
}

// lockSet hands out one mutex per tenant id. Entries are dropped once no
// goroutine holds or waits on them, so the map only grows with concurrency,
// not with the number of tenants ever seen.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[string]*tenantLock)}
}

// Lock blocks until the tenant's lock is held and returns its release func.
func (l *lockSet) Lock(tenantID string) func() {
	l.mu.Lock()
	tl, ok := l.locks[tenantID]
	if !ok {
		tl = &tenantLock{}
		l.locks[tenantID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, tenantID)
		}
		l.mu.Unlock()
	}
}

func (l *lockSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
