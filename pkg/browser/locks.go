package browser

import "sync"

// TabLocks provides try-only mutual exclusion per tab identity token. A tab
// whose lock is held has a solve in flight; new work for it is dropped, never
// queued.
type TabLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewTabLocks() *TabLocks {
	return &TabLocks{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for token if it is free. Returns false without
// blocking when the lock is already held.
func (l *TabLocks) TryAcquire(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[token]; ok {
		return false
	}
	l.held[token] = struct{}{}
	return true
}

// Release frees the lock for token. Releasing an unheld token is a no-op.
func (l *TabLocks) Release(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, token)
}

// Held reports whether a solve is currently in flight for token.
func (l *TabLocks) Held(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[token]
	return ok
}
