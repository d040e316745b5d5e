package monitor

import (
	"context"
	"sort"
	"sync"
)

// Set tracks the profiles currently being monitored. Membership gates
// duplicate spawns; the embedded wait group lets shutdown block until every
// monitor goroutine has fully exited.
type Set struct {
	mu      sync.Mutex
	entries map[string]setEntry
	wg      sync.WaitGroup
}

type setEntry struct {
	name   string
	cancel context.CancelFunc
}

func NewSet() *Set {
	return &Set{entries: make(map[string]setEntry)}
}

// Add registers a monitor for the given profile. Returns false when the
// profile is already registered, in which case the caller must not start a
// monitor and should release its cancel func itself.
func (s *Set) Add(id, name string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = setEntry{name: name, cancel: cancel}
	s.wg.Add(1)
	return true
}

// Remove deregisters the profile, making it eligible for a fresh monitor on
// the next discovery pass. Removing an unknown id is a no-op.
func (s *Set) Remove(id string) {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		s.wg.Done()
	}
}

// Contains reports whether the profile has a live monitor.
func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of live monitors.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names returns the display names of all monitored profiles, sorted.
func (s *Set) Names() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

// CancelAll signals every live monitor to stop. Entries stay registered
// until each monitor removes itself on exit.
func (s *Set) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.entries))
	for _, e := range s.entries {
		cancels = append(cancels, e.cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Wait blocks until every registered monitor has removed itself.
func (s *Set) Wait() {
	s.wg.Wait()
}
