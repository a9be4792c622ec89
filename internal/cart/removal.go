package cart

import (
	"sync"
	"time"
)

// RemovalScheduler runs one delayed callback per key. Scheduling a key again,
// or cancelling it, stops the pending callback.
type RemovalScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func NewRemovalScheduler() *RemovalScheduler {
	return &RemovalScheduler{timers: make(map[string]*time.Timer)}
}

func (s *RemovalScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopLocked(key)

	var t *time.Timer
	s.wg.Add(1)
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
	s.timers[key] = t
}

// Cancel reports whether a pending callback was stopped.
func (s *RemovalScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(key)
}

func (s *RemovalScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Stop cancels everything still pending and waits for running callbacks.
// Nothing can be scheduled afterwards.
func (s *RemovalScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key := range s.timers {
		s.stopLocked(key)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *RemovalScheduler) stopLocked(key string) bool {
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	if t.Stop() {
		s.wg.Done()
	}
	return true
}
