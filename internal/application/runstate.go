package application

import (
	"sync"
	"time"
)

// RunState is the explicit run-state value owned by the triggering boundary
// (CLI command or scheduler). Two overlapping full runs would race on the
// same per-account session files, so the trigger must hold the state for the
// whole run.
type RunState struct {
	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// TryBegin marks a run as started and reports whether it may proceed. A
// second caller while a run is in flight gets false.
func (s *RunState) TryBegin(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	s.lastRun = now
	return true
}

// End releases the run slot. Calling End without a matching TryBegin is a
// no-op.
func (s *RunState) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// LastRun reports when the most recent run began.
func (s *RunState) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
