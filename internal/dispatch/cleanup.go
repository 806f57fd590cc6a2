package dispatch

import (
	"sync"
	"time"
)

// CleanupFunc removes the worktree of a finished task.
type CleanupFunc func(projectID, taskID string)

// pendingCleanup is an armed removal. gen distinguishes re-armed timers.
type pendingCleanup struct {
	timer     *time.Timer
	projectID string
	gen       uint64
}

// CleanupScheduler arms delayed, cancellable worktree removal keyed by task ID.
// At most one removal is pending per task; scheduling again replaces it.
// Fields are ordered to minimize memory padding.
type CleanupScheduler struct {
	run     CleanupFunc
	pending map[string]*pendingCleanup
	wg      sync.WaitGroup
	grace   time.Duration
	gen     uint64
	mu      sync.Mutex
	stopped bool
}

// NewCleanupScheduler creates a scheduler that calls run after grace.
func NewCleanupScheduler(grace time.Duration, run CleanupFunc) *CleanupScheduler {
	return &CleanupScheduler{
		run:     run,
		pending: make(map[string]*pendingCleanup),
		grace:   grace,
	}
}

// Schedule arms removal of the task's worktree after the grace period.
func (s *CleanupScheduler) Schedule(projectID, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if p, ok := s.pending[taskID]; ok {
		p.timer.Stop()
	}

	s.gen++
	gen := s.gen
	p := &pendingCleanup{projectID: projectID, gen: gen}
	p.timer = time.AfterFunc(s.grace, func() { s.fire(taskID, gen) })
	s.pending[taskID] = p
}

// Cancel disarms a pending removal. Returns false if none was pending.
func (s *CleanupScheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[taskID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, taskID)
	return true
}

// Pending returns true if a removal is armed for the task.
func (s *CleanupScheduler) Pending(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[taskID]
	return ok
}

// SetGrace changes the grace period of removals scheduled from now on.
func (s *CleanupScheduler) SetGrace(grace time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grace = grace
}

// Stop disarms every pending removal and waits for running ones.
// Schedule is a no-op afterwards.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *CleanupScheduler) fire(taskID string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[taskID]
	// A cancelled or re-armed entry must not run.
	if !ok || p.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, taskID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.run(p.projectID, taskID)
}
