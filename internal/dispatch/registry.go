// Package dispatch implements the task dispatch orchestrator: the status state
// machine, the active-dispatch registry, per-project queue processing and
// delayed worktree cleanup.
package dispatch

import (
	"sort"
	"sync"

	"github.com/runoshun/crew-board/internal/domain"
)

// Record is an entry of the active-dispatch registry.
// A record is reserved before the session is spawned and activated once it runs.
type Record struct {
	Handle    domain.SessionHandle
	ProjectID string
	Active    bool // false while the dispatch is still in flight
}

// Registry is the in-memory, authoritative record of live dispatches.
// It holds at most one record per task ID.
type Registry struct {
	records map[string]*Record
	mu      sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Reserve claims the task ID for a dispatch in flight.
// Returns false if the task already has a record.
func (r *Registry) Reserve(projectID, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[taskID]; ok {
		return false
	}
	r.records[taskID] = &Record{ProjectID: projectID}
	return true
}

// Activate attaches a live session handle to a reserved record.
// Returns false if the reservation was released in the meantime.
func (r *Registry) Activate(h domain.SessionHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[h.TaskID]
	if !ok {
		return false
	}
	rec.Handle = h
	rec.Active = true
	return true
}

// Adopt inserts an already running session, as found on startup.
// Returns false if the task already has a record.
func (r *Registry) Adopt(h domain.SessionHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[h.TaskID]; ok {
		return false
	}
	r.records[h.TaskID] = &Record{Handle: h, ProjectID: h.ProjectID, Active: true}
	return true
}

// Release removes the record of a task and returns it.
func (r *Registry) Release(taskID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[taskID]
	if !ok {
		return Record{}, false
	}
	delete(r.records, taskID)
	return *rec, true
}

// Get returns a copy of the record of a task.
func (r *Registry) Get(taskID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[taskID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Has returns true if the task has a record.
func (r *Registry) Has(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[taskID]
	return ok
}

// TaskIDs returns the task IDs recorded for a project, sorted.
func (r *Registry) TaskIDs(projectID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, rec := range r.records {
		if rec.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Active returns the handles of all activated records, oldest first.
func (r *Registry) Active() []domain.SessionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := make([]domain.SessionHandle, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Active {
			handles = append(handles, rec.Handle)
		}
	}
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Started.Equal(handles[j].Started) {
			return handles[i].TaskID < handles[j].TaskID
		}
		return handles[i].Started.Before(handles[j].Started)
	})
	return handles
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
