// Package domain contains core business entities and interfaces.
package domain

import (
	"strings"
	"time"
)

// ShortIDLength is the number of task ID characters used for worktree and session naming.
const ShortIDLength = 8

// Task represents a kanban work item driven through the dispatch pipeline.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created     time.Time `json:"created" yaml:"created"`                             // Creation time (queue order)
	Updated     time.Time `json:"updated" yaml:"updated"`                             // Last mutation time
	ID          string    `json:"id" yaml:"id"`                                       // Task ID (UUID)
	ProjectID   string    `json:"projectId" yaml:"projectId"`                         // Owning project
	Title       string    `json:"title" yaml:"title"`                                 // Title
	Description string    `json:"description,omitempty" yaml:"description,omitempty"` // Description (prompt body)
	Status      Status    `json:"status" yaml:"status"`                               // Current status
	Mode        string    `json:"mode,omitempty" yaml:"mode,omitempty"`               // Agent mode passed to the command template
	Findings    string    `json:"findings,omitempty" yaml:"findings,omitempty"`       // Merge/conflict notes (append-only)
	HumanSteps  string    `json:"humanSteps,omitempty" yaml:"humanSteps,omitempty"`   // Steps left for a human
	AgentLog    string    `json:"agentLog,omitempty" yaml:"agentLog,omitempty"`       // Free-form agent log
	Dispatched  bool      `json:"dispatched" yaml:"dispatched"`                       // Persisted dispatch flag (may be stale)
	Locked      bool      `json:"locked" yaml:"locked"`                               // Locked while work is in flight
}

// ShortID returns the worktree/session key for the task.
func (t *Task) ShortID() string {
	return ShortID(t.ID)
}

// IsQueued returns true if the task waits for a dispatch slot.
func (t *Task) IsQueued() bool {
	return t.Status == StatusInProgress && !t.Dispatched
}

// AppendFindings appends a note to the findings log, separated by a newline.
func (t *Task) AppendFindings(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return t.Findings
	}
	if t.Findings == "" {
		return note
	}
	return t.Findings + "\n" + note
}

// TaskPatch describes a partial update of a task.
// Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Mode        *string `json:"mode,omitempty"`
	Findings    *string `json:"findings,omitempty"`
	HumanSteps  *string `json:"humanSteps,omitempty"`
	AgentLog    *string `json:"agentLog,omitempty"`
	Dispatched  *bool   `json:"dispatched,omitempty"`
	Locked      *bool   `json:"locked,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Mode == nil &&
		p.Findings == nil && p.HumanSteps == nil && p.AgentLog == nil &&
		p.Dispatched == nil && p.Locked == nil
}

// Apply copies the set fields of the patch onto the task.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Mode != nil {
		t.Mode = *p.Mode
	}
	if p.Findings != nil {
		t.Findings = *p.Findings
	}
	if p.HumanSteps != nil {
		t.HumanSteps = *p.HumanSteps
	}
	if p.AgentLog != nil {
		t.AgentLog = *p.AgentLog
	}
	if p.Dispatched != nil {
		t.Dispatched = *p.Dispatched
	}
	if p.Locked != nil {
		t.Locked = *p.Locked
	}
}

// NewTaskFields holds the caller-supplied fields for task creation.
type NewTaskFields struct {
	Title       string
	Description string
	Mode        string
}

// TaskColumns groups a project's tasks by status.
// Each column is ordered by creation time, oldest first.
type TaskColumns map[Status][]*Task

// NewTaskColumns returns columns with an empty slice for every status.
func NewTaskColumns() TaskColumns {
	cols := make(TaskColumns, len(AllStatuses()))
	for _, s := range AllStatuses() {
		cols[s] = []*Task{}
	}
	return cols
}

// Add appends a task to its status column.
func (c TaskColumns) Add(t *Task) {
	c[t.Status] = append(c[t.Status], t)
}

// All returns every task across columns in status order.
func (c TaskColumns) All() []*Task {
	var all []*Task
	for _, s := range AllStatuses() {
		all = append(all, c[s]...)
	}
	return all
}

// Ptr returns a pointer to v. Used to build TaskPatch values.
func Ptr[T any](v T) *T {
	return &v
}
