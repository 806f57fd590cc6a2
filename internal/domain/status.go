package domain

// Status represents the kanban column of a task.
type Status string

const (
	StatusTodo       Status = "todo"        // Created, not started
	StatusInProgress Status = "in-progress" // Queued or running with an agent
	StatusVerify     Status = "verify"      // Agent finished, awaiting human verification
	StatusDone       Status = "done"        // Finished
)

// AllStatuses returns all valid status values in board order.
func AllStatuses() []Status {
	return []Status{
		StatusTodo,
		StatusInProgress,
		StatusVerify,
		StatusDone,
	}
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusVerify, StatusDone:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusVerify:
		return "Verify"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Reactivates returns true if entering this status puts the task back to work,
// which must cancel any pending worktree cleanup.
func (s Status) Reactivates() bool {
	return s == StatusTodo || s == StatusInProgress
}

// Transition is an observed status change.
type Transition struct {
	From Status
	To   Status
}

// TransitionKind classifies a transition by the side effects it triggers.
type TransitionKind int

const (
	// TransitionNone is a store write only (including no-op same-status updates).
	TransitionNone TransitionKind = iota
	// TransitionStart is todo/done → in-progress: a fresh start that may dispatch.
	TransitionStart
	// TransitionResume is verify → in-progress: resumption, dispatched is kept.
	TransitionResume
	// TransitionReset is any → todo: session data is reset.
	TransitionReset
	// TransitionFinish is in-progress → verify/done: the worktree is merged.
	TransitionFinish
	// TransitionClose is verify → done: the worktree is scheduled for cleanup.
	TransitionClose
	// TransitionCloseUnstarted is todo → done: cleanup safety net.
	TransitionCloseUnstarted
)

// String returns the name of the kind.
func (k TransitionKind) String() string {
	switch k {
	case TransitionStart:
		return "start"
	case TransitionResume:
		return "resume"
	case TransitionReset:
		return "reset"
	case TransitionFinish:
		return "finish"
	case TransitionClose:
		return "close"
	case TransitionCloseUnstarted:
		return "close-unstarted"
	default:
		return "none"
	}
}

// Classify returns the kind of the transition.
//
//	todo ──▶ in-progress ──▶ verify ──▶ done
//	  ▲          │  ▲          │         │
//	  └──────────┘  └──────────┘         │
//	  └──────────────────────────────────┘
func (t Transition) Classify() TransitionKind {
	if t.From == t.To {
		return TransitionNone
	}
	switch t.To {
	case StatusInProgress:
		if t.From == StatusVerify {
			return TransitionResume
		}
		return TransitionStart
	case StatusTodo:
		return TransitionReset
	case StatusVerify:
		if t.From == StatusInProgress {
			return TransitionFinish
		}
	case StatusDone:
		switch t.From {
		case StatusInProgress:
			return TransitionFinish
		case StatusVerify:
			return TransitionClose
		case StatusTodo:
			return TransitionCloseUnstarted
		}
	}
	return TransitionNone
}
