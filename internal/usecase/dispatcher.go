// Package usecase contains the application use cases.
package usecase

import (
	"context"

	"github.com/runoshun/crew-board/internal/dispatch"
	"github.com/runoshun/crew-board/internal/domain"
)

// Dispatcher is the part of the orchestrator the use cases drive.
type Dispatcher interface {
	Transition(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*dispatch.TransitionResult, error)
	DispatchNow(ctx context.Context, projectID, taskID string) (domain.SessionHandle, error)
	Delete(ctx context.Context, projectID, taskID string) error
	SessionEnded(ctx context.Context, projectID, taskID string) (bool, error)
	Reconcile(ctx context.Context, strategy string) (*dispatch.ReconcileResult, error)
}

// SessionLookup reads the active-dispatch registry.
type SessionLookup interface {
	Get(taskID string) (dispatch.Record, bool)
}

// Ensure the dispatch package satisfies the use case ports.
var (
	_ Dispatcher    = (*dispatch.Orchestrator)(nil)
	_ SessionLookup = (*dispatch.Registry)(nil)
)

// liveSession returns the session handle of an active registry record.
func liveSession(sessions SessionLookup, taskID string) *domain.SessionHandle {
	if sessions == nil {
		return nil
	}
	rec, ok := sessions.Get(taskID)
	if !ok || !rec.Active {
		return nil
	}
	h := rec.Handle
	return &h
}
