package dispatch

import "github.com/runoshun/crew-board/internal/domain"

// Outcome labels reported to the Observer.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultTimeout  = "timeout"
	ResultMerged   = "merged"
	ResultConflict = "conflict"
	ResultError    = "error"
	ResultRemoved  = "removed"
	ResultSkipped  = "skipped"
)

// Observer receives orchestrator events, typically to export metrics.
type Observer interface {
	DispatchFinished(result string)
	SessionsActive(n int)
	MergeFinished(result string)
	CleanupFinished(result string)
	TransitionObserved(from, to domain.Status)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) DispatchFinished(string) {}
func (NopObserver) SessionsActive(int) {}
func (NopObserver) MergeFinished(string) {}
func (NopObserver) CleanupFinished(string) {}
func (NopObserver) TransitionObserved(domain.Status, domain.Status) {}
