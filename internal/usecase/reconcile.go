package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/dispatch"
	"github.com/runoshun/crew-board/internal/domain"
)

// ReconcileInput contains the parameters for startup reconciliation.
type ReconcileInput struct {
	Strategy string // adopt or reset; empty means adopt
}

// ReconcileOutput contains what the reconciliation did.
type ReconcileOutput struct {
	Result *dispatch.ReconcileResult
}

// Reconcile is the use case run once when the server starts.
type Reconcile struct {
	dispatcher Dispatcher
}

// NewReconcile creates a new Reconcile use case.
func NewReconcile(dispatcher Dispatcher) *Reconcile {
	return &Reconcile{dispatcher: dispatcher}
}

// Execute aligns persisted dispatched flags with live sessions and processes every queue.
func (uc *Reconcile) Execute(ctx context.Context, in ReconcileInput) (*ReconcileOutput, error) {
	strategy := in.Strategy
	switch strategy {
	case "":
		strategy = domain.ReconcileAdopt
	case domain.ReconcileAdopt, domain.ReconcileReset:
	default:
		return nil, fmt.Errorf("unknown reconcile strategy %q", strategy)
	}

	res, err := uc.dispatcher.Reconcile(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return &ReconcileOutput{Result: res}, nil
}
