package dispatch

import (
	"testing"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Free(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		occupied int
		want     int
	}{
		{"sequential idle", Policy{Mode: domain.DispatchSequential, Slots: 1}, 0, 1},
		{"sequential busy", Policy{Mode: domain.DispatchSequential, Slots: 1}, 1, 0},
		{"parallel partially busy", Policy{Mode: domain.DispatchParallel, Slots: 3}, 1, 2},
		{"over capacity", Policy{Mode: domain.DispatchParallel, Slots: 2}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Free(tt.occupied))
			assert.Equal(t, tt.want > 0, tt.policy.Allows(tt.occupied))
		})
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := domain.DispatchConfig{Mode: domain.DispatchParallel, MaxParallel: 4}

	assert.Equal(t, Policy{Mode: domain.DispatchParallel, Slots: 4}, PolicyFor(cfg, &domain.Project{}))
	assert.Equal(t, Policy{Mode: domain.DispatchSequential, Slots: 1},
		PolicyFor(cfg, &domain.Project{DispatchMode: domain.DispatchSequential}))
}

func TestOccupiedSlots(t *testing.T) {
	cols := domain.NewTaskColumns()
	cols.Add(&domain.Task{ID: "running", Status: domain.StatusInProgress})
	cols.Add(&domain.Task{ID: "queued", Status: domain.StatusInProgress})
	cols.Add(&domain.Task{ID: "verifying", Status: domain.StatusVerify})

	// Records of verify tasks keep their session but free the slot.
	assert.Equal(t, 1, occupiedSlots([]string{"running", "verifying"}, cols))
	assert.Equal(t, 0, occupiedSlots(nil, cols))
}
