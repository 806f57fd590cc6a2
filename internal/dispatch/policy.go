package dispatch

import "github.com/runoshun/crew-board/internal/domain"

// Policy is the concurrency policy of one project.
type Policy struct {
	Mode  domain.DispatchMode
	Slots int
}

// PolicyFor resolves the policy of a project against the configured defaults.
func PolicyFor(cfg domain.DispatchConfig, p *domain.Project) Policy {
	mode, slots := cfg.Policy(p)
	return Policy{Mode: mode, Slots: slots}
}

// Free returns the number of slots left given occupied slots.
func (p Policy) Free(occupied int) int {
	if free := p.Slots - occupied; free > 0 {
		return free
	}
	return 0
}

// Allows returns true if another task may be dispatched.
func (p Policy) Allows(occupied int) bool {
	return p.Free(occupied) > 0
}

// occupiedSlots counts the recorded tasks that are in progress.
// A record whose task moved to verify keeps its session but frees the slot.
func occupiedSlots(recorded []string, cols domain.TaskColumns) int {
	inProgress := make(map[string]struct{}, len(cols[domain.StatusInProgress]))
	for _, t := range cols[domain.StatusInProgress] {
		inProgress[t.ID] = struct{}{}
	}
	n := 0
	for _, id := range recorded {
		if _, ok := inProgress[id]; ok {
			n++
		}
	}
	return n
}
