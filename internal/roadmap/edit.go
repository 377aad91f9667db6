package roadmap

import "strings"

// Edit carries the three form fields behind the "Add Barrier/Action" button.
type Edit struct {
	NewBarrier      string `json:"new_barrier"`
	ExistingBarrier string `json:"existing_barrier"`
	Action          string `json:"action"`
}

// EditResult describes what an edit changed. A result with nothing added is
// still a success; Duplicate marks the case where the input was already
// present.
type EditResult struct {
	Barrier      string `json:"barrier,omitempty"`
	BarrierAdded bool   `json:"barrier_added"`
	ActionAdded  bool   `json:"action_added"`
	Duplicate    bool   `json:"duplicate"`
}

// Changed reports whether the roadmap was mutated.
func (r EditResult) Changed() bool {
	return r.BarrierAdded || r.ActionAdded
}

// Outcome is a short label for logs and metrics.
func (r EditResult) Outcome() string {
	switch {
	case r.Changed():
		return "added"
	case r.Duplicate:
		return "duplicate"
	default:
		return "noop"
	}
}

// AddBarrier inserts name when it is not yet a key, then appends action to
// that barrier unless it is empty or already listed. An empty name leaves the
// roadmap untouched.
func (r *Roadmap) AddBarrier(name, action string) EditResult {
	name = strings.TrimSpace(name)
	action = strings.TrimSpace(action)
	if name == "" {
		return EditResult{}
	}
	result := EditResult{Barrier: name}
	result.BarrierAdded = r.insertBarrier(name)
	if action != "" {
		result.ActionAdded = r.appendAction(name, action)
	}
	result.Duplicate = !result.Changed()
	return result
}

// AddActionToExisting appends action to an existing barrier. Unknown
// barriers, empty input and exact duplicates are ignored.
func (r *Roadmap) AddActionToExisting(barrier, action string) EditResult {
	barrier = strings.TrimSpace(barrier)
	action = strings.TrimSpace(action)
	if barrier == "" || action == "" || !r.Has(barrier) {
		return EditResult{Barrier: barrier}
	}
	result := EditResult{Barrier: barrier}
	result.ActionAdded = r.appendAction(barrier, action)
	result.Duplicate = !result.ActionAdded
	return result
}

// Apply runs exactly one of the two edit operations. A filled-in new barrier
// wins over a selected existing one.
func (r *Roadmap) Apply(edit Edit) EditResult {
	if strings.TrimSpace(edit.NewBarrier) != "" {
		return r.AddBarrier(edit.NewBarrier, edit.Action)
	}
	return r.AddActionToExisting(edit.ExistingBarrier, edit.Action)
}
