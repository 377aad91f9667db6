// internal/roadmap/roadmap.go
//
// The roadmap is the working set of barrier → action mappings a respondent
// reviews and extends during one survey session. Keys keep insertion order
// so the form renders barriers in the order they were seeded or added.

package roadmap

import (
	"fmt"
	"strings"
)

// Pair is a single barrier/action combination.
type Pair struct {
	Barrier string `json:"barrier" yaml:"barrier"`
	Action  string `json:"action" yaml:"action"`
}

// NotFoundError is returned when a barrier is not part of the roadmap.
type NotFoundError struct {
	Barrier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("roadmap: barrier %q not found", e.Barrier)
}

// Roadmap is an ordered mapping from barrier name to a duplicate-free,
// insertion-ordered list of actions. The zero value is not usable; call New
// or FromSeed.
type Roadmap struct {
	order   []string
	actions map[string][]string
}

// New returns an empty roadmap.
func New() *Roadmap {
	return &Roadmap{actions: map[string][]string{}}
}

// FromSeed builds a roadmap from a seed table. Blank names are skipped and
// duplicate barriers or actions collapse onto their first occurrence.
func FromSeed(seed Seed) *Roadmap {
	rm := New()
	for _, entry := range seed {
		name := strings.TrimSpace(entry.Barrier)
		if name == "" {
			continue
		}
		rm.insertBarrier(name)
		for _, action := range entry.Actions {
			rm.appendAction(name, strings.TrimSpace(action))
		}
	}
	return rm
}

// Barriers returns the barrier names in insertion order.
func (r *Roadmap) Barriers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether barrier is a key of the roadmap.
func (r *Roadmap) Has(barrier string) bool {
	_, ok := r.actions[barrier]
	return ok
}

// ActionsFor returns a copy of the actions recorded for barrier.
func (r *Roadmap) ActionsFor(barrier string) ([]string, error) {
	actions, ok := r.actions[barrier]
	if !ok {
		return nil, &NotFoundError{Barrier: barrier}
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out, nil
}

// Contains reports whether action is listed under barrier.
func (r *Roadmap) Contains(barrier, action string) bool {
	for _, existing := range r.actions[barrier] {
		if existing == action {
			return true
		}
	}
	return false
}

// Len returns the number of barriers.
func (r *Roadmap) Len() int {
	return len(r.order)
}

// Pairs flattens the roadmap into barrier/action pairs in display order.
func (r *Roadmap) Pairs() []Pair {
	var pairs []Pair
	for _, barrier := range r.order {
		for _, action := range r.actions[barrier] {
			pairs = append(pairs, Pair{Barrier: barrier, Action: action})
		}
	}
	return pairs
}

// Entries snapshots the roadmap as a seed table.
func (r *Roadmap) Entries() Seed {
	out := make(Seed, 0, len(r.order))
	for _, barrier := range r.order {
		actions := make([]string, len(r.actions[barrier]))
		copy(actions, r.actions[barrier])
		out = append(out, Entry{Barrier: barrier, Actions: actions})
	}
	return out
}

// Clone returns a deep copy.
func (r *Roadmap) Clone() *Roadmap {
	return FromSeed(r.Entries())
}

func (r *Roadmap) insertBarrier(name string) bool {
	if _, ok := r.actions[name]; ok {
		return false
	}
	r.order = append(r.order, name)
	r.actions[name] = []string{}
	return true
}

func (r *Roadmap) appendAction(barrier, action string) bool {
	if action == "" || r.Contains(barrier, action) {
		return false
	}
	r.actions[barrier] = append(r.actions[barrier], action)
	return true
}
