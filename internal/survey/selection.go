package survey

import "github.com/kingrea/roadmap-survey/internal/roadmap"

// Selection is the ordered list of pairs a respondent checked.
type Selection []roadmap.Pair

// Collect flattens per-barrier check state into a Selection. Barriers follow
// the roadmap's order and actions follow the order they were checked in.
// Checks that do not match a current roadmap entry are dropped, as are
// repeated checks.
func Collect(rm *roadmap.Roadmap, checked map[string][]string) Selection {
	var out Selection
	if rm == nil || len(checked) == 0 {
		return out
	}
	for _, barrier := range rm.Barriers() {
		seen := map[string]struct{}{}
		for _, action := range checked[barrier] {
			if _, dup := seen[action]; dup || !rm.Contains(barrier, action) {
				continue
			}
			seen[action] = struct{}{}
			out = append(out, roadmap.Pair{Barrier: barrier, Action: action})
		}
	}
	return out
}
