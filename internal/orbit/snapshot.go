package orbit

import "sort"

// TouchSnapshot feeds per-frame touch samples to an Input for hosts that
// poll touches rather than receive events.
type TouchSnapshot struct {
	in   *Input
	prev []Touch
}

func NewTouchSnapshot(in *Input) *TouchSnapshot {
	return &TouchSnapshot{in: in}
}

// Update compares cur with the previous frame. A finger going down reports
// the full set to TouchStart, a finger lifting reports the remainder to
// TouchEnd and movement reports the full set to TouchMove.
func (t *TouchSnapshot) Update(cur []Touch) {
	sort.Slice(cur, func(i, j int) bool { return cur[i].ID < cur[j].ID })

	added, removed := diffTouches(t.prev, cur)
	switch {
	case removed:
		t.in.TouchEnd(cur)
		if added && len(cur) > 0 {
			t.in.TouchStart(cur)
		}
	case added:
		t.in.TouchStart(cur)
	case moved(t.prev, cur):
		t.in.TouchMove(cur)
	}
	t.prev = append(t.prev[:0], cur...)
}

func diffTouches(prev, cur []Touch) (added, removed bool) {
	seen := make(map[int]bool, len(prev))
	for _, p := range prev {
		seen[p.ID] = true
	}
	for _, c := range cur {
		if !seen[c.ID] {
			added = true
		}
		delete(seen, c.ID)
	}
	return added, len(seen) > 0
}

// moved assumes both slices hold the same IDs in the same order.
func moved(prev, cur []Touch) bool {
	for i := range cur {
		if cur[i].X != prev[i].X || cur[i].Y != prev[i].Y {
			return true
		}
	}
	return false
}
