// Package ordering computes the project sequence produced by a sidebar
// drag-and-drop. The store persists the result as dense order indices.
package ordering

import "tasktracker/internal/models"

// Move removes dragged from ids and reinserts it at the position target
// currently occupies. It returns false, and ids unchanged, when the drop is a
// no-op: dropped on itself, or either id is not in the list.
func Move(ids []int64, dragged, target int64) ([]int64, bool) {
	if dragged == target {
		return ids, false
	}
	from, to := indexOf(ids, dragged), indexOf(ids, target)
	if from < 0 || to < 0 {
		return ids, false
	}

	out := make([]int64, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)

	out = append(out, 0)
	copy(out[to+1:], out[to:])
	out[to] = dragged
	return out, true
}

// IDs extracts project ids in their current display order.
func IDs(projects []models.Project) []int64 {
	ids := make([]int64, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids
}

// Duplicates returns the first repeated id, if any.
func Duplicates(ids []int64) (int64, bool) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
