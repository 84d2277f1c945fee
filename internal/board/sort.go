package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// SortFields lists the accepted --sort values.
func SortFields() []string {
	return []string{"created", "updated", "status", "priority", "due", "title", "id"}
}

// Sort sorts tasks by the given field. Status follows column order and
// priority runs from high to low.
func Sort(tasks []*task.Task, field string, reverse bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		less := compareTasks(tasks[i], tasks[j], field)
		if reverse {
			return !less
		}
		return less
	})
}

func compareTasks(a, b *task.Task, field string) bool {
	switch field {
	case "id":
		return a.ID < b.ID
	case fieldStatus:
		return a.Status.Index() < b.Status.Index()
	case fieldPriority:
		return a.Priority.Rank() > b.Priority.Rank()
	case "title":
		return a.Title < b.Title
	case "updated":
		return a.Updated.Before(b.Updated)
	case "due":
		return compareDue(a, b)
	default:
		return a.Created.Before(b.Created)
	}
}

func compareDue(a, b *task.Task) bool {
	if a.Due == nil && b.Due == nil {
		return false
	}
	if a.Due == nil {
		return false // nil sorts last
	}
	if b.Due == nil {
		return true
	}
	return a.Due.Before(b.Due.Time)
}
