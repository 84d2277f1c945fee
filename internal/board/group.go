package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const (
	fieldPriority = "priority"
	fieldStatus   = "status"
	fieldSprint   = "sprint"
	fieldTag      = "tag"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key      string          `json:"key"`
	Statuses []StatusSummary `json:"statuses"`
	Total    int             `json:"total"`
}

// GroupBy groups tasks by the specified field and returns summaries per
// group. sprintNames maps sprint ids to display keys; unknown ids fall back
// to their short form.
func GroupBy(tasks []*task.Task, field string, sprintNames map[string]string) GroupedSummary {
	groups := make(map[string][]*task.Task)

	for _, t := range tasks {
		for _, key := range extractGroupKeys(t, field, sprintNames) {
			groups[key] = append(groups[key], t)
		}
	}

	sortedKeys := sortGroupKeys(groups, field)

	result := GroupedSummary{
		Groups: make([]GroupSummary, 0, len(sortedKeys)),
	}
	for _, key := range sortedKeys {
		groupTasks := groups[key]
		result.Groups = append(result.Groups, GroupSummary{
			Key:      key,
			Statuses: groupStatusSummary(groupTasks),
			Total:    len(groupTasks),
		})
	}
	return result
}

func extractGroupKeys(t *task.Task, field string, sprintNames map[string]string) []string {
	switch field {
	case fieldTag:
		if len(t.Tags) == 0 {
			return []string{"(untagged)"}
		}
		return t.Tags
	case fieldSprint:
		if t.SprintID == "" {
			return []string{"(backlog)"}
		}
		if name, ok := sprintNames[t.SprintID]; ok {
			return []string{name}
		}
		return []string{task.ShortID(t.SprintID)}
	case fieldPriority:
		return []string{string(t.Priority)}
	case fieldStatus:
		return []string{string(t.Status)}
	default:
		return []string{"(all)"}
	}
}

func sortGroupKeys(groups map[string][]*task.Task, field string) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	switch field {
	case fieldStatus:
		sort.SliceStable(keys, func(i, j int) bool {
			return task.Status(keys[i]).Index() < task.Status(keys[j]).Index()
		})
	case fieldPriority:
		sort.SliceStable(keys, func(i, j int) bool {
			return task.Priority(keys[i]).Rank() > task.Priority(keys[j]).Rank()
		})
	default:
		sort.Strings(keys)
	}
	return keys
}

func groupStatusSummary(tasks []*task.Task) []StatusSummary {
	counts := CountByStatus(tasks)
	statuses := make([]StatusSummary, 0, len(task.AllStatuses()))
	for _, s := range task.AllStatuses() {
		statuses = append(statuses, StatusSummary{Status: s, Count: counts[s]})
	}
	return statuses
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{fieldTag, fieldSprint, fieldPriority, fieldStatus}
}
