// Package board holds the in-memory board, the optimistic transition
// reconciler and board-level operations on task collections.
package board

import (
	"slices"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// FilterOptions defines which tasks to include.
type FilterOptions struct {
	Statuses        []task.Status
	ExcludeStatuses []task.Status // statuses to exclude from results
	Priorities      []task.Priority
	Tag             string
	Search          string // case-insensitive substring match across title, description, and tags
	SprintID        string // "" = no filter
	Unassigned      bool   // only tasks outside any sprint
	Overdue         bool
	Now             time.Time
}

// Filter returns tasks matching all specified criteria (AND logic).
func Filter(tasks []*task.Task, opts FilterOptions) []*task.Task {
	var result []*task.Task
	for _, t := range tasks {
		if matchesFilter(t, opts) {
			result = append(result, t)
		}
	}
	return result
}

func matchesFilter(t *task.Task, opts FilterOptions) bool {
	if !matchesCoreFilter(t, opts) {
		return false
	}
	return matchesExtendedFilter(t, opts)
}

func matchesCoreFilter(t *task.Task, opts FilterOptions) bool {
	if !matchesStatus(t.Status, opts.Statuses, opts.ExcludeStatuses) {
		return false
	}
	if len(opts.Priorities) > 0 && !slices.Contains(opts.Priorities, t.Priority) {
		return false
	}
	if opts.Tag != "" && !slices.Contains(t.Tags, strings.ToLower(opts.Tag)) {
		return false
	}
	if opts.SprintID != "" && t.SprintID != opts.SprintID {
		return false
	}
	if opts.Unassigned && t.SprintID != "" {
		return false
	}
	return true
}

func matchesStatus(status task.Status, include, exclude []task.Status) bool {
	if len(include) > 0 && !slices.Contains(include, status) {
		return false
	}
	if len(exclude) > 0 && slices.Contains(exclude, status) {
		return false
	}
	return true
}

// matchesSearch performs case-insensitive substring matching across title, description, and tags.
func matchesSearch(t *task.Task, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func matchesExtendedFilter(t *task.Task, opts FilterOptions) bool {
	if opts.Search != "" && !matchesSearch(t, opts.Search) {
		return false
	}
	if opts.Overdue && !IsOverdue(t, opts.Now) {
		return false
	}
	return true
}

// IsOverdue reports whether t has a due date before now's calendar day and
// is not done.
func IsOverdue(t *task.Task, now time.Time) bool {
	return t.Due != nil && !t.Status.IsTerminal() && t.Due.Overdue(now)
}
