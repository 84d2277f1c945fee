package task

import "strings"

// Status is the column a task sits in. The set is closed: values outside
// AllStatuses are never valid.
type Status string

// Stored status values.
const (
	StatusBacklog    Status = "Backlog"
	StatusTodo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// AllStatuses returns every valid status in board column order.
func AllStatuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}
}

// statusAliases maps normalized user input to a status.
var statusAliases = map[string]Status{
	"backlog":     StatusBacklog,
	"todo":        StatusTodo,
	"to do":       StatusTodo,
	"to-do":       StatusTodo,
	"in progress": StatusInProgress,
	"in-progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"doing":       StatusInProgress,
	"wip":         StatusInProgress,
	"done":        StatusDone,
}

// ParseStatus resolves user input (case-insensitive, common aliases) into a
// Status. The second result is false for anything outside the closed set.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// IsValid reports whether s is one of the four board statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s ends a task's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// Index returns the column position of s, or -1.
func (s Status) Index() int {
	for i, st := range AllStatuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the column after s. ok is false at the last column.
func (s Status) Next() (Status, bool) {
	all := AllStatuses()
	i := s.Index()
	if i < 0 || i >= len(all)-1 {
		return s, false
	}
	return all[i+1], true
}

// Prev returns the column before s. ok is false at the first column.
func (s Status) Prev() (Status, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return AllStatuses()[i-1], true
}

// Key returns a lowercase, dash-separated form suitable for file names,
// CLI output and style lookups.
func (s Status) Key() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}

// StatusNames returns the stored values of AllStatuses as strings.
func StatusNames() []string {
	all := AllStatuses()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return names
}

// Priority ranks a task. The set is closed.
type Priority string

// Stored priority values.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// AllPriorities returns every priority from lowest to highest.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority resolves case-insensitive input into a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return PriorityLow, true
	case "medium", "med", "m":
		return PriorityMedium, true
	case "high", "h":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// IsValid reports whether p is one of the three priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Rank returns 0 for Low up to 2 for High, or -1 when invalid.
func (p Priority) Rank() int {
	for i, pr := range AllPriorities() {
		if pr == p {
			return i
		}
	}
	return -1
}

// PriorityNames returns the stored values of AllPriorities as strings.
func PriorityNames() []string {
	all := AllPriorities()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = string(p)
	}
	return names
}
