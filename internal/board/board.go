package board

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// recentCompleted is how many completed tasks the dashboard lists.
const recentCompleted = 3

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Filter  FilterOptions
	SortBy  string
	Reverse bool
	Limit   int
}

// List applies filters, sorting and the limit to tasks.
func List(tasks []*task.Task, opts ListOptions) []*task.Task {
	out := Filter(tasks, opts.Filter)

	sortField := opts.SortBy
	if sortField == "" {
		sortField = "created"
	}
	Sort(out, sortField, opts.Reverse)

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// StatusSummary holds metrics for a single status column.
type StatusSummary struct {
	Status  task.Status `json:"status"`
	Count   int         `json:"count"`
	Overdue int         `json:"overdue"`
}

// PriorityCount holds a count for a priority level.
type PriorityCount struct {
	Priority task.Priority `json:"priority"`
	Count    int           `json:"count"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardName  string          `json:"board_name"`
	TotalTasks int             `json:"total_tasks"`
	Statuses   []StatusSummary `json:"statuses"`
	Priorities []PriorityCount `json:"priorities"`
}

// Summary computes per-status and per-priority counts.
func Summary(boardName string, tasks []*task.Task, now time.Time) Overview {
	statusMap := make(map[task.Status]*StatusSummary, len(task.AllStatuses()))
	for _, s := range task.AllStatuses() {
		statusMap[s] = &StatusSummary{Status: s}
	}
	prioMap := make(map[task.Priority]int, len(task.AllPriorities()))

	for _, t := range tasks {
		if ss, ok := statusMap[t.Status]; ok {
			ss.Count++
			if IsOverdue(t, now) {
				ss.Overdue++
			}
		}
		prioMap[t.Priority]++
	}

	statuses := make([]StatusSummary, 0, len(statusMap))
	for _, s := range task.AllStatuses() {
		statuses = append(statuses, *statusMap[s])
	}

	priorities := make([]PriorityCount, 0, len(prioMap))
	for _, p := range task.AllPriorities() {
		priorities = append(priorities, PriorityCount{Priority: p, Count: prioMap[p]})
	}

	return Overview{
		BoardName:  boardName,
		TotalTasks: len(tasks),
		Statuses:   statuses,
		Priorities: priorities,
	}
}

// SprintStatus describes the active sprint on the dashboard.
type SprintStatus struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	End       time.Time `json:"end"`
	Countdown string    `json:"countdown"`
}

// Dashboard is the landing overview: progress, recent work and the sprint clock.
type Dashboard struct {
	Overview
	Done            int           `json:"done"`
	Progress        int           `json:"progress"`
	RecentCompleted []*task.Task  `json:"recent_completed"`
	StandupCount    int           `json:"standup_count"`
	Sprint          *SprintStatus `json:"sprint,omitempty"`
}

// BuildDashboard computes the dashboard. active may be nil.
func BuildDashboard(boardName string, tasks []*task.Task, standups int, active *task.Sprint, now time.Time) Dashboard {
	d := Dashboard{
		Overview:     Summary(boardName, tasks, now),
		StandupCount: standups,
	}

	var done []*task.Task
	for _, t := range tasks {
		if t.Status == task.StatusDone {
			done = append(done, t)
		}
	}
	d.Done = len(done)
	d.Progress = Progress(len(done), len(tasks))

	sort.SliceStable(done, func(i, j int) bool {
		return completedAt(done[i]).After(completedAt(done[j]))
	})
	if len(done) > recentCompleted {
		done = done[:recentCompleted]
	}
	d.RecentCompleted = done

	if active != nil {
		d.Sprint = &SprintStatus{
			ID:        active.ID,
			Goal:      active.Goal,
			End:       active.End,
			Countdown: task.FormatCountdown(active.Remaining(now)),
		}
	}
	return d
}

// Progress returns round(done/total*100), or 0 for an empty board.
func Progress(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100)) //nolint:mnd // percent
}

func completedAt(t *task.Task) time.Time {
	if t.Completed != nil {
		return *t.Completed
	}
	return t.Updated
}

// ParseIDs splits a comma-separated id string into de-duplicated ids.
func ParseIDs(arg string) ([]string, error) {
	parts := strings.Split(arg, ",")
	seen := make(map[string]bool, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		ids = append(ids, p)
		seen[p] = true
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidInput, "no task IDs provided")
	}
	return ids, nil
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(tasks []*task.Task) map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// Tags returns every tag in use with its task count, most used first.
func Tags(tasks []*task.Task) []TagCount {
	counts := make(map[string]int)
	for _, t := range tasks {
		for _, tag := range t.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// TagCount is one row of the tags listing.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
