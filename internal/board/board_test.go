package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

var testNow = time.Date(2026, time.March, 30, 12, 0, 0, 0, time.UTC)

func completedTask(id string, at time.Time) *task.Task {
	tk := testutil.NewTask(id, id, task.StatusDone)
	tk.Completed = &at
	return tk
}

func TestBuildDashboard(t *testing.T) {
	// Setup
	tasks := []*task.Task{
		testutil.NewTask("a", "a", task.StatusBacklog),
		testutil.NewTask("b", "b", task.StatusInProgress),
		completedTask("d1", testNow.Add(-4*time.Hour)),
		completedTask("d2", testNow.Add(-1*time.Hour)),
		completedTask("d3", testNow.Add(-3*time.Hour)),
		completedTask("d4", testNow.Add(-2*time.Hour)),
	}
	sprint := &task.Sprint{ID: "s1", Goal: "ship it", End: testNow.Add(26*time.Hour + time.Minute)}

	// Execute
	d := BuildDashboard("Team", tasks, 5, sprint, testNow)

	// Assert
	assert.Equal(t, 6, d.TotalTasks)
	assert.Equal(t, 4, d.Done)
	assert.Equal(t, 67, d.Progress)
	assert.Equal(t, 5, d.StandupCount)
	require.Len(t, d.RecentCompleted, 3)
	assert.Equal(t, "d2", d.RecentCompleted[0].ID)
	assert.Equal(t, "d4", d.RecentCompleted[1].ID)
	assert.Equal(t, "d3", d.RecentCompleted[2].ID)
	require.NotNil(t, d.Sprint)
	assert.Equal(t, "1d 2h 1m 0s", d.Sprint.Countdown)
	assert.Equal(t, 4, d.Statuses[3].Count)
}

func TestBuildDashboard_EmptyBoard(t *testing.T) {
	d := BuildDashboard("Team", nil, 0, nil, testNow)
	assert.Zero(t, d.Progress)
	assert.Nil(t, d.Sprint)
	assert.Empty(t, d.RecentCompleted)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(0, 0))
	assert.Equal(t, 33, Progress(1, 3))
	assert.Equal(t, 50, Progress(1, 2))
	assert.Equal(t, 100, Progress(4, 4))
}

func TestList_FilterSortLimit(t *testing.T) {
	due := date.New(2026, time.March, 1)
	a := testutil.NewTask("a", "Write docs", task.StatusBacklog)
	a.Priority = task.PriorityLow
	a.Tags = []string{"docs"}
	b := testutil.NewTask("b", "Fix login", task.StatusTodo)
	b.Priority = task.PriorityHigh
	b.Due = &due
	b.SprintID = "s1"
	c := testutil.NewTask("c", "Refactor login", task.StatusDone)
	c.Priority = task.PriorityMedium
	c.Due = &due

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"priority high first", ListOptions{SortBy: "priority"}, []string{"b", "c", "a"}},
		{"search", ListOptions{Filter: FilterOptions{Search: "LOGIN"}, SortBy: "id"}, []string{"b", "c"}},
		{"tag", ListOptions{Filter: FilterOptions{Tag: "Docs"}}, []string{"a"}},
		{"sprint", ListOptions{Filter: FilterOptions{SprintID: "s1"}}, []string{"b"}},
		{"unassigned", ListOptions{Filter: FilterOptions{Unassigned: true}, SortBy: "id"}, []string{"a", "c"}},
		{"overdue skips done", ListOptions{Filter: FilterOptions{Overdue: true, Now: testNow}}, []string{"b"}},
		{"exclude", ListOptions{Filter: FilterOptions{ExcludeStatuses: []task.Status{task.StatusDone}}, SortBy: "id"}, []string{"a", "b"}},
		{"limit", ListOptions{SortBy: "id", Reverse: true, Limit: 1}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := List([]*task.Task{a, b, c}, tt.opts)
			ids := make([]string, len(got))
			for i, tk := range got {
				ids[i] = tk.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGroupBy_Status(t *testing.T) {
	tasks := []*task.Task{
		testutil.NewTask("a", "a", task.StatusDone),
		testutil.NewTask("b", "b", task.StatusBacklog),
	}
	g := GroupBy(tasks, "status", nil)
	require.Len(t, g.Groups, 2)
	assert.Equal(t, "Backlog", g.Groups[0].Key)
	assert.Equal(t, "Done", g.Groups[1].Key)
}

func TestGroupBy_Sprint(t *testing.T) {
	a := testutil.NewTask("a", "a", task.StatusDone)
	a.SprintID = "s1"
	b := testutil.NewTask("b", "b", task.StatusBacklog)

	g := GroupBy([]*task.Task{a, b}, "sprint", map[string]string{"s1": "Sprint 1"})
	require.Len(t, g.Groups, 2)
	assert.Equal(t, "(backlog)", g.Groups[0].Key)
	assert.Equal(t, "Sprint 1", g.Groups[1].Key)
}

func TestTags(t *testing.T) {
	a := testutil.NewTask("a", "a", task.StatusDone)
	a.Tags = []string{"api", "ui"}
	b := testutil.NewTask("b", "b", task.StatusDone)
	b.Tags = []string{"api"}

	assert.Equal(t, []TagCount{{"api", 2}, {"ui", 1}}, Tags([]*task.Task{a, b}))
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("abc, ABC ,def,")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, ids)

	_, err = ParseIDs(" , ")
	assert.Error(t, err)
}

func TestActivityLog(t *testing.T) {
	dir := t.TempDir()

	LogMutation(dir, "create", "a", "Write docs")
	LogMutation(dir, "move", "a", "Backlog -> To Do")

	entries, err := ReadLog(dir, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "move", entries[1].Action)

	last, err := ReadLog(dir, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "Backlog -> To Do", last[0].Detail)

	none, err := ReadLog(t.TempDir(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
