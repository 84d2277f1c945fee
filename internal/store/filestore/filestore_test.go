package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

func newStore(t *testing.T) (*Store, *testutil.MockClock) {
	t.Helper()
	dir := t.TempDir()
	clock := &testutil.MockClock{NowTime: time.Date(2026, time.March, 30, 9, 0, 0, 0, time.UTC)}
	s := New(dir, filepath.Join(dir, "tasks"), WithClock(clock.Now))
	require.NoError(t, s.Init())
	return s, clock
}

func createTask(t *testing.T, s *Store, title string, status task.Status) *task.Task {
	t.Helper()
	tk := &task.Task{Title: title, Status: status, Priority: task.PriorityMedium}
	require.NoError(t, s.CreateTask(context.Background(), tk))
	return tk
}

func TestCreateAndGetTask(t *testing.T) {
	// Setup
	s, _ := newStore(t)
	ctx := context.Background()

	// Execute
	tk := &task.Task{
		Title:       "Write release notes",
		Status:      task.StatusTodo,
		Priority:    task.PriorityHigh,
		Description: "Cover the drag and drop changes.",
		Tags:        []string{"Docs", "docs"},
	}
	require.NoError(t, s.CreateTask(ctx, tk))

	// Assert
	require.NotEmpty(t, tk.ID)
	assert.Equal(t, filepath.Join(s.TasksDir(), tk.ID+"-write-release-notes.md"), tk.File)
	assert.Nil(t, tk.Started, "To Do is not started")

	got, err := s.GetTask(ctx, tk.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, tk.Title, got.Title)
	assert.Equal(t, "Cover the drag and drop changes.", got.Description)
	assert.Equal(t, []string{"docs"}, got.Tags)
}

func TestCreateTask_RejectsInvalid(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.CreateTask(ctx, &task.Task{Title: " ", Status: task.StatusTodo})
	assert.True(t, clierr.HasCode(err, clierr.InvalidInput))

	err = s.CreateTask(ctx, &task.Task{Title: "x", Status: task.Status("Archived")})
	assert.True(t, clierr.HasCode(err, clierr.InvalidStatus))
}

func TestFetchTasksBySprint(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()

	a := createTask(t, s, "a", task.StatusBacklog)
	clock.Advance(time.Minute)
	b := &task.Task{Title: "b", Status: task.StatusTodo, Priority: task.PriorityLow, SprintID: "s1"}
	require.NoError(t, s.CreateTask(ctx, b))
	clock.Advance(time.Minute)
	c := createTask(t, s, "c", task.StatusDone)

	unassigned, err := s.FetchTasksBySprint(ctx, store.Unassigned)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, ids(unassigned))

	inSprint, err := s.FetchTasksBySprint(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(inSprint))

	all, err := s.FetchTasksBySprint(ctx, store.AllSprints)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(all))
}

func TestUpdateTaskStatus(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	tk := createTask(t, s, "a", task.StatusBacklog)
	clock.Advance(time.Hour)

	require.NoError(t, s.UpdateTaskStatus(ctx, tk.ID, task.StatusDone))

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	require.NotNil(t, got.Completed)
	require.NotNil(t, got.Started)
	assert.True(t, clock.Now().Equal(got.Updated))
}

func TestUpdateTaskStatus_Errors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tk := createTask(t, s, "a", task.StatusBacklog)

	err := s.UpdateTaskStatus(ctx, tk.ID, task.Status("XYZ"))
	assert.True(t, clierr.HasCode(err, clierr.InvalidStatus))

	err = s.UpdateTaskStatus(ctx, "00000000-0000-4000-8000-000000000000", task.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, clierr.HasCode(err, clierr.TaskNotFound))

	err = s.UpdateTaskStatus(ctx, tk.ID[:8], task.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound, "status updates need the full id")
}

func TestSaveTask_RenamesOnTitleChange(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tk := createTask(t, s, "old title", task.StatusBacklog)
	oldPath := tk.File

	tk.Title = "new title"
	require.NoError(t, s.SaveTask(ctx, tk))

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, filepath.Join(s.TasksDir(), tk.ID+"-new-title.md"))
}

func TestDeleteTask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tk := createTask(t, s, "a", task.StatusBacklog)

	require.NoError(t, s.DeleteTask(ctx, tk.ID))

	_, err := s.GetTask(ctx, tk.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, tk.ID), store.ErrNotFound)
}

func TestCommentsAndSubtasks(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tk := createTask(t, s, "a", task.StatusBacklog)

	c := &task.Comment{Content: "first"}
	require.NoError(t, s.AddComment(ctx, tk.ID, c))
	c.Content = "edited"
	require.NoError(t, s.UpdateComment(ctx, tk.ID, c))

	sub := &task.Subtask{Title: "step one"}
	require.NoError(t, s.AddSubtask(ctx, tk.ID, sub))
	require.NoError(t, s.SetSubtaskDone(ctx, tk.ID, sub.ID[:6], true))

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "edited", got.Comments[0].Content)
	require.Len(t, got.Subtasks, 1)
	assert.True(t, got.Subtasks[0].Done)

	require.NoError(t, s.DeleteComment(ctx, tk.ID, c.ID))
	require.NoError(t, s.DeleteSubtask(ctx, tk.ID, sub.ID))
	got, err = s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments)
	assert.Empty(t, got.Subtasks)

	err = s.DeleteComment(ctx, tk.ID, "nope")
	assert.True(t, clierr.HasCode(err, clierr.CommentNotFound))
	err = s.SetSubtaskDone(ctx, tk.ID, "nope", true)
	assert.True(t, clierr.HasCode(err, clierr.SubtaskNotFound))
}

func TestSprints_AtMostOneActive(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	start := clock.Now()

	one := &task.Sprint{Goal: "one", Start: start, End: start.Add(14 * 24 * time.Hour)}
	two := &task.Sprint{Goal: "two", Start: start.Add(time.Hour), End: start.Add(15 * 24 * time.Hour)}
	require.NoError(t, s.SaveSprint(ctx, one))
	require.NoError(t, s.SaveSprint(ctx, two))

	_, err := s.ActiveSprint(ctx)
	assert.True(t, clierr.HasCode(err, clierr.NoActiveSprint))

	require.NoError(t, s.ActivateSprint(ctx, one.ID))
	require.NoError(t, s.ActivateSprint(ctx, two.ID[:8]))

	active, err := s.ActiveSprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, two.ID, active.ID)

	sprints, err := s.ListSprints(ctx)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.False(t, sprints[0].Active)
	assert.True(t, sprints[1].Active)

	assert.ErrorIs(t, s.ActivateSprint(ctx, "missing"), store.ErrNotFound)
}

func TestSaveSprint_Validation(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()
	now := clock.Now()

	err := s.SaveSprint(ctx, &task.Sprint{Goal: "", Start: now, End: now.Add(time.Hour)})
	assert.True(t, clierr.HasCode(err, clierr.InvalidInput))

	err = s.SaveSprint(ctx, &task.Sprint{Goal: "x", Start: now, End: now})
	assert.True(t, clierr.HasCode(err, clierr.InvalidInput))
}

func TestStandups_NewestFirst(t *testing.T) {
	s, clock := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddStandup(ctx, &task.Standup{Yesterday: "a", Today: "b"}))
	clock.Advance(24 * time.Hour)
	require.NoError(t, s.AddStandup(ctx, &task.Standup{Yesterday: "c", Today: "d", Blockers: "none"}))

	err := s.AddStandup(ctx, &task.Standup{Yesterday: "only"})
	assert.True(t, clierr.HasCode(err, clierr.InvalidStandup))

	list, err := s.ListStandups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Yesterday)
	assert.Equal(t, "a", list[1].Yesterday)
}

func TestListTasks_SkipsMalformedFiles(t *testing.T) {
	s, _ := newStore(t)
	createTask(t, s, "good", task.StatusBacklog)
	require.NoError(t, os.WriteFile(filepath.Join(s.TasksDir(), "junk.md"), []byte("no frontmatter"), 0o600))

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func ids(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
