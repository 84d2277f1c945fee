package cmd

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var testNow = time.Date(2026, time.March, 31, 12, 0, 0, 0, time.Local)

// newTestSession initializes a file-backed board in a temp dir and opens a
// session on it.
func newTestSession(t *testing.T) *session {
	t.Helper()
	dir := t.TempDir()
	_, err := config.Init(dir, "test-board")
	require.NoError(t, err)

	oldDir, oldNow := flagDir, now
	flagDir = dir
	now = func() time.Time { return testNow }
	t.Cleanup(func() { flagDir, now = oldDir, oldNow })

	s, err := openSession(io.Discard)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func createTask(t *testing.T, s *session, title string, status task.Status) *task.Task {
	t.Helper()
	tk := task.New(title, status, task.PriorityMedium, testNow)
	require.NoError(t, s.repo.CreateTask(context.Background(), tk))
	return tk
}

func moveFlagsCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().Bool("next", false, "")
	c.Flags().Bool("prev", false, "")
	for k, v := range flags {
		require.NoError(t, c.Flags().Set(k, v))
	}
	return c
}

func TestOpenSession_NoBoard(t *testing.T) {
	oldDir := flagDir
	flagDir = t.TempDir()
	t.Cleanup(func() { flagDir = oldDir })

	_, err := openSession(io.Discard)

	assert.True(t, clierr.HasCode(err, clierr.BoardNotFound))
}

func TestExecuteMove(t *testing.T) {
	tests := []struct {
		name     string
		from     task.Status
		flags    map[string]string
		args     []string
		wantTo   task.Status
		wantFrom task.Status
		wantCode string
	}{
		{name: "explicit status", from: task.StatusBacklog, args: []string{"x", "in progress"}, wantTo: task.StatusInProgress, wantFrom: task.StatusBacklog},
		{name: "next", from: task.StatusTodo, flags: map[string]string{"next": "true"}, args: []string{"x"}, wantTo: task.StatusInProgress, wantFrom: task.StatusTodo},
		{name: "prev", from: task.StatusDone, flags: map[string]string{"prev": "true"}, args: []string{"x"}, wantTo: task.StatusInProgress, wantFrom: task.StatusDone},
		{name: "already there", from: task.StatusDone, args: []string{"x", "done"}, wantTo: task.StatusDone},
		{name: "next at last column", from: task.StatusDone, flags: map[string]string{"next": "true"}, args: []string{"x"}, wantCode: clierr.BoundaryError},
		{name: "prev at first column", from: task.StatusBacklog, flags: map[string]string{"prev": "true"}, args: []string{"x"}, wantCode: clierr.BoundaryError},
		{name: "unknown status", from: task.StatusBacklog, args: []string{"x", "Archived"}, wantCode: clierr.InvalidStatus},
		{name: "no target", from: task.StatusBacklog, args: []string{"x"}, wantCode: clierr.InvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			s := newTestSession(t)
			tk := createTask(t, s, "Write parser", tt.from)

			// Execute
			got, from, err := executeMove(s, tk.ID[:8], moveFlagsCmd(t, tt.flags), tt.args)

			// Assert
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, clierr.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, got.Status)

			stored, err := s.repo.GetTask(context.Background(), tk.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, stored.Status)
		})
	}
}

func TestExecuteMove_UnknownTask(t *testing.T) {
	s := newTestSession(t)

	_, _, err := executeMove(s, "deadbeef", moveFlagsCmd(t, nil), []string{"x", "done"})

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecuteMove_LogsActivity(t *testing.T) {
	s := newTestSession(t)
	tk := createTask(t, s, "Write parser", task.StatusBacklog)

	_, _, err := executeMove(s, tk.ID, moveFlagsCmd(t, nil), []string{"x", "todo"})
	require.NoError(t, err)

	entries, err := board.ReadLog(s.cfg.Dir(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "move", entries[0].Action)
	assert.Equal(t, "Backlog -> To Do", entries[0].Detail)
}

func TestBoardSprint(t *testing.T) {
	// Setup
	s := newTestSession(t)
	ctx := context.Background()
	sp := &task.Sprint{Goal: "ship it", Start: testNow, End: testNow.Add(72 * time.Hour)}
	require.NoError(t, s.repo.SaveSprint(ctx, sp))

	// Execute: nothing active yet, so every task is shown.
	id, got, err := s.boardSprint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, store.AllSprints, id)
	assert.Nil(t, got)

	// A stale configured sprint falls through too.
	s.cfg.ActiveSprint = "missing"
	id, _, err = s.boardSprint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, store.AllSprints, id)

	require.NoError(t, s.repo.ActivateSprint(ctx, sp.ID))
	id, got, err = s.boardSprint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, sp.ID, id)
	require.NotNil(t, got)
	assert.Equal(t, "ship it", got.Goal)

	// The flag wins over everything.
	id, _, err = s.boardSprint(ctx, "none")
	require.NoError(t, err)
	assert.Equal(t, store.Unassigned, id)
}

func TestResolveSprint_Unknown(t *testing.T) {
	s := newTestSession(t)

	_, _, err := s.resolveSprint(context.Background(), "nope")

	assert.True(t, clierr.HasCode(err, clierr.SprintNotFound))
}

func TestSetSprint(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	sp := &task.Sprint{Goal: "ship it", Start: testNow, End: testNow.Add(time.Hour)}
	require.NoError(t, s.repo.SaveSprint(ctx, sp))
	tk := createTask(t, s, "Write parser", task.StatusBacklog)

	require.NoError(t, setSprint(s, tk.ID, sp.ID))
	in, err := s.repo.FetchTasksBySprint(ctx, sp.ID)
	require.NoError(t, err)
	require.Len(t, in, 1)

	require.NoError(t, setSprint(s, tk.ID, store.Unassigned))
	in, err = s.repo.FetchTasksBySprint(ctx, sp.ID)
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestSprintWindow(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		days      int
		wantStart time.Time
		wantEnd   time.Time
		wantCode  string
	}{
		{name: "default length", days: 14, wantStart: testNow, wantEnd: testNow.Add(14 * 24 * time.Hour)},
		{
			name: "end date is inclusive", end: "2026-04-13", days: 14,
			wantStart: testNow, wantEnd: time.Date(2026, time.April, 14, 0, 0, 0, 0, time.Local),
		},
		{
			name: "relative start", start: "tomorrow", days: 1,
			wantStart: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.Local),
			wantEnd:   time.Date(2026, time.April, 2, 0, 0, 0, 0, time.Local),
		},
		{name: "end before start", start: "2026-04-10", end: "2026-04-01", wantCode: clierr.InvalidInput},
		{name: "bad date", end: "next week", wantCode: clierr.InvalidDate},
		{name: "no length", days: 0, wantCode: clierr.InvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := sprintWindow(testNow, tt.start, tt.end, tt.days)

			if tt.wantCode != "" {
				assert.True(t, clierr.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(start), "start %v", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %v", end)
		})
	}
}

func TestApplyEditFlags(t *testing.T) {
	due := date.New(2026, time.April, 3)
	tests := []struct {
		name        string
		flags       map[string]string
		wantChanged bool
		wantCode    string
		check       func(t *testing.T, tk *task.Task)
	}{
		{name: "nothing", wantChanged: false},
		{
			name: "title and priority", flags: map[string]string{"title": "New", "priority": "high"}, wantChanged: true,
			check: func(t *testing.T, tk *task.Task) {
				assert.Equal(t, "New", tk.Title)
				assert.Equal(t, task.PriorityHigh, tk.Priority)
			},
		},
		{
			name: "tags", flags: map[string]string{"add-tag": "API,ui", "remove-tag": "old"}, wantChanged: true,
			check: func(t *testing.T, tk *task.Task) {
				assert.Equal(t, []string{"api", "ui"}, tk.Tags)
			},
		},
		{
			name: "relative due", flags: map[string]string{"due": "+3d"}, wantChanged: true,
			check: func(t *testing.T, tk *task.Task) {
				require.NotNil(t, tk.Due)
				assert.Equal(t, due.String(), tk.Due.String())
			},
		},
		{
			name: "append body with timestamp", flags: map[string]string{"append-body": "more", "timestamp": "true"}, wantChanged: true,
			check: func(t *testing.T, tk *task.Task) {
				assert.Equal(t, "first\n\n[[2026-03-31]] Tue 12:00\nmore", tk.Description)
			},
		},
		{name: "body and append", flags: map[string]string{"body": "a", "append-body": "b"}, wantCode: clierr.InvalidInput},
		{name: "bad priority", flags: map[string]string{"priority": "urgent"}, wantCode: clierr.InvalidPriority},
		{name: "bad due", flags: map[string]string{"due": "someday"}, wantCode: clierr.InvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			c := &cobra.Command{}
			registerEditFlags(c)
			for k, v := range tt.flags {
				require.NoError(t, c.Flags().Set(k, v))
			}
			tk := task.New("Old", task.StatusBacklog, task.PriorityMedium, testNow)
			tk.Tags = []string{"old"}
			tk.Description = "first"

			// Execute
			changed, err := applyEditFlags(c, tk, testNow)

			// Assert
			if tt.wantCode != "" {
				assert.True(t, clierr.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			if tt.check != nil {
				tt.check(t, tk)
			}
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantCode string
		want     any
	}{
		{name: "board name", key: "board.name", value: "sprint", want: "sprint"},
		{name: "default status alias", key: "defaults.status", value: "wip", want: "In Progress"},
		{name: "drag distance", key: "drag.distance", value: "3", want: 3.0},
		{name: "bad float", key: "drag.distance", value: "far", wantCode: clierr.InvalidInput},
		{name: "negative tolerance", key: "drag.touch_tolerance", value: "-1", wantCode: clierr.InvalidInput},
		{name: "redis without url", key: "store.backend", value: "redis", wantCode: clierr.InvalidInput},
		{name: "unknown backend", key: "store.backend", value: "s3", wantCode: clierr.InvalidInput},
		{name: "bad duration", key: "store.timeout", value: "soon", wantCode: clierr.InvalidInput},
		{name: "read only", key: "version", value: "9", wantCode: clierr.InvalidInput},
		{name: "bad status", key: "defaults.status", value: "Archived", wantCode: clierr.InvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefault("board")
			acc, err := lookupConfigKey(tt.key)
			require.NoError(t, err)

			err = setConfigValue(cfg, acc, tt.key, tt.value)

			if tt.wantCode != "" {
				assert.True(t, clierr.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, acc.get(cfg))
		})
	}
}

func TestConfigKeysHaveAccessors(t *testing.T) {
	accessors := configAccessors()

	assert.Len(t, accessors, len(allConfigKeys()))
	for _, key := range allConfigKeys() {
		_, ok := accessors[key]
		assert.True(t, ok, "missing accessor for %s", key)
	}

	_, err := lookupConfigKey("next_id")
	assert.True(t, clierr.HasCode(err, clierr.InvalidInput))
}

func TestAppendBody(t *testing.T) {
	stamp := testNow

	assert.Equal(t, "new", appendBody("", "new", nil))
	assert.Equal(t, "old\n\nnew", appendBody("old\n\n", "new", nil))
	assert.Equal(t, "[[2026-03-31]] Tue 12:00\nnew", appendBody("", "new", &stamp))
}

func TestTagHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, appendUnique([]string{"a", "b"}, "b", "c", "c"))
	assert.Equal(t, []string{"a"}, removeAll([]string{"a", "b", "c"}, "b", "c", "z"))
}

func TestPartitionJSON_ColumnOrder(t *testing.T) {
	state := board.NewState()
	state.Load([]*task.Task{
		task.New("done one", task.StatusDone, task.PriorityLow, testNow),
	})

	out := partitionJSON(state.PartitionView())

	require.Len(t, out, 4)
	for i, st := range task.AllStatuses() {
		assert.Equal(t, st, out[i]["status"])
	}
	assert.Len(t, out[3]["tasks"], 1)
	assert.Empty(t, out[0]["tasks"])
}
