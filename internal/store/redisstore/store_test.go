package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newStore(t *testing.T) (*Store, *testutil.MockClock, *miniredis.Miniredis) {
	t.Helper()
	mr, client := newRedis(t)
	clock := &testutil.MockClock{NowTime: time.Date(2026, time.March, 30, 9, 0, 0, 0, time.UTC)}
	return New(client, WithClock(clock.Now)), clock, mr
}

func TestStore_CreateFetchAndMove(t *testing.T) {
	// Setup
	s, clock, _ := newStore(t)
	ctx := context.Background()

	a := &task.Task{Title: "a", Status: task.StatusBacklog, Priority: task.PriorityLow}
	require.NoError(t, s.CreateTask(ctx, a))
	clock.Advance(time.Minute)
	b := &task.Task{Title: "b", Status: task.StatusTodo, Priority: task.PriorityHigh, SprintID: "s1"}
	require.NoError(t, s.CreateTask(ctx, b))

	// Execute
	unassigned, err := s.FetchTasksBySprint(ctx, store.Unassigned)
	require.NoError(t, err)
	inSprint, err := s.FetchTasksBySprint(ctx, "s1")
	require.NoError(t, err)
	all, err := s.FetchTasksBySprint(ctx, store.AllSprints)
	require.NoError(t, err)

	// Assert
	require.Len(t, unassigned, 1)
	assert.Equal(t, a.ID, unassigned[0].ID)
	require.Len(t, inSprint, 1)
	assert.Equal(t, b.ID, inSprint[0].ID)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID, "ordered by creation")

	clock.Advance(time.Hour)
	require.NoError(t, s.UpdateTaskStatus(ctx, a.ID, task.StatusDone))
	got, err := s.GetTask(ctx, a.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.NotNil(t, got.Completed)
}

func TestStore_UpdateTaskStatus_Errors(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	tk := &task.Task{Title: "a", Status: task.StatusBacklog}
	require.NoError(t, s.CreateTask(ctx, tk))

	err := s.UpdateTaskStatus(ctx, tk.ID, task.Status("Blocked"))
	assert.True(t, clierr.HasCode(err, clierr.InvalidStatus))

	err = s.UpdateTaskStatus(ctx, "missing", task.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SaveTaskMovesSprintMembership(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	tk := &task.Task{Title: "a", Status: task.StatusBacklog}
	require.NoError(t, s.CreateTask(ctx, tk))

	tk.SprintID = "s2"
	require.NoError(t, s.SaveTask(ctx, tk))

	unassigned, err := s.FetchTasksBySprint(ctx, store.Unassigned)
	require.NoError(t, err)
	assert.Empty(t, unassigned)
	moved, err := s.FetchTasksBySprint(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, tk.ID, moved[0].ID)
}

func TestStore_DeleteAndNested(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	tk := &task.Task{Title: "a", Status: task.StatusBacklog}
	require.NoError(t, s.CreateTask(ctx, tk))

	c := &task.Comment{Content: "looks good"}
	require.NoError(t, s.AddComment(ctx, tk.ID[:8], c))
	sub := &task.Subtask{Title: "step"}
	require.NoError(t, s.AddSubtask(ctx, tk.ID, sub))
	require.NoError(t, s.SetSubtaskDone(ctx, tk.ID, sub.ID, true))

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, tk.ID, got.Comments[0].TaskID)
	require.Len(t, got.Subtasks, 1)
	assert.True(t, got.Subtasks[0].Done)

	require.NoError(t, s.DeleteComment(ctx, tk.ID, c.ID))
	assert.True(t, clierr.HasCode(s.DeleteComment(ctx, tk.ID, c.ID), clierr.CommentNotFound))

	require.NoError(t, s.DeleteTask(ctx, tk.ID))
	_, err = s.GetTask(ctx, tk.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Sprints(t *testing.T) {
	s, clock, _ := newStore(t)
	ctx := context.Background()
	now := clock.Now()

	one := &task.Sprint{Goal: "one", Start: now, End: now.Add(7 * 24 * time.Hour), Active: true}
	two := &task.Sprint{Goal: "two", Start: now.Add(time.Hour), End: now.Add(8 * 24 * time.Hour)}
	require.NoError(t, s.SaveSprint(ctx, one))
	require.NoError(t, s.SaveSprint(ctx, two))

	active, err := s.ActiveSprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, one.ID, active.ID)

	require.NoError(t, s.ActivateSprint(ctx, two.ID[:8]))
	sprints, err := s.ListSprints(ctx)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.False(t, sprints[0].Active)
	assert.True(t, sprints[1].Active)

	_, err = s.GetSprint(ctx, "zzz")
	assert.True(t, clierr.HasCode(err, clierr.SprintNotFound))
}

func TestStore_Standups(t *testing.T) {
	s, clock, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddStandup(ctx, &task.Standup{Yesterday: "a", Today: "b"}))
	clock.Advance(time.Hour)
	require.NoError(t, s.AddStandup(ctx, &task.Standup{Yesterday: "c", Today: "d"}))

	list, err := s.ListStandups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Yesterday)
}

func TestStore_UnavailableWhenRedisDown(t *testing.T) {
	s, _, mr := newStore(t)
	mr.Close()

	_, err := s.ListTasks(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
