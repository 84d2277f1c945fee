package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

func TestCache_MissThenHit(t *testing.T) {
	// Setup
	mr, client := newRedis(t)
	ctx := context.Background()
	base := testutil.NewMockStore(testutil.NewTask("t1", "Write code", task.StatusTodo))
	cache := NewCache(base, client, time.Minute, nil)

	// Execute
	first, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	second, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)

	// Assert
	assert.Len(t, base.FetchCalls(), 1, "second fetch is served from redis")
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Title, second[0].Title)

	ttl := mr.TTL(cache.key(""))
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestCache_UpdateEvicts(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	base := testutil.NewMockStore(testutil.NewTask("t1", "a", task.StatusTodo))
	cache := NewCache(base, client, time.Minute, nil)

	_, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.key("")))

	require.NoError(t, cache.UpdateTaskStatus(ctx, "t1", task.StatusDone))
	assert.False(t, mr.Exists(cache.key("")))

	tasks, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.StatusDone, tasks[0].Status)
	assert.Len(t, base.FetchCalls(), 2)
}

func TestCache_FailedUpdateKeepsEntry(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	base := testutil.NewMockStore(testutil.NewTask("t1", "a", task.StatusTodo))
	base.UpdateErr = errors.New("boom")
	cache := NewCache(base, client, time.Minute, nil)

	_, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)

	err = cache.UpdateTaskStatus(ctx, "t1", task.StatusDone)
	require.Error(t, err)
	assert.True(t, mr.Exists(cache.key("")))
}

func TestCache_DegradesWhenRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	base := testutil.NewMockStore(testutil.NewTask("t1", "a", task.StatusTodo))
	cache := NewCache(base, client, time.Minute, nil)
	mr.Close()

	tasks, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, cache.UpdateTaskStatus(ctx, "t1", task.StatusDone))
	assert.Equal(t, task.StatusDone, base.StatusOf("t1"))
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	base := testutil.NewMockStore(testutil.NewTask("t1", "a", task.StatusTodo))
	cache := NewCache(base, client, 0, nil)

	_, err := cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	_, err = cache.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)

	assert.Len(t, base.FetchCalls(), 2)
	assert.False(t, mr.Exists(cache.key("")))
}

func TestCachedRepository_EvictsOnCreate(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	repo := New(client, WithPrefix("backing"))
	cached := WrapRepository(repo, client, time.Minute, nil)

	_, err := cached.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(cached.cache.key("")))

	require.NoError(t, cached.CreateTask(ctx, &task.Task{Title: "new", Status: task.StatusBacklog}))
	assert.False(t, mr.Exists(cached.cache.key("")))

	tasks, err := cached.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestCachedRepository_EvictsOnChildWrites(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, r *CachedRepository, tk *task.Task) error
		check func(t *testing.T, tk *task.Task)
	}{
		{
			name: "delete subtask",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.DeleteSubtask(ctx, tk.ID, tk.Subtasks[0].ID)
			},
			check: func(t *testing.T, tk *task.Task) { assert.Empty(t, tk.Subtasks) },
		},
		{
			name: "check subtask",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.SetSubtaskDone(ctx, tk.ID, tk.Subtasks[0].ID, true)
			},
			check: func(t *testing.T, tk *task.Task) {
				require.Len(t, tk.Subtasks, 1)
				assert.True(t, tk.Subtasks[0].Done)
			},
		},
		{
			name: "add subtask",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.AddSubtask(ctx, tk.ID, &task.Subtask{Title: "second"})
			},
			check: func(t *testing.T, tk *task.Task) { assert.Len(t, tk.Subtasks, 2) },
		},
		{
			name: "delete comment",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.DeleteComment(ctx, tk.ID, tk.Comments[0].ID)
			},
			check: func(t *testing.T, tk *task.Task) { assert.Empty(t, tk.Comments) },
		},
		{
			name: "edit comment",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.UpdateComment(ctx, tk.ID, &task.Comment{ID: tk.Comments[0].ID, Content: "edited"})
			},
			check: func(t *testing.T, tk *task.Task) {
				require.Len(t, tk.Comments, 1)
				assert.Equal(t, "edited", tk.Comments[0].Content)
			},
		},
		{
			name: "add comment",
			write: func(ctx context.Context, r *CachedRepository, tk *task.Task) error {
				return r.AddComment(ctx, tk.ID, &task.Comment{Content: "another"})
			},
			check: func(t *testing.T, tk *task.Task) { assert.Len(t, tk.Comments, 2) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mr, client := newRedis(t)
			ctx := context.Background()
			cached := WrapRepository(New(client, WithPrefix("backing")), client, time.Minute, nil)
			tk := &task.Task{Title: "Write parser", Status: task.StatusTodo}
			require.NoError(t, cached.CreateTask(ctx, tk))
			require.NoError(t, cached.AddSubtask(ctx, tk.ID, &task.Subtask{Title: "first"}))
			require.NoError(t, cached.AddComment(ctx, tk.ID, &task.Comment{Content: "note"}))

			before, err := cached.FetchTasksBySprint(ctx, "")
			require.NoError(t, err)
			require.Len(t, before, 1)
			require.True(t, mr.Exists(cached.cache.key("")))

			// Execute
			require.NoError(t, tt.write(ctx, cached, before[0]))

			// Assert
			assert.False(t, mr.Exists(cached.cache.key("")))
			after, err := cached.FetchTasksBySprint(ctx, "")
			require.NoError(t, err)
			require.Len(t, after, 1)
			tt.check(t, after[0])
		})
	}
}

func TestCachedRepository_FailedChildWriteKeepsEntry(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	cached := WrapRepository(New(client, WithPrefix("backing")), client, time.Minute, nil)
	require.NoError(t, cached.CreateTask(ctx, &task.Task{Title: "Write parser", Status: task.StatusTodo}))
	tasks, err := cached.FetchTasksBySprint(ctx, "")
	require.NoError(t, err)

	err = cached.DeleteSubtask(ctx, tasks[0].ID, "missing")

	assert.Error(t, err)
	assert.True(t, mr.Exists(cached.cache.key("")))
}
