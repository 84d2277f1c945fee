package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

func loadedState(t *testing.T) *State {
	t.Helper()
	s := NewState()
	rejected := s.Load([]*task.Task{
		testutil.NewTask("a", "A", task.StatusBacklog),
		testutil.NewTask("b", "B", task.StatusTodo),
		testutil.NewTask("c", "C", task.StatusBacklog),
	})
	require.Equal(t, 0, rejected)
	return s
}

func TestState_LoadPartitionsInFetchOrder(t *testing.T) {
	s := loadedState(t)
	p := s.PartitionView()

	assert.Equal(t, []string{"a", "c"}, p.IDs(task.StatusBacklog))
	assert.Equal(t, []string{"b"}, p.IDs(task.StatusTodo))
	assert.Empty(t, p.IDs(task.StatusInProgress))
	assert.Empty(t, p.IDs(task.StatusDone))
	assert.Len(t, p, 4)
	assert.Equal(t, 3, s.Len())
}

func TestState_LoadRejectsUnknownStatusAndDuplicates(t *testing.T) {
	s := NewState()
	rejected := s.Load([]*task.Task{
		testutil.NewTask("a", "A", task.StatusBacklog),
		testutil.NewTask("x", "X", task.Status("Archived")),
		testutil.NewTask("a", "A again", task.StatusDone),
	})

	assert.Equal(t, 2, rejected)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Lookup("x")
	assert.False(t, ok)
}

func TestState_ApplyTransitionAppendsToTarget(t *testing.T) {
	s := loadedState(t)

	ok := s.ApplyTransition("a", task.StatusBacklog, task.StatusTodo)
	require.True(t, ok)

	p := s.PartitionView()
	assert.Equal(t, []string{"c"}, p.IDs(task.StatusBacklog))
	assert.Equal(t, []string{"b", "a"}, p.IDs(task.StatusTodo))

	got, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, task.StatusTodo, got.Status)
}

func TestState_ApplyTransitionNoOps(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		from, to task.Status
	}{
		{"not in from", "b", task.StatusBacklog, task.StatusDone},
		{"unknown id", "zzz", task.StatusBacklog, task.StatusDone},
		{"same column", "a", task.StatusBacklog, task.StatusBacklog},
		{"invalid target", "a", task.StatusBacklog, task.Status("XYZ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedState(t)
			before := s.PartitionView()
			var notified int
			cancel := s.Subscribe(func(Change) { notified++ })
			defer cancel()

			assert.False(t, s.ApplyTransition(tt.id, tt.from, tt.to))
			assert.Equal(t, before, s.PartitionView())
			assert.Zero(t, notified)
		})
	}
}

func TestState_SnapshotRestoreRoundTrip(t *testing.T) {
	s := loadedState(t)
	before := s.PartitionView()

	s.Restore(s.Snapshot())

	assert.Equal(t, before, s.PartitionView())
}

func TestState_RestoreUndoesTransitions(t *testing.T) {
	s := loadedState(t)
	snap := s.Snapshot()

	s.ApplyTransition("a", task.StatusBacklog, task.StatusDone)
	s.ApplyTransition("b", task.StatusTodo, task.StatusDone)
	s.Restore(snap)

	p := s.PartitionView()
	assert.Equal(t, []string{"a", "c"}, p.IDs(task.StatusBacklog))
	assert.Equal(t, []string{"b"}, p.IDs(task.StatusTodo))
	assert.Empty(t, p.IDs(task.StatusDone))
}

func TestState_SnapshotIsImmutable(t *testing.T) {
	s := loadedState(t)
	snap := s.Snapshot()

	s.ApplyTransition("a", task.StatusBacklog, task.StatusDone)
	s.Restore(snap)
	s.ApplyTransition("c", task.StatusBacklog, task.StatusDone)
	s.Restore(snap)

	assert.Equal(t, []string{"a", "c"}, s.PartitionView().IDs(task.StatusBacklog))
}

func TestState_PartitionViewIsACopy(t *testing.T) {
	s := loadedState(t)
	p := s.PartitionView()
	p[task.StatusBacklog][0].Title = "mutated"
	p[task.StatusBacklog] = nil

	got, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	assert.Len(t, s.PartitionView()[task.StatusBacklog], 2)
}

func TestState_EveryTaskInExactlyOneColumn(t *testing.T) {
	s := loadedState(t)
	moves := []Request{
		{"a", task.StatusBacklog, task.StatusInProgress},
		{"b", task.StatusTodo, task.StatusDone},
		{"a", task.StatusInProgress, task.StatusDone},
		{"c", task.StatusBacklog, task.StatusTodo},
		{"b", task.StatusDone, task.StatusBacklog},
	}
	for _, m := range moves {
		s.ApplyTransition(m.TaskID, m.From, m.To)

		seen := map[string]int{}
		for status, col := range s.PartitionView() {
			for _, tk := range col {
				seen[tk.ID]++
				assert.Equal(t, status, tk.Status)
			}
		}
		assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, seen)
	}
}

func TestState_SubscribeNotifies(t *testing.T) {
	s := NewState()
	var kinds []ChangeKind
	cancel := s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	s.Load([]*task.Task{testutil.NewTask("a", "A", task.StatusBacklog)})
	snap := s.Snapshot()
	s.ApplyTransition("a", task.StatusBacklog, task.StatusTodo)
	s.Restore(snap)

	assert.Equal(t, []ChangeKind{ChangeLoad, ChangeTransition, ChangeRestore}, kinds)

	cancel()
	cancel()
	s.ApplyTransition("a", task.StatusBacklog, task.StatusTodo)
	assert.Len(t, kinds, 3)
}

func TestState_Versions(t *testing.T) {
	s := loadedState(t)
	va, vb := s.Version("a"), s.Version("b")
	rev := s.Revision()

	s.ApplyTransition("a", task.StatusBacklog, task.StatusDone)

	assert.Equal(t, va+1, s.Version("a"))
	assert.Equal(t, vb, s.Version("b"))
	assert.Equal(t, rev+1, s.Revision())
	assert.Zero(t, s.Version("unknown"))
}
