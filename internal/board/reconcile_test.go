package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/testutil"
)

var errNetwork = errors.New("connection refused")

func setupReconciler(t *testing.T) (*State, *testutil.MockStore, *Reconciler) {
	t.Helper()
	tasks := []*task.Task{
		testutil.NewTask("a", "A", task.StatusBacklog),
		testutil.NewTask("b", "B", task.StatusTodo),
		testutil.NewTask("c", "C", task.StatusBacklog),
	}
	store := testutil.NewMockStore(tasks...)
	s := NewState()
	s.Load(tasks)
	return s, store, NewReconciler(s, store, nil)
}

func TestCommit_SuccessKeepsOptimisticState(t *testing.T) {
	// Setup
	s, store, r := setupReconciler(t)

	// Execute
	err := r.Commit(context.Background(), Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusInProgress})

	// Assert
	require.NoError(t, err)
	p := s.PartitionView()
	assert.Equal(t, []string{"c"}, p.IDs(task.StatusBacklog))
	assert.Equal(t, []string{"a"}, p.IDs(task.StatusInProgress))
	assert.Equal(t, []testutil.UpdateCall{{TaskID: "a", Status: task.StatusInProgress}}, store.UpdateCalls())
	assert.Equal(t, task.StatusInProgress, store.StatusOf("a"))
}

func TestCommit_FailureRestoresPreCommitState(t *testing.T) {
	// Setup
	s, store, r := setupReconciler(t)
	store.UpdateErr = errNetwork
	before := s.PartitionView()

	// Execute
	err := r.Commit(context.Background(), Request{TaskID: "b", From: task.StatusTodo, To: task.StatusDone})

	// Assert
	require.Error(t, err)
	assert.True(t, clierr.HasCode(err, clierr.StoreError))
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, before, s.PartitionView())

	var ce *clierr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, false, ce.Details["stale"])
}

func TestCommit_InvalidTargetNeverReachesStore(t *testing.T) {
	s, store, r := setupReconciler(t)
	before := s.PartitionView()

	err := r.Commit(context.Background(), Request{TaskID: "a", From: task.StatusBacklog, To: task.Status("XYZ")})

	require.Error(t, err)
	assert.True(t, clierr.HasCode(err, clierr.InvalidTransition))
	assert.Equal(t, before, s.PartitionView())
	assert.Empty(t, store.UpdateCalls())
}

func TestCommit_SameStatusIsNoOp(t *testing.T) {
	s, store, r := setupReconciler(t)
	rev := s.Revision()

	err := r.Commit(context.Background(), Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusBacklog})

	require.NoError(t, err)
	assert.Equal(t, rev, s.Revision())
	assert.Empty(t, store.UpdateCalls())
}

func TestBegin_TaskNotInSourceColumn(t *testing.T) {
	s, store, r := setupReconciler(t)
	before := s.PartitionView()

	p, err := r.Begin(Request{TaskID: "b", From: task.StatusBacklog, To: task.StatusDone})

	assert.Nil(t, p)
	assert.True(t, clierr.HasCode(err, clierr.StatusConflict))
	assert.Equal(t, before, s.PartitionView())
	assert.Empty(t, store.UpdateCalls())
}

func TestResolve_OtherTaskMovedMeanwhile(t *testing.T) {
	// Setup: a fails while c has been committed successfully in between.
	s, _, r := setupReconciler(t)
	pa, err := r.Begin(Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusDone})
	require.NoError(t, err)
	pc, err := r.Begin(Request{TaskID: "c", From: task.StatusBacklog, To: task.StatusTodo})
	require.NoError(t, err)
	require.NoError(t, r.Resolve(pc, nil))

	// Execute
	err = r.Resolve(pa, errNetwork)

	// Assert: a is back at its original slot, c keeps its move.
	require.Error(t, err)
	p := s.PartitionView()
	assert.Equal(t, []string{"a"}, p.IDs(task.StatusBacklog))
	assert.Equal(t, []string{"b", "c"}, p.IDs(task.StatusTodo))
	assert.Empty(t, p.IDs(task.StatusDone))
}

func TestResolve_OriginalPositionPreserved(t *testing.T) {
	s, _, r := setupReconciler(t)
	pa, err := r.Begin(Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusDone})
	require.NoError(t, err)
	s.ApplyTransition("b", task.StatusTodo, task.StatusInProgress)

	require.Error(t, r.Resolve(pa, errNetwork))

	assert.Equal(t, []string{"a", "c"}, s.PartitionView().IDs(task.StatusBacklog))
}

func TestResolve_StaleFailureIsDiscarded(t *testing.T) {
	// Setup: a is dragged twice before the first call completes.
	s, _, r := setupReconciler(t)
	first, err := r.Begin(Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusTodo})
	require.NoError(t, err)
	second, err := r.Begin(Request{TaskID: "a", From: task.StatusTodo, To: task.StatusDone})
	require.NoError(t, err)

	// Execute: the older call fails after the newer one was applied.
	err = r.Resolve(first, errNetwork)

	// Assert: newer state is kept.
	require.Error(t, err)
	var ce *clierr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, clierr.StoreError, ce.Code)
	assert.Equal(t, true, ce.Details["stale"])

	got, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, task.StatusDone, got.Status)

	require.NoError(t, r.Resolve(second, nil))
}

func TestResolve_ReloadMakesFailureStale(t *testing.T) {
	s, store, r := setupReconciler(t)
	p, err := r.Begin(Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusDone})
	require.NoError(t, err)

	fresh, err := store.FetchTasksBySprint(context.Background(), "")
	require.NoError(t, err)
	s.Load(fresh)

	err = r.Resolve(p, errNetwork)
	require.Error(t, err)
	got, _ := s.Lookup("a")
	assert.Equal(t, task.StatusBacklog, got.Status)
}

func TestResolve_NilPending(t *testing.T) {
	_, _, r := setupReconciler(t)
	assert.NoError(t, r.Resolve(nil, errNetwork))
	assert.NoError(t, r.Send(context.Background(), nil))
}

func TestSend_DoesNotTouchBoard(t *testing.T) {
	s, store, r := setupReconciler(t)
	store.UpdateErr = errNetwork
	p, err := r.Begin(Request{TaskID: "a", From: task.StatusBacklog, To: task.StatusDone})
	require.NoError(t, err)
	rev := s.Revision()

	sendErr := r.Send(context.Background(), p)

	assert.ErrorIs(t, sendErr, errNetwork)
	assert.Equal(t, rev, s.Revision())
}

func TestStoreError_Unwraps(t *testing.T) {
	err := StoreError("update status", "3f2b1c9e-aaaa", errNetwork)
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, clierr.StoreError, err.Code)
	assert.Contains(t, err.Error(), "3f2b1c9e")
}
