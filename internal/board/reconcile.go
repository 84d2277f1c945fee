package board

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// Updater persists a task's new status.
type Updater interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error
}

// Request asks to move TaskID from one column to another.
type Request struct {
	TaskID string
	From   task.Status
	To     task.Status
}

// Pending is an optimistic transition that has been applied to the board
// but not yet confirmed by the store.
type Pending struct {
	Request

	snapshot Snapshot
	exact    bool // no other mutation slipped in between snapshot and apply
	applied  applied
}

// Reconciler applies transitions optimistically and reconciles the board
// with the store's outcome.
type Reconciler struct {
	state   *State
	updater Updater
	log     logrus.FieldLogger

	mu sync.Mutex
}

// NewReconciler returns a Reconciler over state that persists through
// updater. A nil logger discards output.
func NewReconciler(state *State, updater Updater, log logrus.FieldLogger) *Reconciler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Reconciler{state: state, updater: updater, log: log}
}

// Begin validates req, snapshots the board and applies the transition. A
// request whose columns are equal is a no-op and returns (nil, nil). An
// illegal request returns INVALID_TRANSITION and leaves the board alone.
//
// A task that is no longer in req.From returns STATUS_CONFLICT and no store
// call is made. State.ApplyTransition treats that case as a silent no-op;
// Begin reports it so a drag that raced a reload does not write a status the
// user never saw.
func (r *Reconciler) Begin(req Request) (*Pending, error) {
	if req.From == req.To {
		return nil, nil
	}
	if err := task.ValidateTransition(req.From, req.To); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.state.Snapshot()
	a, ok := r.state.apply(req.TaskID, req.From, req.To)
	if !ok {
		return nil, clierr.Newf(clierr.StatusConflict, "task %s is not in %q", task.ShortID(req.TaskID), req.From).
			WithDetails(map[string]any{"id": req.TaskID, "expected": string(req.From)})
	}

	r.log.WithFields(logrus.Fields{
		"task": req.TaskID,
		"from": req.From,
		"to":   req.To,
	}).Debug("applied optimistic transition")

	return &Pending{
		Request:  req,
		snapshot: snap,
		exact:    a.revision == snap.revision+1,
		applied:  a,
	}, nil
}

// Send performs the store call for p. It does not touch the board and may
// run off the UI loop.
func (r *Reconciler) Send(ctx context.Context, p *Pending) error {
	if p == nil {
		return nil
	}
	return r.updater.UpdateTaskStatus(ctx, p.TaskID, p.To)
}

// Resolve reconciles the board with the outcome of Send. On success the
// optimistic state stays. On failure the transition is rolled back and a
// STORE_ERROR is returned:
//   - if nothing else touched the board, the snapshot is restored exactly;
//   - if only other tasks moved, the task alone returns to its old slot;
//   - if the task itself moved again, the completion is stale and the board
//     is left alone (details.stale is true).
func (r *Reconciler) Resolve(p *Pending, err error) error {
	if p == nil {
		return nil
	}
	fields := logrus.Fields{"task": p.TaskID, "from": p.From, "to": p.To}
	if err == nil {
		r.log.WithFields(fields).Debug("transition committed")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stale := false
	switch {
	case p.exact && r.state.Revision() == p.applied.revision:
		r.state.Restore(p.snapshot)
		r.log.WithError(err).WithFields(fields).Warn("transition failed, board restored")
	case r.state.Version(p.TaskID) == p.applied.version:
		r.state.moveBack(p.TaskID, p.To, p.From, p.applied.index)
		r.log.WithError(err).WithFields(fields).Warn("transition failed, task moved back")
	default:
		stale = true
		r.log.WithError(err).WithFields(fields).Info("discarding stale transition failure")
	}

	return StoreError("update status", p.TaskID, err).
		WithDetails(map[string]any{
			"op":    "update status",
			"id":    p.TaskID,
			"from":  string(p.From),
			"to":    string(p.To),
			"stale": stale,
		})
}

// Commit runs Begin, Send and Resolve in sequence.
func (r *Reconciler) Commit(ctx context.Context, req Request) error {
	p, err := r.Begin(req)
	if err != nil || p == nil {
		return err
	}
	return r.Resolve(p, r.Send(ctx, p))
}

// StoreError wraps a failed persistence call. errors.Is reaches err.
func StoreError(op, id string, err error) *clierr.Error {
	return clierr.Wrap(clierr.StoreError, err, "%s %s", op, task.ShortID(id)).
		WithDetails(map[string]any{"op": op, "id": id})
}
