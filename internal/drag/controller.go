// Package drag tracks a single pointer-driven drag of a task card between
// status columns and turns a completed gesture into a transition request.
package drag

import (
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// State is the phase of a drag session.
type State int

// Session states.
const (
	Idle State = iota
	Armed
	Tracking
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Tracking:
		return "tracking"
	case Committing:
		return "committing"
	default:
		return "unknown"
	}
}

type event int

const (
	evDown event = iota
	evActivate
	evAbort
	evMove
	evRelease
	evCancel
	evSettle
)

// transitions is the complete state table. Events missing for a state are
// rejected.
var transitions = map[State]map[event]State{
	Idle: {
		evDown: Armed,
	},
	Armed: {
		evActivate: Tracking,
		evAbort:    Idle,
		evRelease:  Idle,
		evCancel:   Idle,
	},
	Tracking: {
		evMove:    Tracking,
		evRelease: Committing,
		evCancel:  Idle,
	},
	Committing: {
		evSettle: Idle,
	},
}

// PointerKind distinguishes activation rules.
type PointerKind int

// Pointer kinds.
const (
	Mouse PointerKind = iota
	Touch
)

// Pointer identifies the input device driving a session.
type Pointer struct {
	ID   int
	Kind PointerKind
}

// Config holds the activation thresholds.
type Config struct {
	// Distance a mouse must travel from the press point before dragging.
	Distance float64
	// Delay a touch must be held before dragging.
	Delay time.Duration
	// Tolerance is how far a touch may wander during Delay.
	Tolerance float64
}

// DefaultConfig returns the default activation thresholds.
func DefaultConfig() Config {
	return Config{
		Distance:  1,
		Delay:     250 * time.Millisecond, //nolint:mnd // default touch delay
		Tolerance: 5,                      //nolint:mnd // default touch tolerance
	}
}

// OutcomeKind describes how a session ended.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeNone OutcomeKind = iota
	OutcomeClick
	OutcomeDrop
)

// Outcome is returned by Up. TaskID is set for clicks and drops; Request
// only for drops.
type Outcome struct {
	Kind    OutcomeKind
	TaskID  string
	Request board.Request
}

// Controller is the drag session state machine. It never mutates the board;
// drops are reported as requests. A Controller is not safe for concurrent
// use and is meant to be driven from a single UI loop.
type Controller struct {
	cfg Config

	// OnDrop, if set, receives every drop request.
	OnDrop func(board.Request)

	state   State
	pointer Pointer
	taskID  string
	from    task.Status
	origin  Point
	pos     Point
	downAt  time.Time
	hovered task.Status
	hover   bool
	targets []Target
}

// New returns an idle controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) fire(ev event) bool {
	next, ok := transitions[c.state][ev]
	if !ok {
		return false
	}
	c.state = next
	return true
}

// SetTargets replaces the drop zones used for collision detection.
func (c *Controller) SetTargets(targets []Target) {
	c.targets = append([]Target(nil), targets...)
	if c.state == Tracking {
		c.updateHover()
	}
}

// Down starts a session for taskID sitting in column from. It returns false
// when a session is already active; a second pointer never takes over.
func (c *Controller) Down(p Pointer, taskID string, from task.Status, at Point, now time.Time) bool {
	if !c.fire(evDown) {
		return false
	}
	c.pointer = p
	c.taskID = taskID
	c.from = from
	c.origin = at
	c.pos = at
	c.downAt = now
	c.hover = false
	c.hovered = ""
	return true
}

// Move reports a pointer position. Moves from other pointers are ignored.
func (c *Controller) Move(pointerID int, at Point, now time.Time) {
	if c.state == Idle || pointerID != c.pointer.ID {
		return
	}
	c.pos = at
	switch c.state {
	case Armed:
		c.checkActivation(now)
	case Tracking:
		if c.fire(evMove) {
			c.updateHover()
		}
	}
}

// Tick advances time without movement so a held touch can activate.
func (c *Controller) Tick(now time.Time) {
	if c.state == Armed {
		c.checkActivation(now)
	}
}

func (c *Controller) checkActivation(now time.Time) {
	moved := c.origin.Dist(c.pos)
	switch c.pointer.Kind {
	case Touch:
		if moved > c.cfg.Tolerance {
			c.fire(evAbort)
			c.reset()
			return
		}
		if now.Sub(c.downAt) >= c.cfg.Delay {
			c.activate()
		}
	default:
		if moved >= c.cfg.Distance {
			c.activate()
		}
	}
}

func (c *Controller) activate() {
	if c.fire(evActivate) {
		c.updateHover()
	}
}

func (c *Controller) updateHover() {
	c.hovered, c.hover = ClosestCenter(c.pos, c.targets)
}

// Up ends the session. Releasing while Armed is a click; releasing while
// Tracking over a different column is a drop. Releases from other pointers
// are ignored.
func (c *Controller) Up(pointerID int, at Point, now time.Time) Outcome {
	if c.state == Idle || pointerID != c.pointer.ID {
		return Outcome{}
	}
	c.pos = at
	if c.state == Armed {
		c.checkActivation(now)
	}

	switch c.state {
	case Armed:
		id := c.taskID
		c.fire(evRelease)
		c.reset()
		return Outcome{Kind: OutcomeClick, TaskID: id}
	case Tracking:
		c.updateHover()
		c.fire(evRelease)
		out := c.commit()
		c.fire(evSettle)
		c.reset()
		return out
	default:
		return Outcome{}
	}
}

// commit builds the drop outcome while Committing.
func (c *Controller) commit() Outcome {
	if !c.hover || c.hovered == c.from {
		return Outcome{}
	}
	req := board.Request{TaskID: c.taskID, From: c.from, To: c.hovered}
	if c.OnDrop != nil {
		c.OnDrop(req)
	}
	return Outcome{Kind: OutcomeDrop, TaskID: c.taskID, Request: req}
}

// Cancel aborts an Armed or Tracking session without emitting anything.
func (c *Controller) Cancel() {
	if c.fire(evCancel) {
		c.reset()
	}
}

func (c *Controller) reset() {
	c.taskID = ""
	c.from = ""
	c.hover = false
	c.hovered = ""
	c.pointer = Pointer{}
}

// State returns the current phase.
func (c *Controller) State() State { return c.state }

// Active reports whether a session is in progress.
func (c *Controller) Active() bool { return c.state != Idle }

// Dragging reports whether a card is being moved.
func (c *Controller) Dragging() bool { return c.state == Tracking }

// DraggedID returns the task of the current session, or "".
func (c *Controller) DraggedID() string { return c.taskID }

// From returns the column the dragged task started in.
func (c *Controller) From() task.Status { return c.from }

// Hovered returns the column under the pointer while Tracking.
func (c *Controller) Hovered() (task.Status, bool) { return c.hovered, c.hover }

// Origin returns where the session started.
func (c *Controller) Origin() Point { return c.origin }

// Position returns the last known pointer position.
func (c *Controller) Position() Point { return c.pos }

// Pointer returns the pointer driving the session.
func (c *Controller) Pointer() Pointer { return c.pointer }
