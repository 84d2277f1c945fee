package drag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var t0 = time.Date(2026, time.March, 30, 9, 0, 0, 0, time.UTC)

var mouse = Pointer{ID: 1, Kind: Mouse}

// Four columns, 10 wide, 20 tall, starting at x=0.
func targets() []Target {
	return ColumnTargets(task.AllStatuses(), 0, 0, 10, 20)
}

func newController() *Controller {
	c := New(Config{Distance: 3, Delay: 250 * time.Millisecond, Tolerance: 5})
	c.SetTargets(targets())
	return c
}

func TestController_MouseDragAcrossColumns(t *testing.T) {
	// Setup
	c := newController()
	var dropped []board.Request
	c.OnDrop = func(r board.Request) { dropped = append(dropped, r) }

	// Execute
	require.True(t, c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0))
	c.Move(1, Point{25, 5}, t0)
	assert.Equal(t, Tracking, c.State())
	c.Move(1, Point{35, 5}, t0)
	out := c.Up(1, Point{35, 5}, t0)

	// Assert
	want := board.Request{TaskID: "t1", From: task.StatusTodo, To: task.StatusDone}
	assert.Equal(t, OutcomeDrop, out.Kind)
	assert.Equal(t, want, out.Request)
	assert.Equal(t, []board.Request{want}, dropped)
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.DraggedID())
}

func TestController_MovementBelowThresholdIsClick(t *testing.T) {
	c := newController()
	c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0)
	c.Move(1, Point{17, 5}, t0)

	assert.Equal(t, Armed, c.State())
	out := c.Up(1, Point{17, 5}, t0)

	assert.Equal(t, OutcomeClick, out.Kind)
	assert.Equal(t, "t1", out.TaskID)
	assert.Equal(t, Idle, c.State())
}

func TestController_ActivationAtExactDistance(t *testing.T) {
	c := newController()
	c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0)
	c.Move(1, Point{15, 8}, t0)
	assert.Equal(t, Tracking, c.State())
}

func TestController_DropOnSameColumnIsNoOp(t *testing.T) {
	c := newController()
	called := false
	c.OnDrop = func(board.Request) { called = true }

	c.Down(mouse, "t1", task.StatusTodo, Point{12, 5}, t0)
	c.Move(1, Point{18, 15}, t0)
	hovered, ok := c.Hovered()
	require.True(t, ok)
	assert.Equal(t, task.StatusTodo, hovered)

	out := c.Up(1, Point{18, 15}, t0)

	assert.Equal(t, OutcomeNone, out.Kind)
	assert.False(t, called)
	assert.Equal(t, Idle, c.State())
}

func TestController_NoTargetsNoHover(t *testing.T) {
	c := New(Config{Distance: 1})
	c.Down(mouse, "t1", task.StatusTodo, Point{0, 0}, t0)
	c.Move(1, Point{50, 0}, t0)

	_, ok := c.Hovered()
	assert.False(t, ok)
	assert.Equal(t, OutcomeNone, c.Up(1, Point{50, 0}, t0).Kind)
}

func TestController_ClosestCenterWins(t *testing.T) {
	c := newController()
	c.Down(mouse, "t1", task.StatusBacklog, Point{5, 10}, t0)
	c.Move(1, Point{24, 10}, t0) // In Progress center is 25, To Do center is 15.

	hovered, ok := c.Hovered()
	require.True(t, ok)
	assert.Equal(t, task.StatusInProgress, hovered)
}

func TestController_CancelDiscardsSession(t *testing.T) {
	c := newController()
	called := false
	c.OnDrop = func(board.Request) { called = true }

	c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0)
	c.Move(1, Point{35, 5}, t0)
	c.Cancel()

	assert.Equal(t, Idle, c.State())
	assert.Equal(t, OutcomeNone, c.Up(1, Point{35, 5}, t0).Kind)
	assert.False(t, called)
}

func TestController_SecondPointerIgnored(t *testing.T) {
	c := newController()
	c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0)
	c.Move(1, Point{35, 5}, t0)

	other := Pointer{ID: 2, Kind: Touch}
	assert.False(t, c.Down(other, "t2", task.StatusBacklog, Point{5, 5}, t0))
	c.Move(2, Point{5, 5}, t0)
	assert.Equal(t, OutcomeNone, c.Up(2, Point{5, 5}, t0).Kind)

	assert.Equal(t, "t1", c.DraggedID())
	assert.Equal(t, Tracking, c.State())
	hovered, _ := c.Hovered()
	assert.Equal(t, task.StatusDone, hovered)
}

func TestController_TouchActivatesAfterDelay(t *testing.T) {
	c := newController()
	touch := Pointer{ID: 7, Kind: Touch}
	c.Down(touch, "t1", task.StatusBacklog, Point{5, 5}, t0)

	c.Move(7, Point{7, 5}, t0.Add(100*time.Millisecond))
	assert.Equal(t, Armed, c.State())

	c.Tick(t0.Add(250 * time.Millisecond))
	assert.Equal(t, Tracking, c.State())

	c.Move(7, Point{25, 5}, t0.Add(400*time.Millisecond))
	out := c.Up(7, Point{25, 5}, t0.Add(500*time.Millisecond))
	assert.Equal(t, OutcomeDrop, out.Kind)
	assert.Equal(t, task.StatusInProgress, out.Request.To)
}

func TestController_TouchAbortsWhenMovingBeforeDelay(t *testing.T) {
	c := newController()
	touch := Pointer{ID: 7, Kind: Touch}
	c.Down(touch, "t1", task.StatusBacklog, Point{5, 5}, t0)

	c.Move(7, Point{15, 5}, t0.Add(50*time.Millisecond))

	assert.Equal(t, Idle, c.State())
	assert.Equal(t, OutcomeNone, c.Up(7, Point{15, 5}, t0.Add(60*time.Millisecond)).Kind)
}

func TestController_TouchQuickTapIsClick(t *testing.T) {
	c := newController()
	touch := Pointer{ID: 7, Kind: Touch}
	c.Down(touch, "t1", task.StatusBacklog, Point{5, 5}, t0)

	out := c.Up(7, Point{6, 5}, t0.Add(80*time.Millisecond))
	assert.Equal(t, OutcomeClick, out.Kind)
}

func TestController_IllegalEventsRejected(t *testing.T) {
	c := newController()
	assert.Equal(t, OutcomeNone, c.Up(1, Point{}, t0).Kind)
	c.Cancel()
	c.Move(1, Point{100, 100}, t0)
	c.Tick(t0)
	assert.Equal(t, Idle, c.State())

	_, ok := transitions[Committing][evCancel]
	assert.False(t, ok)
	_, ok = transitions[Idle][evRelease]
	assert.False(t, ok)
}

func TestController_Observables(t *testing.T) {
	c := newController()
	c.Down(mouse, "t1", task.StatusTodo, Point{15, 5}, t0)
	c.Move(1, Point{20, 6}, t0)

	assert.True(t, c.Active())
	assert.True(t, c.Dragging())
	assert.Equal(t, Point{15, 5}, c.Origin())
	assert.Equal(t, Point{20, 6}, c.Position())
	assert.Equal(t, mouse, c.Pointer())
	assert.Equal(t, task.StatusTodo, c.From())
	assert.Equal(t, "tracking", c.State().String())
}

func TestRect(t *testing.T) {
	r := Rect{X: 10, Y: 0, W: 10, H: 4}
	assert.Equal(t, Point{15, 2}, r.Center())
	assert.True(t, r.Contains(Point{10, 0}))
	assert.False(t, r.Contains(Point{20, 0}))
}
