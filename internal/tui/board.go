// Package tui implements the interactive terminal board: four status
// columns, keyboard and mouse navigation, and drag-and-drop moves that are
// applied optimistically and reconciled with the store.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/drag"
	"github.com/twiced-technology-gmbh/trackle/internal/logging"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewDetail
)

// Key and layout constants.
const (
	keyEsc = "esc"

	boardChrome     = 2 // blank line + status bar below the column area
	errorChrome     = 1 // extra line when an error is displayed
	tickInterval    = time.Second
	doubleClick     = 500 * time.Millisecond
	defaultTimeout  = 10 * time.Second
	defaultColWidth = 30
	maxColWidth     = 75
	mousePointer    = 0
)

// Options configures a Board.
type Options struct {
	// Name is shown in the status bar.
	Name string
	// Store loads the board and persists moves.
	Store store.Store
	// SprintID selects the tasks shown. See store.AllSprints and
	// store.Unassigned.
	SprintID string
	// Sprint, if set, drives the countdown in the status bar.
	Sprint *task.Sprint
	// Drag holds the mouse activation thresholds.
	Drag drag.Config
	// BodyLines is how many description lines each card shows.
	BodyLines int
	// Timeout bounds every store call.
	Timeout time.Duration
	Log     logrus.FieldLogger
	Now     func() time.Time
}

// Board is the top-level bubbletea model.
type Board struct {
	opts Options
	log  logrus.FieldLogger
	now  func() time.Time

	state       *board.State
	rec         *board.Reconciler
	drag        *drag.Controller
	unsubscribe func()
	dirty       bool
	revision    uint64

	// Moves sent to the store and not yet resolved. Reloads that arrive
	// meanwhile are deferred until the count drops to zero.
	inFlight    int
	reloadAfter bool

	keys keyMap
	help help.Model

	columns   []column
	activeCol int
	activeRow int
	follow    string // task to select after the next rebuild
	view      view
	detailID  string
	width     int
	height    int
	err       error
	loaded    bool

	lastClickID   string
	lastClickTime time.Time
}

// column is the rendered copy of one status column.
type column struct {
	status    task.Status
	tasks     []task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a Board over opts.Store. The board is empty until the
// first fetch issued by Init completes.
func NewBoard(opts Options) *Board {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	state := board.NewState()
	b := &Board{
		opts:  opts,
		log:   log.WithField("component", "tui"),
		now:   opts.Now,
		state: state,
		rec:   board.NewReconciler(state, opts.Store, log),
		drag:  drag.New(opts.Drag),
		keys:  newKeyMap(),
		help:  help.New(),
	}
	b.unsubscribe = state.Subscribe(b.onChange)
	b.rebuild()
	return b
}

// Close detaches the board from its state notifications.
func (b *Board) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

// onChange runs synchronously inside the mutating call, which always
// happens on the bubbletea loop.
func (b *Board) onChange(c board.Change) {
	b.dirty = true
	b.revision = c.Revision
	b.log.WithFields(logrus.Fields{
		"kind":     c.Kind.String(),
		"task":     c.TaskID,
		"revision": c.Revision,
	}).Debug("board changed")
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.fetchCmd(), tickCmd())
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := b.update(msg)
	if b.dirty {
		b.rebuild()
		b.dirty = false
	}
	return b, cmd
}

func (b *Board) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.BlurMsg:
		// Focus loss means the release may never arrive.
		b.drag.Cancel()
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.help.Width = msg.Width
		b.updateTargets()
		b.ensureVisible()
	case ReloadMsg:
		return b.fetchCmd()
	case loadedMsg:
		return b.handleLoaded(msg)
	case resolvedMsg:
		return b.handleResolved(msg)
	case TickMsg:
		b.drag.Tick(b.now())
		return tickCmd()
	}
	return nil
}

func (b *Board) handleLoaded(msg loadedMsg) tea.Cmd {
	if msg.err != nil {
		b.err = board.StoreError("fetch tasks for sprint", b.opts.SprintID, msg.err)
		b.log.WithError(msg.err).Warn("loading board failed")
		return nil
	}
	if b.inFlight > 0 {
		// The fetch may predate a pending move; fetch again once it settles.
		b.reloadAfter = true
		return nil
	}
	if dropped := b.state.Load(msg.tasks); dropped > 0 {
		b.log.WithField("dropped", dropped).Warn("skipped tasks with invalid status or duplicate id")
	}
	b.loaded = true
	b.err = nil
	return nil
}

func (b *Board) handleResolved(msg resolvedMsg) tea.Cmd {
	b.inFlight--
	if err := b.rec.Resolve(msg.pending, msg.err); err != nil {
		b.err = err
	}
	if b.inFlight == 0 && b.reloadAfter {
		b.reloadAfter = false
		return b.fetchCmd()
	}
	return nil
}

func (b *Board) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		return tea.Quit
	}
	if b.view == viewDetail {
		switch {
		case key.Matches(msg, b.keys.Back), key.Matches(msg, b.keys.Open):
			b.view = viewBoard
		case key.Matches(msg, b.keys.Quit):
			return tea.Quit
		}
		return nil
	}
	return b.handleBoardKey(msg)
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, b.keys.Back):
		if b.drag.Active() {
			b.drag.Cancel()
			return nil
		}
		return tea.Quit
	case key.Matches(msg, b.keys.Quit):
		return tea.Quit
	case key.Matches(msg, b.keys.Left):
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Right):
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Down):
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.Up):
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.MoveNext):
		return b.moveSelected(true)
	case key.Matches(msg, b.keys.MovePrev):
		return b.moveSelected(false)
	case key.Matches(msg, b.keys.Open):
		b.openDetail()
	case key.Matches(msg, b.keys.Reload):
		return b.fetchCmd()
	case key.Matches(msg, b.keys.Help):
		b.help.ShowAll = !b.help.ShowAll
		b.updateTargets()
		b.ensureVisible()
	}
	return nil
}

// moveSelected moves the selected card one column right (next) or left.
func (b *Board) moveSelected(next bool) tea.Cmd {
	t := b.selectedTask()
	if t == nil {
		return nil
	}
	to, ok := t.Status.Prev()
	direction := "first"
	if next {
		to, ok = t.Status.Next()
		direction = "last"
	}
	if !ok {
		b.err = task.ValidateBoundaryError(t.ID, t.Status, direction)
		return nil
	}
	return b.commit(board.Request{TaskID: t.ID, From: t.Status, To: to})
}

// commit applies req optimistically and returns the command that persists
// it. The result comes back as a resolvedMsg.
func (b *Board) commit(req board.Request) tea.Cmd {
	p, err := b.rec.Begin(req)
	if err != nil {
		b.err = err
		b.log.WithError(err).WithField("task", req.TaskID).Info("move rejected")
		return nil
	}
	if p == nil {
		return nil
	}
	b.err = nil
	b.inFlight++
	b.follow = req.TaskID

	rec, timeout := b.rec, b.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return resolvedMsg{pending: p, err: rec.Send(ctx, p)}
	}
}

// handleMouse feeds left-button gestures to the drag controller. A release
// without movement is a click; two clicks on a card open its details.
// Outside the board view a release still ends any session.
func (b *Board) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if b.view != viewBoard {
		if msg.Action == tea.MouseActionRelease {
			b.drag.Cancel()
		}
		return nil
	}
	at := drag.Point{X: float64(msg.X), Y: float64(msg.Y)}
	now := b.now()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			b.scrollColumn(msg.X, -1)
		case tea.MouseButtonWheelDown:
			b.scrollColumn(msg.X, 1)
		case tea.MouseButtonLeft:
			b.press(msg.X, msg.Y, at, now)
		}
	case tea.MouseActionMotion:
		b.drag.Move(mousePointer, at, now)
	case tea.MouseActionRelease:
		out := b.drag.Up(mousePointer, at, now)
		switch out.Kind {
		case drag.OutcomeClick:
			b.click(out.TaskID, now)
		case drag.OutcomeDrop:
			return b.commit(out.Request)
		}
	}
	return nil
}

func (b *Board) press(x, y int, at drag.Point, now time.Time) {
	colIdx, row := b.cardAt(x, y)
	if colIdx < 0 {
		return
	}
	b.activeCol = colIdx
	if row < 0 {
		b.clampRow()
		return
	}
	b.activeRow = row
	b.ensureVisible()

	t := b.columns[colIdx].tasks[row]
	b.drag.Down(drag.Pointer{ID: mousePointer, Kind: drag.Mouse}, t.ID, t.Status, at, now)
}

func (b *Board) click(id string, now time.Time) {
	if id == b.lastClickID && now.Sub(b.lastClickTime) < doubleClick {
		b.lastClickID = ""
		b.openDetail()
		return
	}
	b.lastClickID = id
	b.lastClickTime = now
}

func (b *Board) scrollColumn(x, delta int) {
	colIdx := x / b.columnWidth()
	if colIdx < 0 || colIdx >= len(b.columns) {
		return
	}
	if colIdx != b.activeCol {
		b.activeCol = colIdx
		b.clampRow()
		return
	}
	row := b.activeRow + delta
	if row >= 0 && row < len(b.columns[colIdx].tasks) {
		b.activeRow = row
		b.ensureVisible()
	}
}

// cardAt maps a screen cell to a column and a card row. row is -1 when the
// cell is inside a column but not on a card; colIdx is -1 outside the board.
func (b *Board) cardAt(x, y int) (colIdx, row int) {
	colWidth := b.columnWidth()
	colIdx = x / colWidth
	if x < 0 || colIdx >= len(b.columns) {
		return -1, -1
	}
	col := &b.columns[colIdx]

	lineY := y - 1 // header
	if col.scrollOff > 0 {
		lineY-- // "↑ N more"
	}
	if lineY < 0 {
		return colIdx, -1
	}

	cardLine := 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		h := b.cardHeight(&col.tasks[i], colWidth)
		if lineY < cardLine+h {
			return colIdx, i
		}
		cardLine += h
	}
	return colIdx, -1
}

func (b *Board) openDetail() {
	b.drag.Cancel()
	if t := b.selectedTask(); t != nil {
		b.detailID = t.ID
		b.view = viewDetail
	}
}

// updateTargets lays the drop zones over the column area.
func (b *Board) updateTargets() {
	h := b.height - b.chromeHeight()
	if h < 1 {
		h = 1
	}
	w := float64(b.columnWidth())
	b.drag.SetTargets(drag.ColumnTargets(task.AllStatuses(), 0, 0, w, float64(h)))
}

// rebuild copies the board partition into columns, keeping the selection
// on the same task where possible.
func (b *Board) rebuild() {
	selected := b.follow
	if selected == "" {
		if t := b.selectedTask(); t != nil {
			selected = t.ID
		}
	}
	b.follow = ""

	p := b.state.PartitionView()
	old := b.columns
	b.columns = make([]column, 0, len(task.AllStatuses()))
	for i, s := range task.AllStatuses() {
		col := column{status: s, tasks: p[s]}
		if i < len(old) {
			col.scrollOff = old[i].scrollOff
		}
		b.columns = append(b.columns, col)
	}

	if selected != "" {
		for ci := range b.columns {
			for ri := range b.columns[ci].tasks {
				if b.columns[ci].tasks[ri].ID == selected {
					b.activeCol, b.activeRow = ci, ri
					b.ensureVisible()
					return
				}
			}
		}
	}
	b.clampRow()
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return &col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	if col.scrollOff >= len(col.tasks) {
		col.scrollOff = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// chromeHeight returns the lines below the column area: blank line, status
// bar, help and an optional error line.
func (b *Board) chromeHeight() int {
	h := boardChrome + b.helpHeight()
	if b.err != nil {
		h += errorChrome
	}
	return h
}

func (b *Board) helpHeight() int {
	if b.help.ShowAll {
		n := 0
		for _, group := range b.keys.FullHelp() {
			n = max(n, len(group))
		}
		return n
	}
	return 1
}

// visibleCards returns how many cards of col fit, accounting for the
// scroll indicator lines.
func (b *Board) visibleCards(col *column, width int) int {
	budget := b.height - b.chromeHeight()
	if budget < 1 {
		return 1
	}
	avail := budget - 1 // header
	if col.scrollOff > 0 {
		avail--
	}
	n := b.fitCards(col, avail, width)
	if col.scrollOff+n < len(col.tasks) {
		n = max(b.fitCards(col, avail-1, width), 1)
	}
	return n
}

func (b *Board) fitCards(col *column, avail, width int) int {
	if len(col.tasks) == 0 || avail < 1 {
		return 1
	}
	used, count := 0, 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		h := b.cardHeight(&col.tasks[i], width)
		if count > 0 && used+h > avail {
			break
		}
		count++
		used += h
		if used >= avail {
			break
		}
	}
	return max(count, 1)
}

// ensureVisible scrolls the active column so the selected row is shown.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil || b.height == 0 {
		return
	}
	w := b.columnWidth()
	for range len(col.tasks) + 1 {
		maxVis := b.visibleCards(col, w)
		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) fetchCmd() tea.Cmd {
	st, sprintID, timeout := b.opts.Store, b.opts.SprintID, b.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := st.FetchTasksBySprint(ctx, sprintID)
		return loadedMsg{tasks: tasks, err: err}
	}
}

// --- Messages ---

// ReloadMsg asks the board to refetch, typically from the file watcher.
type ReloadMsg struct{}

// TickMsg refreshes the sprint countdown and lets held pointers activate.
type TickMsg struct{}

type loadedMsg struct {
	tasks []*task.Task
	err   error
}

type resolvedMsg struct {
	pending *board.Pending
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}
