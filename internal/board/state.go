package board

import (
	"slices"
	"sync"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// ChangeKind identifies what mutated the board.
type ChangeKind int

// Change kinds.
const (
	ChangeLoad ChangeKind = iota
	ChangeTransition
	ChangeRestore
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeLoad:
		return "load"
	case ChangeTransition:
		return "transition"
	case ChangeRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after the board mutates. TaskID, From
// and To are only set for transitions.
type Change struct {
	Kind     ChangeKind
	TaskID   string
	From     task.Status
	To       task.Status
	Revision uint64
}

// Partition maps each status to its ordered tasks. Values are copies.
type Partition map[task.Status][]task.Task

// IDs returns the task ids of status in order.
func (p Partition) IDs(status task.Status) []string {
	ids := make([]string, len(p[status]))
	for i, t := range p[status] {
		ids[i] = t.ID
	}
	return ids
}

// Count returns the number of tasks across all columns.
func (p Partition) Count() int {
	n := 0
	for _, col := range p {
		n += len(col)
	}
	return n
}

// Snapshot is an immutable capture of the board used for rollback.
type Snapshot struct {
	columns  map[task.Status][]*task.Task
	revision uint64
}

// Revision returns the board revision the snapshot was taken at.
func (s Snapshot) Revision() uint64 { return s.revision }

// State is the in-memory partition of tasks into status columns. Every
// task id appears in exactly one column. State is safe for concurrent use;
// subscribers are called outside the lock.
type State struct {
	mu       sync.RWMutex
	columns  map[task.Status][]*task.Task
	versions map[string]uint64
	revision uint64

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// NewState returns an empty board with all four columns present.
func NewState() *State {
	return &State{
		columns:  emptyColumns(),
		versions: make(map[string]uint64),
		subs:     make(map[int]func(Change)),
	}
}

func emptyColumns() map[task.Status][]*task.Task {
	cols := make(map[task.Status][]*task.Task, len(task.AllStatuses()))
	for _, s := range task.AllStatuses() {
		cols[s] = nil
	}
	return cols
}

// Load replaces the board with tasks, keeping their order within each
// column. Tasks with a status outside the closed set, or a duplicate id,
// are dropped; the number dropped is returned.
func (s *State) Load(tasks []*task.Task) int {
	cols := emptyColumns()
	seen := make(map[string]bool, len(tasks))
	rejected := 0
	for _, t := range tasks {
		if t == nil || !t.Status.IsValid() || seen[t.ID] {
			rejected++
			continue
		}
		seen[t.ID] = true
		cols[t.Status] = append(cols[t.Status], t.Clone())
	}

	s.mu.Lock()
	s.columns = cols
	for id := range seen {
		s.versions[id]++
	}
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeLoad, Revision: rev})
	return rejected
}

// ApplyTransition removes id from the from column and appends it to the to
// column. It is a no-op returning false when id is not in from, when the
// columns are equal, or when to is not a board status.
func (s *State) ApplyTransition(id string, from, to task.Status) bool {
	_, ok := s.apply(id, from, to)
	return ok
}

// apply performs ApplyTransition and returns the task version it produced.
func (s *State) apply(id string, from, to task.Status) (applied, bool) {
	if from == to || !to.IsValid() {
		return applied{}, false
	}

	s.mu.Lock()
	i := indexOf(s.columns[from], id)
	if i < 0 {
		s.mu.Unlock()
		return applied{}, false
	}
	moved := s.columns[from][i].Clone()
	moved.Status = to
	s.columns[from] = slices.Delete(slices.Clone(s.columns[from]), i, i+1)
	s.columns[to] = append(slices.Clone(s.columns[to]), moved)
	s.versions[id]++
	s.revision++
	a := applied{index: i, version: s.versions[id], revision: s.revision}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeTransition, TaskID: id, From: from, To: to, Revision: a.revision})
	return a, true
}

// applied records where a transition took a task from and the counters it
// left behind.
type applied struct {
	index    int
	version  uint64
	revision uint64
}

// Snapshot captures the current partition.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{columns: cloneColumns(s.columns), revision: s.revision}
}

// Restore replaces the partition with snap. Tasks whose column differs from
// the current one get their version bumped.
func (s *State) Restore(snap Snapshot) {
	if snap.columns == nil {
		return
	}
	cols := cloneColumns(snap.columns)

	s.mu.Lock()
	before := statusIndex(s.columns)
	for status, col := range cols {
		for _, t := range col {
			if before[t.ID] != status {
				s.versions[t.ID]++
			}
		}
	}
	s.columns = cols
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRestore, Revision: rev})
}

// moveBack returns id from the from column to the to column at index,
// clamped to the column length. It reports whether id was found in from.
func (s *State) moveBack(id string, from, to task.Status, index int) bool {
	s.mu.Lock()
	i := indexOf(s.columns[from], id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	moved := s.columns[from][i].Clone()
	moved.Status = to
	s.columns[from] = slices.Delete(slices.Clone(s.columns[from]), i, i+1)
	dst := slices.Clone(s.columns[to])
	index = min(max(index, 0), len(dst))
	s.columns[to] = slices.Insert(dst, index, moved)
	s.versions[id]++
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRestore, TaskID: id, From: from, To: to, Revision: rev})
	return true
}

// PartitionView returns a copy of every column in order.
func (s *State) PartitionView() Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := make(Partition, len(s.columns))
	for status, col := range s.columns {
		out := make([]task.Task, len(col))
		for i, t := range col {
			out[i] = *t.Clone()
		}
		p[status] = out
	}
	return p
}

// Lookup returns a copy of the task with id.
func (s *State) Lookup(id string) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, col := range s.columns {
		if i := indexOf(col, id); i >= 0 {
			return *col[i].Clone(), true
		}
	}
	return task.Task{}, false
}

// Version returns the number of mutations that have touched id.
func (s *State) Version(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[id]
}

// Revision returns the number of mutations applied to the whole board.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Len returns the number of tasks on the board.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, col := range s.columns {
		n += len(col)
	}
	return n
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *State) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *State) notify(c Change) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func indexOf(col []*task.Task, id string) int {
	return slices.IndexFunc(col, func(t *task.Task) bool { return t.ID == id })
}

func cloneColumns(cols map[task.Status][]*task.Task) map[task.Status][]*task.Task {
	out := make(map[task.Status][]*task.Task, len(cols))
	for status, col := range cols {
		c := make([]*task.Task, len(col))
		for i, t := range col {
			c[i] = t.Clone()
		}
		out[status] = c
	}
	return out
}

func statusIndex(cols map[task.Status][]*task.Task) map[string]task.Status {
	idx := make(map[string]task.Status)
	for status, col := range cols {
		for _, t := range col {
			idx[t.ID] = status
		}
	}
	return idx
}
