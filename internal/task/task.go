// Package task defines the sprint tracker entities, their closed enums,
// the status transition rules and the markdown file codec.
package task

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/trackle/internal/date"
)

// ShortIDLength is how many leading characters of an id are shown in lists.
const ShortIDLength = 8

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Task represents a unit of work parsed from a markdown file.
type Task struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Status    Status     `yaml:"status" json:"status"`
	Priority  Priority   `yaml:"priority" json:"priority"`
	SprintID  string     `yaml:"sprint,omitempty" json:"sprint_id,omitempty"`
	Created   time.Time  `yaml:"created" json:"created"`
	Updated   time.Time  `yaml:"updated" json:"updated"`
	Started   *time.Time `yaml:"started,omitempty" json:"started,omitempty"`
	Completed *time.Time `yaml:"completed,omitempty" json:"completed,omitempty"`
	Tags      []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Due       *date.Date `yaml:"due,omitempty" json:"due,omitempty"`
	Estimate  string     `yaml:"estimate,omitempty" json:"estimate,omitempty"`
	Subtasks  []Subtask  `yaml:"subtasks,omitempty" json:"subtasks,omitempty"`
	Comments  []Comment  `yaml:"comments,omitempty" json:"comments,omitempty"`

	// Description is the markdown content below the frontmatter (not in YAML).
	Description string `yaml:"-" json:"description,omitempty"`

	// File is the path to the task file (not in YAML).
	File string `yaml:"-" json:"file,omitempty"`
}

// New returns a task with a fresh id, the given title, and creation
// timestamps set to now.
func New(title string, status Status, priority Priority, now time.Time) *Task {
	return &Task{
		ID:       NewID(),
		Title:    title,
		Status:   status,
		Priority: priority,
		Created:  now,
		Updated:  now,
	}
}

// ShortID returns the display prefix of the task id.
func (t *Task) ShortID() string {
	return ShortID(t.ID)
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	c.Subtasks = slices.Clone(t.Subtasks)
	c.Comments = slices.Clone(t.Comments)
	if t.Started != nil {
		s := *t.Started
		c.Started = &s
	}
	if t.Completed != nil {
		d := *t.Completed
		c.Completed = &d
	}
	if t.Due != nil {
		d := *t.Due
		c.Due = &d
	}
	return &c
}

// SubtaskProgress returns the number of finished and total subtasks.
func (t *Task) SubtaskProgress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.Done {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// FindComment returns the index of the comment with the given id prefix, or -1.
func (t *Task) FindComment(id string) int {
	for i, c := range t.Comments {
		if matchesID(c.ID, id) {
			return i
		}
	}
	return -1
}

// FindSubtask returns the index of the subtask with the given id prefix, or -1.
func (t *Task) FindSubtask(id string) int {
	for i, s := range t.Subtasks {
		if matchesID(s.ID, id) {
			return i
		}
	}
	return -1
}

// Subtask is a checklist item owned by a task.
type Subtask struct {
	ID     string     `yaml:"id" json:"id"`
	TaskID string     `yaml:"-" json:"task_id,omitempty"`
	Title  string     `yaml:"title" json:"title"`
	Due    *date.Date `yaml:"due,omitempty" json:"due,omitempty"`
	Done   bool       `yaml:"done" json:"done"`
}

// Comment is a free-text note attached to a task.
type Comment struct {
	ID      string    `yaml:"id" json:"id"`
	TaskID  string    `yaml:"-" json:"task_id,omitempty"`
	Content string    `yaml:"content" json:"content"`
	Created time.Time `yaml:"created" json:"created"`
	Updated time.Time `yaml:"updated" json:"updated"`
}

// Sprint is a time-boxed iteration with a goal. At most one sprint is active.
type Sprint struct {
	ID     string    `yaml:"id" json:"id"`
	Goal   string    `yaml:"goal" json:"goal"`
	Start  time.Time `yaml:"start" json:"start"`
	End    time.Time `yaml:"end" json:"end"`
	Active bool      `yaml:"active" json:"active"`
}

// ShortID returns the display prefix of the sprint id.
func (s *Sprint) ShortID() string {
	return ShortID(s.ID)
}

// Remaining returns the time left until the sprint ends, never negative.
func (s *Sprint) Remaining(now time.Time) time.Duration {
	if d := s.End.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Over reports whether the sprint end has passed.
func (s *Sprint) Over(now time.Time) bool {
	return !now.Before(s.End)
}

// Standup is a daily check-in. Yesterday and Today are required.
type Standup struct {
	ID        string    `yaml:"id" json:"id"`
	Yesterday string    `yaml:"yesterday" json:"yesterday"`
	Today     string    `yaml:"today" json:"today"`
	Blockers  string    `yaml:"blockers,omitempty" json:"blockers,omitempty"`
	Created   time.Time `yaml:"created" json:"created"`
}

// SprintOver is the countdown text once a sprint has ended.
const SprintOver = "Sprint Over"

// FormatCountdown renders d as "Xd Xh Xm Xs", or SprintOver once d has
// run out.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return SprintOver
	}
	total := int64(d / time.Second)
	days := total / secondsPerDay
	hours := total % secondsPerDay / secondsPerHour
	minutes := total % secondsPerHour / secondsPerMinute
	seconds := total % secondsPerMinute
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// NewID returns a random identifier for any entity.
func NewID() string {
	return uuid.NewString()
}

// ShortID truncates an id for display.
func ShortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first
// occurrence order.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func matchesID(id, prefix string) bool {
	return prefix != "" && strings.HasPrefix(strings.ToLower(id), strings.ToLower(prefix))
}
