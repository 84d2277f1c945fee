// Package filestore keeps a board on disk: one markdown file per task plus
// YAML files for sprints and standups. Every write holds the board lock.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/filelock"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// LockFileName is the advisory lock taken for every write.
const LockFileName = ".lock"

const dirMode = 0o750

// Store is a file-backed store.Repository.
type Store struct {
	dir      string
	tasksDir string
	log      logrus.FieldLogger
	now      func() time.Time
}

var _ store.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped files.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store rooted at the board directory dir with task files in
// tasksDir.
func New(dir, tasksDir string, opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Store{dir: dir, tasksDir: tasksDir, log: discard, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the board directory.
func (s *Store) Dir() string { return s.dir }

// TasksDir returns the task file directory.
func (s *Store) TasksDir() string { return s.tasksDir }

// Init creates the board directories.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.tasksDir, dirMode); err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}
	return nil
}

func (s *Store) withLock(fn func() error) error {
	return filelock.With(filepath.Join(s.dir, LockFileName), fn)
}

// ListTasks reads every task file. Malformed files are skipped and logged.
func (s *Store) ListTasks(_ context.Context) ([]*task.Task, error) {
	tasks, warnings, err := task.ReadAllLenient(s.tasksDir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.log.WithError(w.Err).WithField("file", w.File).Warn("skipping task file")
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].Created.Before(tasks[j].Created)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// FetchTasksBySprint returns tasks in sprintID, ordered by creation time.
func (s *Store) FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error) {
	all, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	var out []*task.Task
	for _, t := range all {
		if store.MatchesSprint(t, sprintID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTaskStatus moves the task with the exact id to status and maintains
// its lifecycle timestamps.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	if !status.IsValid() {
		return task.InvalidStatusError(string(status))
	}
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		if t.ID != taskID {
			return store.TaskNotFound(taskID)
		}
		t.SetStatus(status, s.now())
		return nil
	})
}

// GetTask returns the task whose id starts with id.
func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return task.Read(path)
}

func (s *Store) find(id string) (string, error) {
	path, err := task.FindByID(s.tasksDir, id)
	if err != nil {
		if clierr.HasCode(err, clierr.TaskNotFound) {
			return "", store.TaskNotFound(id)
		}
		return "", err
	}
	return path, nil
}

// CreateTask assigns an id if missing and writes a new task file.
func (s *Store) CreateTask(_ context.Context, t *task.Task) error {
	if err := task.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := task.ValidateStatus(string(t.Status)); err != nil {
		return err
	}
	now := s.now()
	if t.ID == "" {
		t.ID = task.NewID()
	}
	if t.Created.IsZero() {
		t.Created = now
	}
	t.Updated = now
	if t.Status != task.StatusBacklog {
		task.UpdateTimestamps(t, task.StatusBacklog, t.Status, now)
	}
	t.Tags = task.NormalizeTags(t.Tags)

	return s.withLock(func() error {
		if err := os.MkdirAll(s.tasksDir, dirMode); err != nil {
			return fmt.Errorf("creating tasks directory: %w", err)
		}
		path := filepath.Join(s.tasksDir, task.GenerateFilename(t.ID, task.GenerateSlug(t.Title)))
		if err := task.Write(path, t); err != nil {
			return err
		}
		t.File = path
		return nil
	})
}

// SaveTask overwrites an existing task, renaming its file when the title
// changed.
func (s *Store) SaveTask(_ context.Context, t *task.Task) error {
	if err := task.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := task.ValidateStatus(string(t.Status)); err != nil {
		return err
	}
	t.Tags = task.NormalizeTags(t.Tags)
	return s.withLock(func() error {
		path, err := s.find(t.ID)
		if err != nil {
			return err
		}
		newPath, err := writeAndRename(path, t)
		if err != nil {
			return err
		}
		t.File = newPath
		return nil
	})
}

// writeAndRename writes the task and moves the file if its slug changed.
func writeAndRename(path string, t *task.Task) (string, error) {
	newPath := filepath.Join(filepath.Dir(path), task.GenerateFilename(t.ID, task.GenerateSlug(t.Title)))
	if err := task.Write(newPath, t); err != nil {
		return "", err
	}
	if newPath != path {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("removing old task file: %w", err)
		}
	}
	return newPath, nil
}

// DeleteTask removes the task file.
func (s *Store) DeleteTask(_ context.Context, id string) error {
	return s.withLock(func() error {
		path, err := s.find(id)
		if err != nil {
			return err
		}
		return os.Remove(path)
	})
}

// mutateTask reads the task matching id under the lock, applies fn and
// writes it back with a fresh Updated time.
func (s *Store) mutateTask(_ context.Context, id string, fn func(*task.Task) error) error {
	return s.withLock(func() error {
		path, err := s.find(id)
		if err != nil {
			return err
		}
		t, err := task.Read(path)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.Updated = s.now()
		return task.Write(path, t)
	})
}

// AddComment appends c to the task's comments.
func (s *Store) AddComment(ctx context.Context, taskID string, c *task.Comment) error {
	if c.ID == "" {
		c.ID = task.NewID()
	}
	now := s.now()
	c.Created, c.Updated = now, now
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		c.TaskID = t.ID
		t.Comments = append(t.Comments, *c)
		return nil
	})
}

// UpdateComment replaces the content of the comment with c.ID.
func (s *Store) UpdateComment(ctx context.Context, taskID string, c *task.Comment) error {
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		i := t.FindComment(c.ID)
		if i < 0 {
			return store.NotFound(clierr.CommentNotFound, "comment", c.ID)
		}
		t.Comments[i].Content = c.Content
		t.Comments[i].Updated = s.now()
		*c = t.Comments[i]
		return nil
	})
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		i := t.FindComment(commentID)
		if i < 0 {
			return store.NotFound(clierr.CommentNotFound, "comment", commentID)
		}
		t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
		return nil
	})
}

// AddSubtask appends sub to the task's subtasks.
func (s *Store) AddSubtask(ctx context.Context, taskID string, sub *task.Subtask) error {
	if err := task.ValidateTitle(sub.Title); err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = task.NewID()
	}
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		sub.TaskID = t.ID
		t.Subtasks = append(t.Subtasks, *sub)
		return nil
	})
}

// SetSubtaskDone checks or unchecks a subtask.
func (s *Store) SetSubtaskDone(ctx context.Context, taskID, subtaskID string, done bool) error {
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		i := t.FindSubtask(subtaskID)
		if i < 0 {
			return store.NotFound(clierr.SubtaskNotFound, "subtask", subtaskID)
		}
		t.Subtasks[i].Done = done
		return nil
	})
}

// DeleteSubtask removes a subtask.
func (s *Store) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return s.mutateTask(ctx, taskID, func(t *task.Task) error {
		i := t.FindSubtask(subtaskID)
		if i < 0 {
			return store.NotFound(clierr.SubtaskNotFound, "subtask", subtaskID)
		}
		t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
		return nil
	})
}
