// Package store defines the persistence ports the board talks to and the
// errors shared by every backend.
package store

import (
	"context"
	"errors"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// Sprint selectors for FetchTasksBySprint.
const (
	// Unassigned selects tasks that belong to no sprint.
	Unassigned = ""
	// AllSprints selects every task.
	AllSprints = "*"
)

// Shared backend errors. Backends wrap these so callers can use errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the minimal port the board needs.
type Store interface {
	FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error
}

// Repository is the full persistence surface used by the CLI and the API.
type Repository interface {
	Store

	ListTasks(ctx context.Context) ([]*task.Task, error)
	// GetTask accepts a unique id prefix.
	GetTask(ctx context.Context, id string) (*task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) error
	SaveTask(ctx context.Context, t *task.Task) error
	DeleteTask(ctx context.Context, id string) error

	ListSprints(ctx context.Context) ([]*task.Sprint, error)
	GetSprint(ctx context.Context, id string) (*task.Sprint, error)
	SaveSprint(ctx context.Context, s *task.Sprint) error
	// ActivateSprint marks id active and every other sprint inactive.
	ActivateSprint(ctx context.Context, id string) error
	// ActiveSprint returns ErrNotFound when no sprint is active.
	ActiveSprint(ctx context.Context) (*task.Sprint, error)

	AddComment(ctx context.Context, taskID string, c *task.Comment) error
	UpdateComment(ctx context.Context, taskID string, c *task.Comment) error
	DeleteComment(ctx context.Context, taskID, commentID string) error

	AddSubtask(ctx context.Context, taskID string, s *task.Subtask) error
	SetSubtaskDone(ctx context.Context, taskID, subtaskID string, done bool) error
	DeleteSubtask(ctx context.Context, taskID, subtaskID string) error

	AddStandup(ctx context.Context, s *task.Standup) error
	// ListStandups returns standups newest first.
	ListStandups(ctx context.Context) ([]*task.Standup, error)
}

// MatchesSprint reports whether t is selected by sprintID.
func MatchesSprint(t *task.Task, sprintID string) bool {
	return sprintID == AllSprints || t.SprintID == sprintID
}
