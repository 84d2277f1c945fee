package store

import (
	"fmt"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
)

// NotFound returns a coded CLI error that also matches ErrNotFound.
func NotFound(code, kind, id string) *clierr.Error {
	return &clierr.Error{
		Code:    code,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"id": id},
		Err:     ErrNotFound,
	}
}

// TaskNotFound is NotFound for tasks.
func TaskNotFound(id string) *clierr.Error {
	return NotFound(clierr.TaskNotFound, "task", id)
}

// SprintNotFound is NotFound for sprints.
func SprintNotFound(id string) *clierr.Error {
	return NotFound(clierr.SprintNotFound, "sprint", id)
}

// NoActiveSprint reports that no sprint is active. It matches ErrNotFound.
func NoActiveSprint() *clierr.Error {
	return &clierr.Error{
		Code:    clierr.NoActiveSprint,
		Message: "no active sprint (use 'trackle sprint activate ID')",
		Err:     ErrNotFound,
	}
}

// Unavailable wraps a transport failure so it matches ErrUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
