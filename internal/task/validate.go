package task

import (
	"strings"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
)

// ValidateStatus checks that a stored status is one of the board columns.
func ValidateStatus(status string) error {
	if Status(status).IsValid() {
		return nil
	}
	return InvalidStatusError(status)
}

// InvalidStatusError returns a CLIError for a status outside the closed set.
func InvalidStatusError(status string) *clierr.Error {
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": StatusNames(),
		})
}

// ResolveStatus parses user input into a Status or returns INVALID_STATUS.
func ResolveStatus(input string) (Status, error) {
	s, ok := ParseStatus(input)
	if !ok {
		return "", InvalidStatusError(input)
	}
	return s, nil
}

// ResolvePriority parses user input into a Priority or returns
// INVALID_PRIORITY.
func ResolvePriority(input string) (Priority, error) {
	p, ok := ParsePriority(input)
	if !ok {
		return "", clierr.Newf(clierr.InvalidPriority, "invalid priority %q", input).
			WithDetails(map[string]any{
				"priority": input,
				"allowed":  PriorityNames(),
			})
	}
	return p, nil
}

// ValidateDate returns a CLIError for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// ValidateTitle rejects empty titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return clierr.New(clierr.InvalidInput, "title must not be empty")
	}
	return nil
}

// ValidateStandup requires both the yesterday and today entries.
func ValidateStandup(s *Standup) error {
	var missing []string
	if strings.TrimSpace(s.Yesterday) == "" {
		missing = append(missing, "yesterday")
	}
	if strings.TrimSpace(s.Today) == "" {
		missing = append(missing, "today")
	}
	if len(missing) > 0 {
		return clierr.Newf(clierr.InvalidStandup, "standup is missing %s", strings.Join(missing, " and ")).
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// ValidateBoundaryError returns a CLIError for --next/--prev moves that run
// off the end of the column order.
func ValidateBoundaryError(id string, status Status, direction string) *clierr.Error {
	return clierr.Newf(clierr.BoundaryError,
		"task %s is already at the %s status (%s)", ShortID(id), direction, status).
		WithDetails(map[string]any{
			"id":        id,
			"status":    string(status),
			"direction": direction,
		})
}

// ValidationError is the error returned for an illegal status transition.
func ValidationError(from, to Status) error {
	return ValidateTransition(from, to)
}

// NotFoundError returns TASK_NOT_FOUND for id.
func NotFoundError(id string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: %s", id).
		WithDetails(map[string]any{"id": id})
}
