package task

import "github.com/twiced-technology-gmbh/trackle/internal/clierr"

// transitions lists the statuses each status may move to. Every column may
// reach every other column: status is a label the user controls, not a
// gated workflow.
var transitions = buildTransitions()

func buildTransitions() map[Status][]Status {
	all := AllStatuses()
	m := make(map[Status][]Status, len(all))
	for _, from := range all {
		for _, to := range all {
			if from != to {
				m[from] = append(m[from], to)
			}
		}
	}
	return m
}

// CanTransition reports whether moving a task from one status to another is
// legal. Staying in place is not a transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns nil for a legal transition and an
// INVALID_TRANSITION error otherwise.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	reason := "same status"
	switch {
	case !to.IsValid():
		reason = "unknown target status"
	case !from.IsValid():
		reason = "unknown source status"
	}
	return clierr.Newf(clierr.InvalidTransition, "cannot move from %q to %q: %s", from, to, reason).
		WithDetails(map[string]any{
			"from":    string(from),
			"to":      string(to),
			"reason":  reason,
			"allowed": StatusNames(),
		})
}
