package task

import "time"

// UpdateTimestamps sets Started and Completed based on the status transition.
//   - Sets Started on first move out of Backlog (never overwrites).
//   - Sets Completed on move to Done; also sets Started if nil.
//   - Clears Completed when moving away from Done (reopening).
func UpdateTimestamps(t *Task, oldStatus, newStatus Status, now time.Time) {
	if t.Started == nil && oldStatus == StatusBacklog && newStatus != StatusBacklog {
		t.Started = &now
	}

	if newStatus.IsTerminal() {
		t.Completed = &now
		if t.Started == nil {
			t.Started = &now
		}
	} else if oldStatus.IsTerminal() {
		t.Completed = nil
	}
}

// SetStatus moves t to status, maintaining lifecycle timestamps and Updated.
// It returns false when t is already in status.
func (t *Task) SetStatus(status Status, now time.Time) bool {
	if t.Status == status {
		return false
	}
	UpdateTimestamps(t, t.Status, status, now)
	t.Status = status
	t.Updated = now
	return true
}
