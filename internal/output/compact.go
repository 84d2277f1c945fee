package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	line := formatTaskLine(t)
	if t.Estimate != "" {
		line += " est:" + t.Estimate
	}
	if done, total := t.SubtaskProgress(); total > 0 {
		line += " subtasks:" + strconv.Itoa(done) + "/" + strconv.Itoa(total)
	}
	if len(t.Comments) > 0 {
		line += " comments:" + strconv.Itoa(len(t.Comments))
	}
	fmt.Fprintln(w, line)

	ts := "  created:" + t.Created.Format("2006-01-02") +
		" updated:" + t.Updated.Format("2006-01-02")
	if t.Started != nil {
		ts += " started:" + t.Started.Format("2006-01-02")
	}
	if t.Completed != nil {
		ts += " completed:" + t.Completed.Format("2006-01-02")
	}
	fmt.Fprintln(w, ts)

	if t.Description != "" {
		for _, bodyLine := range strings.Split(t.Description, "\n") {
			fmt.Fprintln(w, "  "+bodyLine)
		}
	}
}

// BoardCompact renders one line per column with the task ids it holds.
func BoardCompact(w io.Writer, p board.Partition) {
	for _, s := range task.AllStatuses() {
		ids := make([]string, 0, len(p[s]))
		for _, t := range p[s] {
			ids = append(ids, t.ShortID())
		}
		fmt.Fprintf(w, "%s (%d): %s\n", s, len(ids), strings.Join(ids, " "))
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks)\n", s.BoardName, s.TotalTasks)

	for _, ss := range s.Statuses {
		line := "  " + string(ss.Status) + ": " + strconv.Itoa(ss.Count)
		if ss.Overdue > 0 {
			line += " (" + strconv.Itoa(ss.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}

	if len(s.Priorities) > 0 {
		parts := make([]string, 0, len(s.Priorities))
		for _, pc := range s.Priorities {
			parts = append(parts, string(pc.Priority)+"="+strconv.Itoa(pc.Count))
		}
		fmt.Fprintln(w, "Priority: "+strings.Join(parts, " "))
	}
}

// DashboardCompact renders the dashboard in compact format.
func DashboardCompact(w io.Writer, d board.Dashboard) {
	OverviewCompact(w, d.Overview)
	fmt.Fprintf(w, "Progress: %d%% (%d/%d) standups:%d\n", d.Progress, d.Done, d.TotalTasks, d.StandupCount)
	if d.Sprint != nil {
		fmt.Fprintf(w, "Sprint: %s [%s]\n", d.Sprint.Goal, d.Sprint.Countdown)
	}
	for _, t := range d.RecentCompleted {
		fmt.Fprintln(w, "  done: "+formatTaskLine(t))
	}
}

// SprintCompact renders one line per sprint.
func SprintCompact(w io.Writer, sprints []*task.Sprint, now time.Time) {
	if len(sprints) == 0 {
		fmt.Fprintln(os.Stderr, "No sprints found.")
		return
	}
	for _, sp := range sprints {
		marker := " "
		if sp.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s %s..%s %s [%s]\n", marker, sp.ShortID(),
			sp.Start.Format("2006-01-02"), sp.End.Format("2006-01-02"),
			sp.Goal, task.FormatCountdown(sp.Remaining(now)))
	}
}

// StandupCompact renders one line per standup.
func StandupCompact(w io.Writer, standups []*task.Standup) {
	if len(standups) == 0 {
		fmt.Fprintln(os.Stderr, "No standups found.")
		return
	}
	for _, su := range standups {
		line := su.Created.Format("2006-01-02") + " y:" + oneLine(su.Yesterday) + " t:" + oneLine(su.Today)
		if su.Blockers != "" {
			line += " b:" + oneLine(su.Blockers)
		}
		fmt.Fprintln(w, line)
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	prio := string(t.Priority)
	if prio == "" {
		prio = "-"
	}
	line := t.ShortID() + " [" + string(t.Status) + "/" + prio + "] " + t.Title

	if t.SprintID != "" {
		line += " @" + task.ShortID(t.SprintID)
	}
	if len(t.Tags) > 0 {
		line += " (" + strings.Join(t.Tags, ", ") + ")"
	}
	if t.Due != nil {
		line += " due:" + t.Due.String()
	}

	return line
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
