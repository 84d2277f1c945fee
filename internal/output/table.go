package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boldStyle   = lipgloss.NewStyle().Bold(true)

	// Status colors aligned with TUI column-header palette.
	statusStyles = map[task.Status]lipgloss.Style{
		task.StatusBacklog:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		task.StatusTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		task.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		task.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	// Priority colors matching TUI priority palette.
	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	sprintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true)
	overStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	boldStyle = lipgloss.NewStyle()
	statusStyles = map[task.Status]lipgloss.Style{}
	priorityStyles = map[task.Priority]lipgloss.Style{}
	tagStyle = lipgloss.NewStyle()
	sprintStyle = lipgloss.NewStyle()
	overStyle = lipgloss.NewStyle()
	markdownStyle = "ascii"
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	idW, statusW, prioW, titleW, tagsW, dueW := task.ShortIDLength+pad, 8, 10, 5, 6, 12
	for _, t := range tasks {
		statusW = max(statusW, len(t.Status)+pad)
		prioW = max(prioW, len(t.Priority)+pad)
		titleW = max(titleW, min(len(t.Title)+pad, 50))                 //nolint:mnd // max title column width
		tagsW = max(tagsW, min(len(strings.Join(t.Tags, ","))+pad, 30)) //nolint:mnd // max tags column width
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %s",
		idW, "ID", statusW, "STATUS", prioW, "PRIORITY",
		titleW, "TITLE", tagsW, "TAGS", dueW, "DUE", "EST")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		title := truncate(t.Title, 48) //nolint:mnd // keeps the title column readable
		tags := strings.Join(t.Tags, ",")
		if tags == "" {
			tags = dimStyle.Render("--")
		} else {
			tags = tagStyle.Render(tags)
		}
		due := dimStyle.Render("--")
		if t.Due != nil {
			due = t.Due.String()
		}

		row := fmt.Sprintf("%-*s %s %s %s %s %s %s",
			idW, t.ShortID(),
			padRight(styledStatus(t.Status), statusW),
			padRight(styledPriority(t.Priority), prioW),
			padRight(title, titleW),
			padRight(tags, tagsW),
			padRight(due, dueW),
			stringOrDash(t.Estimate))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail.
func TaskDetail(w io.Writer, t *task.Task) {
	titleLine := fmt.Sprintf("Task %s: %s", t.ShortID(), t.Title)
	fmt.Fprintln(w, boldStyle.Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "ID", t.ID)
	printField(w, "Status", styledStatus(t.Status))
	printField(w, "Priority", styledPriority(t.Priority))
	if t.SprintID != "" {
		printField(w, "Sprint", sprintStyle.Render(task.ShortID(t.SprintID)))
	} else {
		printField(w, "Sprint", dimStyle.Render("backlog"))
	}
	if len(t.Tags) > 0 {
		printField(w, "Tags", tagStyle.Render(strings.Join(t.Tags, ", ")))
	} else {
		printField(w, "Tags", dimStyle.Render("--"))
	}
	if t.Due != nil {
		printField(w, "Due", t.Due.String())
	} else {
		printField(w, "Due", dimStyle.Render("--"))
	}
	printField(w, "Estimate", stringOrDash(t.Estimate))
	printField(w, "Created", t.Created.Format(timeLayout))
	printField(w, "Updated", t.Updated.Format(timeLayout))
	if t.Started != nil {
		printField(w, "Started", t.Started.Format(timeLayout))
	}
	if t.Completed != nil {
		printField(w, "Completed", t.Completed.Format(timeLayout))
		printField(w, "Lead time", FormatDuration(t.Completed.Sub(t.Created)))
		if t.Started != nil {
			printField(w, "Cycle time", FormatDuration(t.Completed.Sub(*t.Started)))
		}
	}

	if len(t.Subtasks) > 0 {
		done, total := t.SubtaskProgress()
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Subtasks (%d/%d)", done, total)))
		SubtaskList(w, t.Subtasks)
	}
	if len(t.Comments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Comments (%d)", len(t.Comments))))
		CommentList(w, t.Comments)
	}

	if t.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, Markdown(t.Description, defaultWrap))
	}
}

// SubtaskList renders subtasks as a checklist.
func SubtaskList(w io.Writer, subs []task.Subtask) {
	if len(subs) == 0 {
		fmt.Fprintln(os.Stderr, "No subtasks.")
		return
	}
	for _, s := range subs {
		box := "[ ]"
		if s.Done {
			box = "[x]"
		}
		line := fmt.Sprintf("  %s %s %s", box, dimStyle.Render(task.ShortID(s.ID)), s.Title)
		if s.Due != nil {
			line += dimStyle.Render(" due:" + s.Due.String())
		}
		fmt.Fprintln(w, line)
	}
}

// CommentList renders comments oldest first.
func CommentList(w io.Writer, comments []task.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(os.Stderr, "No comments.")
		return
	}
	for _, c := range comments {
		stamp := c.Created.Format(timeLayout)
		if c.Updated.After(c.Created) {
			stamp += " (edited)"
		}
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(task.ShortID(c.ID)), dimStyle.Render(stamp))
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintln(w, "    "+line)
		}
	}
}

// BoardColumns renders the board as one section per status column.
func BoardColumns(w io.Writer, p board.Partition) {
	for i, s := range task.AllStatuses() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		col := p[s]
		fmt.Fprintf(w, "%s %s\n", styledStatus(s), dimStyle.Render("("+strconv.Itoa(len(col))+")"))
		if len(col) == 0 {
			fmt.Fprintln(w, dimStyle.Render("  --"))
			continue
		}
		for _, t := range col {
			fmt.Fprintf(w, "  %s %s %s\n",
				dimStyle.Render(t.ShortID()),
				padRight(styledPriority(t.Priority), 8), //nolint:mnd // priority column width
				t.Title)
		}
	}
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, boldStyle.Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tasks\n\n", s.TotalTasks)

	const statusColW = 16
	header := fmt.Sprintf("%-*s %6s %8s", statusColW, "STATUS", "COUNT", "OVERDUE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, ss := range s.Statuses {
		fmt.Fprintf(w, "%s %6d %8d\n",
			padRight(styledStatus(ss.Status), statusColW), ss.Count, ss.Overdue)
	}

	fmt.Fprintln(w)
	prioHeader := fmt.Sprintf("%-*s %6s", statusColW, "PRIORITY", "COUNT")
	fmt.Fprintln(w, headerStyle.Render(prioHeader))

	for _, pc := range s.Priorities {
		fmt.Fprintf(w, "%s %6d\n",
			padRight(styledPriority(pc.Priority), statusColW), pc.Count)
	}
}

// DashboardTable renders the landing dashboard.
func DashboardTable(w io.Writer, d board.Dashboard) {
	OverviewTable(w, d.Overview)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Progress: %s %d%% (%d/%d done)\n",
		ProgressBar(d.Progress, 20), d.Progress, d.Done, d.TotalTasks) //nolint:mnd // bar width
	fmt.Fprintf(w, "Standups logged: %d\n", d.StandupCount)

	if d.Sprint != nil {
		fmt.Fprintf(w, "Sprint: %s %s\n", sprintStyle.Render(d.Sprint.Goal), countdownStyle(d.Sprint.Countdown))
	} else {
		fmt.Fprintln(w, "Sprint: "+dimStyle.Render("none active"))
	}

	if len(d.RecentCompleted) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Recently completed"))
		for _, t := range d.RecentCompleted {
			when := "--"
			if t.Completed != nil {
				when = t.Completed.Format(timeLayout)
			}
			fmt.Fprintf(w, "  %s %s %s\n", dimStyle.Render(t.ShortID()), t.Title, dimStyle.Render(when))
		}
	}
}

// SprintTable renders sprints with their countdowns.
func SprintTable(w io.Writer, sprints []*task.Sprint, now time.Time) {
	if len(sprints) == 0 {
		fmt.Fprintln(os.Stderr, "No sprints found.")
		return
	}
	const goalW = 40
	header := fmt.Sprintf("%-*s %-6s %-10s %-10s %-*s %s",
		task.ShortIDLength+1, "ID", "ACTIVE", "START", "END", goalW, "GOAL", "REMAINING")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, sp := range sprints {
		active := dimStyle.Render("--")
		if sp.Active {
			active = sprintStyle.Render("yes")
		}
		row := fmt.Sprintf("%-*s %s %-10s %-10s %s %s",
			task.ShortIDLength+1, sp.ShortID(),
			padRight(active, 6), //nolint:mnd // ACTIVE column width
			sp.Start.Format("2006-01-02"), sp.End.Format("2006-01-02"),
			padRight(truncate(sp.Goal, goalW-2), goalW),
			countdownStyle(task.FormatCountdown(sp.Remaining(now))))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// SprintDetail renders one sprint and its task breakdown.
func SprintDetail(w io.Writer, sp *task.Sprint, tasks []*task.Task, now time.Time) {
	fmt.Fprintln(w, boldStyle.Render("Sprint "+sp.ShortID()+": "+sp.Goal))
	printField(w, "ID", sp.ID)
	printField(w, "Active", strconv.FormatBool(sp.Active))
	printField(w, "Start", sp.Start.Format(timeLayout))
	printField(w, "End", sp.End.Format(timeLayout))
	printField(w, "Remaining", countdownStyle(task.FormatCountdown(sp.Remaining(now))))

	counts := board.CountByStatus(tasks)
	done := counts[task.StatusDone]
	printField(w, "Progress", fmt.Sprintf("%d%% (%d/%d done)", board.Progress(done, len(tasks)), done, len(tasks)))
	fmt.Fprintln(w)
	TaskTable(w, tasks)
}

// StandupTable renders standups newest first.
func StandupTable(w io.Writer, standups []*task.Standup) {
	if len(standups) == 0 {
		fmt.Fprintln(os.Stderr, "No standups found.")
		return
	}
	for i, su := range standups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, boldStyle.Render(su.Created.Format(timeLayout))+" "+dimStyle.Render(task.ShortID(su.ID)))
		printField(w, "Yesterday", su.Yesterday)
		printField(w, "Today", su.Today)
		printField(w, "Blockers", stringOrDash(su.Blockers))
	}
}

// TagTable renders tag usage counts.
func TagTable(w io.Writer, tags []board.TagCount) {
	if len(tags) == 0 {
		fmt.Fprintln(os.Stderr, "No tags found.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-24s %6s", "TAG", "COUNT")))
	for _, tc := range tags {
		fmt.Fprintf(w, "%s %6d\n", padRight(tagStyle.Render(tc.Tag), 24), tc.Count) //nolint:mnd // tag column width
	}
}

// GroupedTable renders a grouped board view with per-group status breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks)", g.Key, g.Total)
		fmt.Fprintln(w, boldStyle.Render(title))

		for _, ss := range g.Statuses {
			if ss.Count == 0 {
				continue
			}
			const groupStatusW = 16
			fmt.Fprintf(w, "  %s %d\n", padRight(styledStatus(ss.Status), groupStatusW), ss.Count)
		}
	}
}

// LogTable renders activity log entries.
func LogTable(w io.Writer, entries []board.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}
	for _, e := range entries {
		id := ""
		if e.TaskID != "" {
			id = task.ShortID(e.TaskID) + " "
		}
		fmt.Fprintf(w, "%s %-8s %s%s\n", dimStyle.Render(e.Timestamp.Format(timeLayout)), e.Action, id, e.Detail)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// ProgressBar draws a fixed-width bar for a percentage.
func ProgressBar(percent, width int) string {
	percent = max(0, min(percent, 100)) //nolint:mnd // percent bounds
	filled := percent * width / 100     //nolint:mnd // percent
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}

func countdownStyle(s string) string {
	if s == task.SprintOver {
		return overStyle.Render(s)
	}
	return s
}

func styledStatus(s task.Status) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

func styledPriority(p task.Priority) string {
	if p == "" {
		return dimStyle.Render("--")
	}
	if st, ok := priorityStyles[p]; ok {
		return st.Render(string(p))
	}
	return string(p)
}
