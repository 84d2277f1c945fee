package tui

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// --- Styles ---

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	dropColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("114")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("226"))

	draggedCardStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("114")).
				Foreground(lipgloss.Color("241")).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle = lipgloss.NewStyle().Bold(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}

	countdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	overStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// tagColorPalette is a set of distinct, readable terminal colors for tags.
	tagColorPalette = []lipgloss.Color{"33", "36", "35", "32", "91", "34", "93", "96"}

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2) //nolint:mnd // dialog padding
)

// tagStyle returns a stable color for a tag, derived by hashing its name.
func tagStyle(tag string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	color := tagColorPalette[h.Sum32()%uint32(len(tagColorPalette))]
	return lipgloss.NewStyle().Foreground(color)
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.view == viewDetail {
		return b.viewDetail()
	}
	return b.viewBoard()
}

func (b *Board) viewBoard() string {
	colWidth := b.columnWidth()
	rendered := make([]string, len(b.columns))
	for i := range b.columns {
		rendered[i] = b.renderColumn(i, &b.columns[i], colWidth)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	// Clamp from the bottom so headers stay visible on tiny terminals.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			lines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(lines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, boardView, "", b.renderStatusBar(), b.help.View(b.keys))
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return defaultColWidth
	}
	return min(max(b.width/len(b.columns), 1), maxColWidth)
}

func (b *Board) renderColumn(colIdx int, col *column, width int) string {
	const headerPad = 2
	headerText := truncate(fmt.Sprintf("%s (%d)", col.status, len(col.tasks)), width-headerPad)

	style := columnHeaderStyle
	if colIdx == b.activeCol {
		style = activeColumnHeaderStyle
	}
	if hovered, ok := b.drag.Hovered(); ok && b.drag.Dragging() && hovered == col.status {
		style = dropColumnHeaderStyle
	}
	parts := []string{style.Width(width).Render(headerText)}

	maxVis := b.visibleCards(col, width)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↑ %d more", start), width)))
	}
	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	}
	for row := start; row < end; row++ {
		t := &col.tasks[row]
		active := colIdx == b.activeCol && row == b.activeRow
		parts = append(parts, b.renderCard(t, active, width))
	}
	if end < len(col.tasks) {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↓ %d more", len(col.tasks)-end), width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *task.Task, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	style := cardStyle
	if len(t.Tags) > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(t.Tags[0]))
		style = cardStyle.BorderForeground(tagColorPalette[h.Sum32()%uint32(len(tagColorPalette))])
	}
	if active {
		style = activeCardStyle
	}
	if b.drag.Dragging() && b.drag.DraggedID() == t.ID {
		style = draggedCardStyle
	}
	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t *task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

// cardContentLines returns the title line, the meta line and up to
// BodyLines lines of description.
func (b *Board) cardContentLines(t *task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	title := truncate(t.Title, cardWidth)
	if len(t.Tags) > 0 {
		title = tagStyle(t.Tags[0]).Render(title)
	}
	lines := []string{title}

	meta := []string{priorityStyle(t.Priority).Render(priorityLabel(t.Priority))}
	if done, total := t.SubtaskProgress(); total > 0 {
		meta = append(meta, fmt.Sprintf("☑ %d/%d", done, total))
	}
	if t.Due != nil {
		meta = append(meta, "due "+t.Due.String())
	}
	meta = append(meta, humanDuration(b.now().Sub(t.Updated)))
	lines = append(lines, dimStyle.Render(truncate(strings.Join(meta, " · "), cardWidth)))

	if n := b.opts.BodyLines; n > 0 && t.Description != "" {
		for _, line := range wrapText(strings.TrimSpace(t.Description), cardWidth, n) {
			lines = append(lines, dimStyle.Render(line))
		}
	}
	return lines
}

func priorityStyle(p task.Priority) lipgloss.Style {
	if s, ok := priorityStyles[p]; ok {
		return s
	}
	return dimStyle
}

func priorityLabel(p task.Priority) string {
	if p == "" {
		return "-"
	}
	return string(p)
}

func (b *Board) renderStatusBar() string {
	parts := []string{
		" " + b.opts.Name,
		fmt.Sprintf("%d tasks", b.state.Len()),
	}
	if sp := b.opts.Sprint; sp != nil {
		remaining := sp.Remaining(b.now())
		style := countdownStyle
		if remaining <= 0 {
			style = overStyle
		}
		parts = append(parts, sp.Goal+" "+style.Render(task.FormatCountdown(remaining)))
	}
	if b.drag.Dragging() {
		if to, ok := b.drag.Hovered(); ok && to != b.drag.From() {
			parts = append(parts, fmt.Sprintf("drop: %s → %s", b.drag.From(), to))
		} else {
			parts = append(parts, "dragging")
		}
	}
	if b.inFlight > 0 {
		parts = append(parts, "saving…")
	}
	if !b.loaded && b.err == nil {
		parts = append(parts, "loading…")
	}
	status := statusBarStyle.Render(truncate(strings.Join(parts, " | "), b.width))

	if b.err != nil {
		return errorStyle.Render(truncate("Error: "+b.err.Error(), b.width)) + "\n" + status
	}
	return status
}

func (b *Board) viewDetail() string {
	t, ok := b.state.Lookup(b.detailID)
	if !ok {
		return detailStyle.Render("Task no longer on this board.\n\n" + dimStyle.Render("esc:back"))
	}
	width := max(min(b.width, maxColWidth*2)-8, 20) //nolint:mnd // border + padding, minimum width

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(t.Title) + "\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%s · %s · %s", t.ShortID(), t.Status, priorityLabel(t.Priority))) + "\n")
	if t.SprintID != "" {
		sb.WriteString(dimStyle.Render("sprint "+task.ShortID(t.SprintID)) + "\n")
	}
	if len(t.Tags) > 0 {
		tags := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = tagStyle(tag).Render(tag)
		}
		sb.WriteString(strings.Join(tags, " ") + "\n")
	}
	if len(t.Subtasks) > 0 {
		done, total := t.SubtaskProgress()
		fmt.Fprintf(&sb, "\nSubtasks %d/%d\n", done, total)
		for _, s := range t.Subtasks {
			box := "[ ]"
			if s.Done {
				box = "[x]"
			}
			sb.WriteString("  " + box + " " + truncate(s.Title, width-6) + "\n") //nolint:mnd // indent + box
		}
	}
	if len(t.Comments) > 0 {
		fmt.Fprintf(&sb, "\nComments (%d)\n", len(t.Comments))
		for _, c := range t.Comments {
			sb.WriteString(dimStyle.Render(c.Created.Format("2006-01-02 15:04")) + " " + c.Content + "\n")
		}
	}
	if md := output.Markdown(t.Description, width); md != "" {
		sb.WriteString("\n" + md + "\n")
	}
	sb.WriteString("\n" + dimStyle.Render("esc:back q:quit"))

	return detailStyle.Width(width).Render(sb.String())
}

// wrapText word-wraps s into at most maxLines lines of maxWidth. Words
// that do not fit are kept on the last line, which is then truncated.
func wrapText(s string, maxWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	s = strings.Join(strings.Fields(s), " ")
	if lipgloss.Width(s) <= maxWidth || maxLines == 1 {
		return []string{truncate(s, maxWidth)}
	}

	words := strings.Fields(s)
	lines := make([]string, 0, maxLines)
	var current strings.Builder
	for i, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= maxWidth {
			current.WriteByte(' ')
			current.WriteString(word)
			continue
		}
		lines = append(lines, truncate(current.String(), maxWidth))
		current.Reset()
		current.WriteString(word)
		if len(lines) == maxLines-1 {
			for _, w := range words[i+1:] {
				current.WriteByte(' ')
				current.WriteString(w)
			}
			break
		}
	}
	if current.Len() > 0 {
		lines = append(lines, truncate(current.String(), maxWidth))
	}
	return lines
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}

// humanDuration formats a duration compactly: "<1m", "5m", "2h", "3d",
// "2w", "3mo", "1y".
func humanDuration(d time.Duration) string {
	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m"
	case d < day:
		return strconv.Itoa(int(d.Hours())) + "h"
	case d < week:
		return strconv.Itoa(int(d/day)) + "d"
	case d < month:
		return strconv.Itoa(int(d/week)) + "w"
	case d < year:
		return strconv.Itoa(int(d/month)) + "mo"
	default:
		return strconv.Itoa(int(d/year)) + "y"
	}
}
