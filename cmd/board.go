package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/logging"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store/filestore"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
	"github.com/twiced-technology-gmbh/trackle/internal/watcher"
)

// pollInterval refreshes --watch output for backends without file events.
const pollInterval = 2 * time.Second

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the sprint board",
	Long: `Prints the board columns for the selected sprint. The sprint is taken
from --sprint, then the config's active_sprint, then the active sprint; with
none of those every task is shown.

--summary prints per-status counts instead, --dashboard the sprint dashboard.
Use --watch to keep the display live-updating. Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolP("watch", "w", false, "live-update the board on changes")
	boardCmd.Flags().String("sprint", "", "sprint id, 'active', 'none' or 'all'")
	boardCmd.Flags().Bool("summary", false, "show per-status and per-priority counts")
	boardCmd.Flags().Bool("dashboard", false, "show the sprint dashboard")
	boardCmd.Flags().String("group-by", "", "group board by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
}

type boardView struct {
	sprint    string
	summary   bool
	dashboard bool
	groupBy   string
}

func runBoard(cmd *cobra.Command, _ []string) error {
	var v boardView
	v.sprint, _ = cmd.Flags().GetString("sprint")
	v.summary, _ = cmd.Flags().GetBool("summary")
	v.dashboard, _ = cmd.Flags().GetBool("dashboard")
	v.groupBy, _ = cmd.Flags().GetString("group-by")
	watch, _ := cmd.Flags().GetBool("watch")

	if v.groupBy != "" && !slices.Contains(board.ValidGroupByFields(), v.groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			v.groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := renderBoard(s, v); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchBoard(s, v)
}

func renderBoard(s *session, v boardView) error {
	ctx, cancel := s.ctx()
	defer cancel()

	sprintID, sp, err := s.boardSprint(ctx, v.sprint)
	if err != nil {
		return err
	}
	tasks, err := s.repo.FetchTasksBySprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	switch {
	case v.groupBy != "":
		names, err := sprintNames(ctx, s)
		if err != nil {
			return err
		}
		return outputGroupedList(tasks, v.groupBy, names)
	case v.dashboard:
		return renderDashboard(ctx, s, tasks, sp)
	case v.summary:
		return renderSummary(s.cfg.Board.Name, tasks)
	}

	state := board.NewState()
	if dropped := state.Load(tasks); dropped > 0 {
		warnf("%d task(s) with an unknown status or duplicate id were skipped", dropped)
	}
	p := state.PartitionView()

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, partitionJSON(p))
	case output.FormatCompact:
		output.BoardCompact(os.Stdout, p)
	default:
		if sp != nil {
			output.Messagef(os.Stdout, "%s  %s", sp.Goal, task.FormatCountdown(sp.Remaining(now())))
		}
		output.BoardColumns(os.Stdout, p)
	}
	return nil
}

// partitionJSON orders the columns for JSON output.
func partitionJSON(p board.Partition) []map[string]any {
	out := make([]map[string]any, 0, len(task.AllStatuses()))
	for _, st := range task.AllStatuses() {
		col := p[st]
		if col == nil {
			col = []task.Task{}
		}
		out = append(out, map[string]any{"status": st, "tasks": col})
	}
	return out
}

func renderSummary(name string, tasks []*task.Task) error {
	summary := board.Summary(name, tasks, now())
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
	default:
		output.OverviewTable(os.Stdout, summary)
	}
	return nil
}

func renderDashboard(ctx context.Context, s *session, tasks []*task.Task, sp *task.Sprint) error {
	standups, err := s.repo.ListStandups(ctx)
	if err != nil {
		return err
	}
	d := board.BuildDashboard(s.cfg.Board.Name, tasks, len(standups), sp, now())
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, d)
	case output.FormatCompact:
		output.DashboardCompact(os.Stdout, d)
	default:
		output.DashboardTable(os.Stdout, d)
	}
	return nil
}

func watchBoard(s *session, v boardView) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redraw := func() {
		clearScreen()
		if err := renderBoard(s, v); err != nil {
			warnf("rendering board: %v", err)
		}
	}

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	if s.cfg.Store.Backend != config.BackendFile {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				redraw()
			}
		}
	}

	w, err := watcher.New(watchPaths(s.cfg), redraw, watcher.WithIgnore(watchIgnore()...))
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close()

	w.Run(ctx, func(watchErr error) {
		warnf("file watcher: %v", watchErr)
	})
	return nil
}

// watchPaths lists the directories a file-backed board changes in.
func watchPaths(cfg *config.Config) []string {
	return []string{cfg.TasksPath(), cfg.Dir()}
}

// watchIgnore lists files the CLI itself writes on every command.
func watchIgnore() []string {
	return []string{filestore.LockFileName, board.ActivityFileName, logging.FileName}
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
