package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const (
	defaultSprintDays = 14
	hoursPerDay       = 24
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Manage sprints",
	Long: `Sprints are time-boxed iterations with a goal. At most one sprint is
active; the board and new tasks default to it.`,
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create GOAL",
	Short: "Create a sprint",
	Args:  cobra.ExactArgs(1),
	RunE:  runSprintCreate,
}

var sprintListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sprints",
	RunE:    runSprintList,
}

var sprintShowCmd = &cobra.Command{
	Use:   "show [ID]",
	Short: "Show a sprint and its tasks (default: active sprint)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSprintShow,
}

var sprintActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Make a sprint the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSprintActivate,
}

var sprintAssignCmd = &cobra.Command{
	Use:   "assign SPRINT TASK[,TASK,...]",
	Short: "Add tasks to a sprint",
	Args:  cobra.ExactArgs(2), //nolint:mnd // sprint and task ids
	RunE:  runSprintAssign,
}

var sprintUnassignCmd = &cobra.Command{
	Use:   "unassign TASK[,TASK,...]",
	Short: "Move tasks back to the backlog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSprintUnassign,
}

var sprintTimerCmd = &cobra.Command{
	Use:   "timer [ID]",
	Short: "Show the time left in a sprint (default: active sprint)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSprintTimer,
}

func init() {
	sprintCreateCmd.Flags().String("start", "", "start date (default: now)")
	sprintCreateCmd.Flags().String("end", "", "last day of the sprint")
	sprintCreateCmd.Flags().Int("days", defaultSprintDays, "sprint length in days when --end is not given")
	sprintCreateCmd.Flags().Bool("activate", false, "make the new sprint active")
	sprintTimerCmd.Flags().BoolP("watch", "w", false, "keep counting down until Ctrl+C")

	sprintCmd.AddCommand(sprintCreateCmd, sprintListCmd, sprintShowCmd, sprintActivateCmd,
		sprintAssignCmd, sprintUnassignCmd, sprintTimerCmd)
	rootCmd.AddCommand(sprintCmd)
}

func runSprintCreate(cmd *cobra.Command, args []string) error {
	startArg, _ := cmd.Flags().GetString("start")
	endArg, _ := cmd.Flags().GetString("end")
	days, _ := cmd.Flags().GetInt("days")
	activate, _ := cmd.Flags().GetBool("activate")

	start, end, err := sprintWindow(now(), startArg, endArg, days)
	if err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	sp := &task.Sprint{Goal: args[0], Start: start, End: end, Active: activate}
	if err := s.repo.SaveSprint(ctx, sp); err != nil {
		return err
	}
	s.activity("sprint-create", sp.ID, sp.Goal)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, sp)
	}
	output.Messagef(os.Stdout, "Created sprint %s: %s (%s to %s)", sp.ShortID(), sp.Goal,
		sp.Start.Format("2006-01-02"), sp.End.Format("2006-01-02"))
	return nil
}

// sprintWindow resolves the sprint start and end. An --end date includes
// that whole day.
func sprintWindow(at time.Time, startArg, endArg string, days int) (time.Time, time.Time, error) {
	start := at
	if startArg != "" {
		d, err := date.ParseInput(startArg, at)
		if err != nil {
			return time.Time{}, time.Time{}, task.ValidateDate("start", startArg, err)
		}
		start = localMidnight(d)
	}

	var end time.Time
	switch {
	case endArg != "":
		d, err := date.ParseInput(endArg, at)
		if err != nil {
			return time.Time{}, time.Time{}, task.ValidateDate("end", endArg, err)
		}
		end = localMidnight(d.AddDays(1))
	case days > 0:
		end = start.Add(time.Duration(days) * hoursPerDay * time.Hour)
	default:
		return time.Time{}, time.Time{}, clierr.New(clierr.InvalidInput, "--days must be positive")
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, clierr.New(clierr.InvalidInput, "sprint end must be after its start")
	}
	return start, end, nil
}

func localMidnight(d date.Date) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}

func runSprintList(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	sprints, err := s.repo.ListSprints(ctx)
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		if sprints == nil {
			sprints = []*task.Sprint{}
		}
		return output.JSON(os.Stdout, sprints)
	case output.FormatCompact:
		output.SprintCompact(os.Stdout, sprints, now())
	default:
		output.SprintTable(os.Stdout, sprints, now())
	}
	return nil
}

// sprintOrActive returns the sprint named by args, or the active sprint.
func sprintOrActive(ctx context.Context, s *session, args []string) (*task.Sprint, error) {
	if len(args) == 0 {
		return s.repo.ActiveSprint(ctx)
	}
	return s.repo.GetSprint(ctx, args[0])
}

func runSprintShow(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	sp, err := sprintOrActive(ctx, s, args)
	if err != nil {
		return err
	}
	tasks, err := s.repo.FetchTasksBySprint(ctx, sp.ID)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		if tasks == nil {
			tasks = []*task.Task{}
		}
		return output.JSON(os.Stdout, map[string]any{
			"sprint":    sp,
			"remaining": task.FormatCountdown(sp.Remaining(now())),
			"tasks":     tasks,
		})
	}
	output.SprintDetail(os.Stdout, sp, tasks, now())
	return nil
}

func runSprintActivate(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	sp, err := s.repo.GetSprint(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.repo.ActivateSprint(ctx, sp.ID); err != nil {
		return err
	}
	sp.Active = true
	s.activity("sprint-activate", sp.ID, sp.Goal)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, sp)
	}
	output.Messagef(os.Stdout, "Activated sprint %s: %s", sp.ShortID(), sp.Goal)
	return nil
}

func runSprintAssign(_ *cobra.Command, args []string) error {
	ids, err := parseIDs(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx()
	sprintID, _, err := s.resolveSprint(ctx, args[0])
	cancel()
	if err != nil {
		return err
	}
	if sprintID == store.AllSprints {
		return clierr.New(clierr.InvalidInput, "assign needs a single sprint")
	}

	return runBatch(ids, func(id string) error {
		return setSprint(s, id, sprintID)
	})
}

func runSprintUnassign(_ *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	return runBatch(ids, func(id string) error {
		return setSprint(s, id, store.Unassigned)
	})
}

// setSprint moves one task into sprintID. Setting the current sprint again
// succeeds without a write.
func setSprint(s *session, id, sprintID string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	t, err := s.resolveTask(ctx, id)
	if err != nil {
		return err
	}
	if t.SprintID == sprintID {
		return nil
	}
	t.SprintID = sprintID
	t.Updated = now()
	if err := s.repo.SaveTask(ctx, t); err != nil {
		return err
	}
	detail := "backlog"
	if sprintID != store.Unassigned {
		detail = "sprint " + task.ShortID(sprintID)
	}
	s.activity("assign", t.ID, detail)
	return nil
}

func runSprintTimer(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx()
	sp, err := sprintOrActive(ctx, s, args)
	cancel()
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		left := sp.Remaining(now())
		return output.JSON(os.Stdout, map[string]any{
			"id":        sp.ID,
			"goal":      sp.Goal,
			"end":       sp.End,
			"seconds":   int64(left / time.Second),
			"remaining": task.FormatCountdown(left),
			"over":      sp.Over(now()),
		})
	}

	if !watch {
		output.Messagef(os.Stdout, "%s  %s", sp.Goal, task.FormatCountdown(sp.Remaining(now())))
		return nil
	}
	return watchTimer(sp)
}

// watchTimer redraws the countdown every second until the sprint is over
// or the user interrupts.
func watchTimer(sp *task.Sprint) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		left := sp.Remaining(now())
		fmt.Fprintf(os.Stdout, "\r\033[K%s  %s", sp.Goal, task.FormatCountdown(left))
		if left <= 0 {
			fmt.Fprintln(os.Stdout)
			return nil
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout)
			return nil
		case <-ticker.C:
		}
	}
}
