package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move ID[,ID,...] [STATUS]",
	Short: "Move a task to a different status",
	Long: `Changes the status of a task. Provide the new status directly,
or use --next/--prev to move along the column order
(Backlog, To Do, In Progress, Done).
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runMove,
}

func init() {
	moveCmd.Flags().Bool("next", false, "move to next status")
	moveCmd.Flags().Bool("prev", false, "move to previous status")
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 1 {
		t, from, err := executeMove(s, ids[0], cmd, args)
		if err != nil {
			return err
		}
		if from == "" {
			return outputMoveResult(t, false)
		}
		if outputFormat() == output.FormatJSON {
			return outputMoveResult(t, true)
		}
		output.Messagef(os.Stdout, "Moved task %s: %s -> %s", t.ShortID(), from, t.Status)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, _, err := executeMove(s, id, cmd, args)
		return err
	})
}

// moveResult wraps a task with a changed flag for JSON output.
type moveResult struct {
	*task.Task
	Changed bool `json:"changed"`
}

// executeMove resolves the target status and commits the transition through
// a single-task board. If the task is already there, from is empty and the
// task is returned unchanged.
func executeMove(s *session, id string, cmd *cobra.Command, args []string) (*task.Task, task.Status, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	t, err := s.resolveTask(ctx, id)
	if err != nil {
		return nil, "", err
	}

	to, err := resolveTargetStatus(cmd, args, t)
	if err != nil {
		return nil, "", err
	}
	if t.Status == to {
		return t, "", nil
	}

	state := board.NewState()
	state.Load([]*task.Task{t})
	rec := board.NewReconciler(state, s.repo, s.log)
	from := t.Status
	if err := rec.Commit(ctx, board.Request{TaskID: t.ID, From: from, To: to}); err != nil {
		return nil, "", err
	}

	t.SetStatus(to, now())
	s.activity("move", t.ID, string(from)+" -> "+string(to))
	return t, from, nil
}

func resolveTargetStatus(cmd *cobra.Command, args []string, t *task.Task) (task.Status, error) {
	next, _ := cmd.Flags().GetBool("next")
	prev, _ := cmd.Flags().GetBool("prev")

	switch {
	case len(args) == 2: //nolint:mnd // positional arg
		return task.ResolveStatus(args[1])
	case next:
		s, ok := t.Status.Next()
		if !ok {
			return "", task.ValidateBoundaryError(t.ID, t.Status, "last")
		}
		return s, nil
	case prev:
		s, ok := t.Status.Prev()
		if !ok {
			return "", task.ValidateBoundaryError(t.ID, t.Status, "first")
		}
		return s, nil
	default:
		return "", clierr.New(clierr.InvalidInput, "provide a target status or use --next/--prev")
	}
}

func outputMoveResult(t *task.Task, changed bool) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, moveResult{Task: t, Changed: changed})
	}
	if !changed {
		output.Messagef(os.Stdout, "Task %s is already at %s", t.ShortID(), t.Status)
	}
	return nil
}
