package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var subtaskCmd = &cobra.Command{
	Use:     "subtask",
	Aliases: []string{"sub"},
	Short:   "Manage task checklists",
}

var subtaskAddCmd = &cobra.Command{
	Use:   "add TASK TITLE",
	Short: "Add a subtask",
	Args:  cobra.ExactArgs(2), //nolint:mnd // task id and title
	RunE:  runSubtaskAdd,
}

var subtaskListCmd = &cobra.Command{
	Use:     "list TASK",
	Aliases: []string{"ls"},
	Short:   "List a task's subtasks",
	Args:    cobra.ExactArgs(1),
	RunE:    runSubtaskList,
}

var subtaskDoneCmd = &cobra.Command{
	Use:   "done TASK SUBTASK",
	Short: "Check off a subtask",
	Args:  cobra.ExactArgs(2), //nolint:mnd // task id and subtask id
	RunE: func(_ *cobra.Command, args []string) error {
		return setSubtaskDone(args[0], args[1], true)
	},
}

var subtaskUndoneCmd = &cobra.Command{
	Use:   "undone TASK SUBTASK",
	Short: "Uncheck a subtask",
	Args:  cobra.ExactArgs(2), //nolint:mnd // task id and subtask id
	RunE: func(_ *cobra.Command, args []string) error {
		return setSubtaskDone(args[0], args[1], false)
	},
}

var subtaskDeleteCmd = &cobra.Command{
	Use:     "delete TASK SUBTASK",
	Aliases: []string{"rm"},
	Short:   "Delete a subtask",
	Args:    cobra.ExactArgs(2), //nolint:mnd // task id and subtask id
	RunE:    runSubtaskDelete,
}

func init() {
	subtaskAddCmd.Flags().String("due", "", "due date (YYYY-MM-DD, today, tomorrow, +3d)")
	subtaskCmd.AddCommand(subtaskAddCmd, subtaskListCmd, subtaskDoneCmd, subtaskUndoneCmd, subtaskDeleteCmd)
	rootCmd.AddCommand(subtaskCmd)
}

func runSubtaskAdd(cmd *cobra.Command, args []string) error {
	sub := &task.Subtask{Title: args[1]}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		d, err := date.ParseInput(v, now())
		if err != nil {
			return task.ValidateDate("due", v, err)
		}
		sub.Due = &d
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.repo.AddSubtask(ctx, args[0], sub); err != nil {
		return err
	}
	s.activity("subtask", args[0], "added "+sub.Title)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, sub)
	}
	output.Messagef(os.Stdout, "Added subtask %s: %s", task.ShortID(sub.ID), sub.Title)
	return nil
}

func runSubtaskList(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	t, err := s.resolveTask(ctx, args[0])
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		subs := t.Subtasks
		if subs == nil {
			subs = []task.Subtask{}
		}
		return output.JSON(os.Stdout, subs)
	}
	output.SubtaskList(os.Stdout, t.Subtasks)
	return nil
}

func setSubtaskDone(taskID, subtaskID string, done bool) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.repo.SetSubtaskDone(ctx, taskID, subtaskID, done); err != nil {
		return err
	}
	verb := "reopened"
	if done {
		verb = "checked"
	}
	s.activity("subtask", taskID, verb+" "+subtaskID)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"id": subtaskID, "done": done})
	}
	output.Messagef(os.Stdout, "Subtask %s %s", subtaskID, verb)
	return nil
}

func runSubtaskDelete(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.repo.DeleteSubtask(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.activity("subtask", args[0], "deleted "+args[1])

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "deleted", "id": args[1]})
	}
	output.Messagef(os.Stdout, "Deleted subtask %s", args[1])
	return nil
}
