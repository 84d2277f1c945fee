package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var deleteCmd = &cobra.Command{
	Use:     "delete ID[,ID,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Deletes a task together with its subtasks and comments. Prompts for
confirmation in interactive mode.
Multiple IDs can be provided as a comma-separated list (requires --yes).`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if len(ids) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq, "batch delete requires --yes")
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 1 {
		return deleteSingleTask(s, ids[0], yes)
	}
	return runBatch(ids, func(id string) error {
		_, err := executeDelete(s, id)
		return err
	})
}

func deleteSingleTask(s *session, id string, yes bool) error {
	if !yes {
		ctx, cancel := s.ctx()
		t, err := s.resolveTask(ctx, id)
		cancel()
		if err != nil {
			return err
		}
		ok, err := confirm(fmt.Sprintf("Delete task %s %q?", t.ShortID(), t.Title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	t, err := executeDelete(s, id)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status": "deleted",
			"id":     t.ID,
			"title":  t.Title,
		})
	}
	output.Messagef(os.Stdout, "Deleted task %s: %s", t.ShortID(), t.Title)
	return nil
}

// executeDelete resolves id and removes the task.
func executeDelete(s *session, id string) (*task.Task, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	t, err := s.resolveTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteTask(ctx, t.ID); err != nil {
		return nil, err
	}
	s.activity("delete", t.ID, t.Title)
	return t, nil
}

// confirm asks a yes/no question on the terminal. It refuses to guess when
// stdin is not a terminal.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, clierr.New(clierr.ConfirmationReq,
			"cannot prompt for confirmation (not a terminal); use --yes")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}
