package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of an existing task. Only specified fields are changed.
Multiple IDs can be provided as a comma-separated list.

Status is not editable here; use 'trackle move' so the transition is validated.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	registerEditFlags(editCmd)
	rootCmd.AddCommand(editCmd)
}

func registerEditFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("priority", "", "new priority")
	cmd.Flags().StringSlice("add-tag", nil, "add tags")
	cmd.Flags().StringSlice("remove-tag", nil, "remove tags")
	cmd.Flags().String("due", "", "new due date (YYYY-MM-DD, today, tomorrow, +3d)")
	cmd.Flags().Bool("clear-due", false, "clear due date")
	cmd.Flags().String("estimate", "", "new time estimate")
	cmd.Flags().String("body", "", "new description (replaces entire description)")
	cmd.Flags().StringP("append-body", "a", "", "append text to the description")
	cmd.Flags().BoolP("timestamp", "t", false, "prefix a timestamp line when appending")
	cmd.Flags().String("sprint", "", "move the task into a sprint (id or 'active')")
	cmd.Flags().Bool("clear-sprint", false, "move the task back to the backlog")
}

func runEdit(cmd *cobra.Command, args []string) error {
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
		t, err := executeEdit(s, ids[0], cmd)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated task %s: %s", t.ShortID(), t.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(s, id, cmd)
		return err
	})
}

// executeEdit fetches, changes and saves one task.
func executeEdit(s *session, id string, cmd *cobra.Command) (*task.Task, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	t, err := s.resolveTask(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := applyEditFlags(cmd, t, now())
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("sprint"); v != "" {
		sprintID, _, err := s.resolveSprint(ctx, v)
		if err != nil {
			return nil, err
		}
		if sprintID == store.AllSprints {
			return nil, clierr.New(clierr.InvalidInput, "--sprint needs a single sprint")
		}
		if t.SprintID != sprintID {
			t.SprintID = sprintID
			changed = true
		}
	}
	if clearSprint, _ := cmd.Flags().GetBool("clear-sprint"); clearSprint && t.SprintID != "" {
		t.SprintID = store.Unassigned
		changed = true
	}

	if !changed {
		return nil, clierr.New(clierr.NoChanges, "no changes specified")
	}

	t.Updated = now()
	if err := s.repo.SaveTask(ctx, t); err != nil {
		return nil, err
	}
	s.activity("edit", t.ID, t.Title)
	return t, nil
}

// applyEditFlags applies the field flags to t and reports whether anything
// changed.
func applyEditFlags(cmd *cobra.Command, t *task.Task, at time.Time) (bool, error) {
	changed := false

	if v, _ := cmd.Flags().GetString("title"); v != "" {
		if err := task.ValidateTitle(v); err != nil {
			return false, err
		}
		t.Title = v
		changed = true
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		p, err := task.ResolvePriority(v)
		if err != nil {
			return false, err
		}
		t.Priority = p
		changed = true
	}
	if v, _ := cmd.Flags().GetString("estimate"); v != "" {
		t.Estimate = v
		changed = true
	}

	bodySet := cmd.Flags().Changed("body")
	appendSet := cmd.Flags().Changed("append-body")
	if bodySet && appendSet {
		return false, clierr.New(clierr.InvalidInput, "cannot use --body and --append-body together")
	}
	if bodySet {
		t.Description, _ = cmd.Flags().GetString("body")
		changed = true
	}
	if appendSet {
		v, _ := cmd.Flags().GetString("append-body")
		ts, _ := cmd.Flags().GetBool("timestamp")
		var stamp *time.Time
		if ts {
			stamp = &at
		}
		t.Description = appendBody(t.Description, v, stamp)
		changed = true
	}

	if v, _ := cmd.Flags().GetStringSlice("add-tag"); len(v) > 0 {
		t.Tags = appendUnique(t.Tags, task.NormalizeTags(v)...)
		changed = true
	}
	if v, _ := cmd.Flags().GetStringSlice("remove-tag"); len(v) > 0 {
		t.Tags = removeAll(t.Tags, task.NormalizeTags(v)...)
		changed = true
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		d, err := date.ParseInput(v, at)
		if err != nil {
			return false, task.ValidateDate("due", v, err)
		}
		t.Due = &d
		changed = true
	}
	if clearDue, _ := cmd.Flags().GetBool("clear-due"); clearDue {
		t.Due = nil
		changed = true
	}

	return changed, nil
}

func appendUnique(slice []string, items ...string) []string {
	seen := make(map[string]bool, len(slice))
	for _, s := range slice {
		seen[s] = true
	}
	for _, item := range items {
		if !seen[item] {
			slice = append(slice, item)
			seen[item] = true
		}
	}
	return slice
}

func removeAll(slice []string, items ...string) []string {
	remove := make(map[string]bool, len(items))
	for _, item := range items {
		remove[item] = true
	}
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if !remove[s] {
			result = append(result, s)
		}
	}
	return result
}

// appendBody appends text to the description, optionally under a timestamp
// line.
func appendBody(existing, text string, stamp *time.Time) string {
	var b strings.Builder

	if existing != "" {
		b.WriteString(strings.TrimRight(existing, "\n"))
		b.WriteString("\n\n")
	}
	if stamp != nil {
		b.WriteString(stamp.Format("[[2006-01-02]] Mon 15:04"))
		b.WriteByte('\n')
	}
	b.WriteString(text)

	return b.String()
}
