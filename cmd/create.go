package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/date"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a new task with the given title and optional fields.

Title can be provided as a positional argument or via --title flag.
Body/description can be provided via --body or --description flag.
New tasks join the active sprint unless --sprint says otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().String("status", "", "task status (default from config)")
	createCmd.Flags().String("priority", "", "task priority (default from config)")
	createCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	createCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "tag":
			name = "tags"
		case "description":
			name = "body"
		}
		return pflag.NormalizedName(name)
	})
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD, today, tomorrow, +3d)")
	createCmd.Flags().String("estimate", "", "time estimate (e.g. 4h, 2d)")
	createCmd.Flags().String("body", "", "task body/description (markdown)")
	createCmd.Flags().String("sprint", "", "sprint id, 'active' or 'none' (default: active sprint if any)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
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

	t := task.New(title, s.cfg.DefaultStatus(), s.cfg.DefaultPriority(), now())
	if err := applyCreateFlags(cmd, t); err != nil {
		return err
	}

	if sprintArg, _ := cmd.Flags().GetString("sprint"); sprintArg != "" {
		sprintID, _, err := s.resolveSprint(ctx, sprintArg)
		if err != nil {
			return err
		}
		if sprintID != store.AllSprints {
			t.SprintID = sprintID
		}
	} else if sp, err := s.repo.ActiveSprint(ctx); err == nil {
		t.SprintID = sp.ID
	}

	if err := s.repo.CreateTask(ctx, t); err != nil {
		return err
	}
	s.activity("create", t.ID, t.Title)

	return outputCreateResult(t)
}

func outputCreateResult(t *task.Task) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created task %s: %s", t.ShortID(), t.Title)
	if t.File != "" {
		output.Messagef(os.Stdout, "  File: %s", t.File)
	}
	output.Messagef(os.Stdout, "  Status: %s | Priority: %s", t.Status, t.Priority)
	if t.SprintID != "" {
		output.Messagef(os.Stdout, "  Sprint: %s", task.ShortID(t.SprintID))
	}
	if len(t.Tags) > 0 {
		output.Messagef(os.Stdout, "  Tags: %s", strings.Join(t.Tags, ", "))
	}
	return nil
}

// resolveCreateTitle returns the task title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], task.ValidateTitle(args[0])
	case hasFlag:
		return flagTitle, task.ValidateTitle(flagTitle)
	default:
		return "", clierr.New(clierr.InvalidInput, "title is required: provide it as an argument or with --title")
	}
}

func applyCreateFlags(cmd *cobra.Command, t *task.Task) error {
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		st, err := task.ResolveStatus(v)
		if err != nil {
			return err
		}
		t.Status = st
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		p, err := task.ResolvePriority(v)
		if err != nil {
			return err
		}
		t.Priority = p
	}
	if v, _ := cmd.Flags().GetStringSlice("tags"); len(v) > 0 {
		t.Tags = task.NormalizeTags(v)
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		d, err := date.ParseInput(v, now())
		if err != nil {
			return task.ValidateDate("due", v, err)
		}
		t.Due = &d
	}
	if v, _ := cmd.Flags().GetString("estimate"); v != "" {
		t.Estimate = v
	}
	if v, _ := cmd.Flags().GetString("body"); v != "" {
		t.Description = v
	}
	return nil
}
