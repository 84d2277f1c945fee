package cmd

import (
	"context"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long:    `Lists tasks with optional filtering, sorting, and output format control.`,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().StringSlice("exclude-status", nil, "hide tasks in these statuses")
	listCmd.Flags().StringSlice("priority", nil, "filter by priority (comma-separated)")
	listCmd.Flags().String("tag", "", "filter by tag")
	listCmd.Flags().String("sprint", "", "filter by sprint id, 'active' or 'none'")
	listCmd.Flags().Bool("overdue", false, "show only unfinished tasks past their due date")
	listCmd.Flags().String("sort", "created", "sort field ("+strings.Join(board.SortFields(), ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().StringP("search", "s", "", "search tasks by title, description, or tags (case-insensitive)")
	listCmd.Flags().String("group-by", "", "group results by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	statuses, _ := cmd.Flags().GetStringSlice("status")
	excluded, _ := cmd.Flags().GetStringSlice("exclude-status")
	priorities, _ := cmd.Flags().GetStringSlice("priority")
	tag, _ := cmd.Flags().GetString("tag")
	sprintArg, _ := cmd.Flags().GetString("sprint")
	overdue, _ := cmd.Flags().GetBool("overdue")
	sortBy, _ := cmd.Flags().GetString("sort")
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")
	groupBy, _ := cmd.Flags().GetString("group-by")

	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}
	if !slices.Contains(board.SortFields(), sortBy) {
		return clierr.Newf(clierr.InvalidInput, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(board.SortFields(), ", "))
	}

	filter := board.FilterOptions{
		Tag:     tag,
		Search:  search,
		Overdue: overdue,
		Now:     now(),
	}
	var err error
	if filter.Statuses, err = resolveStatuses(statuses); err != nil {
		return err
	}
	if filter.ExcludeStatuses, err = resolveStatuses(excluded); err != nil {
		return err
	}
	for _, p := range priorities {
		pr, err := task.ResolvePriority(p)
		if err != nil {
			return err
		}
		filter.Priorities = append(filter.Priorities, pr)
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	if sprintArg != "" {
		id, _, err := s.resolveSprint(ctx, sprintArg)
		if err != nil {
			return err
		}
		switch id {
		case store.AllSprints:
		case store.Unassigned:
			filter.Unassigned = true
		default:
			filter.SprintID = id
		}
	}

	all, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	tasks := board.List(all, board.ListOptions{
		Filter:  filter,
		SortBy:  sortBy,
		Reverse: reverse,
		Limit:   limit,
	})

	if groupBy != "" {
		names, err := sprintNames(ctx, s)
		if err != nil {
			return err
		}
		return outputGroupedList(tasks, groupBy, names)
	}

	return outputTaskList(tasks)
}

// resolveStatuses parses status flag values.
func resolveStatuses(in []string) ([]task.Status, error) {
	var out []task.Status
	for _, v := range in {
		st, err := task.ResolveStatus(v)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// sprintNames maps sprint ids to their goals for grouped output.
func sprintNames(ctx context.Context, s *session) (map[string]string, error) {
	sprints, err := s.repo.ListSprints(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(sprints))
	for _, sp := range sprints {
		names[sp.ID] = sp.Goal
	}
	return names, nil
}

func outputGroupedList(tasks []*task.Task, groupBy string, names map[string]string) error {
	grouped := board.GroupBy(tasks, groupBy, names)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, grouped)
	}
	output.GroupedTable(os.Stdout, grouped)
	return nil
}

func outputTaskList(tasks []*task.Task) error {
	format := outputFormat()
	if format == output.FormatJSON {
		if tasks == nil {
			tasks = []*task.Task{}
		}
		return output.JSON(os.Stdout, tasks)
	}
	if format == output.FormatCompact {
		output.TaskCompact(os.Stdout, tasks)
		return nil
	}

	output.TaskTable(os.Stdout, tasks)
	return nil
}
