package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var standupCmd = &cobra.Command{
	Use:   "standup",
	Short: "Record and review daily standups",
}

var standupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a standup",
	Long:  `Records what was done yesterday, what is planned today and any blockers.`,
	RunE:  runStandupAdd,
}

var standupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List standups, newest first",
	RunE:    runStandupList,
}

func init() {
	standupAddCmd.Flags().StringP("yesterday", "y", "", "what was done yesterday (required)")
	standupAddCmd.Flags().StringP("today", "t", "", "what is planned today (required)")
	standupAddCmd.Flags().StringP("blockers", "b", "", "anything in the way")
	standupListCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	standupCmd.AddCommand(standupAddCmd, standupListCmd)
	rootCmd.AddCommand(standupCmd)
}

func runStandupAdd(cmd *cobra.Command, _ []string) error {
	su := &task.Standup{}
	su.Yesterday, _ = cmd.Flags().GetString("yesterday")
	su.Today, _ = cmd.Flags().GetString("today")
	su.Blockers, _ = cmd.Flags().GetString("blockers")
	if err := task.ValidateStandup(su); err != nil {
		return err
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	su.Created = now()
	if err := s.repo.AddStandup(ctx, su); err != nil {
		return err
	}
	s.activity("standup", "", su.Today)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, su)
	}
	output.Messagef(os.Stdout, "Recorded standup %s", task.ShortID(su.ID))
	return nil
}

func runStandupList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	standups, err := s.repo.ListStandups(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(standups) > limit {
		standups = standups[:limit]
	}

	switch outputFormat() {
	case output.FormatJSON:
		if standups == nil {
			standups = []*task.Standup{}
		}
		return output.JSON(os.Stdout, standups)
	case output.FormatCompact:
		output.StandupCompact(os.Stdout, standups)
	default:
		output.StandupTable(os.Stdout, standups)
	}
	return nil
}
