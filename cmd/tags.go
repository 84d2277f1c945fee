package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags in use",
	RunE:  runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	tags := board.Tags(tasks)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, tags)
	}
	output.TagTable(os.Stdout, tags)
	return nil
}
