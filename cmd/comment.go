package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage task comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add TASK TEXT",
	Short: "Add a comment to a task",
	Args:  cobra.ExactArgs(2), //nolint:mnd // task id and text
	RunE:  runCommentAdd,
}

var commentListCmd = &cobra.Command{
	Use:     "list TASK",
	Aliases: []string{"ls"},
	Short:   "List a task's comments",
	Args:    cobra.ExactArgs(1),
	RunE:    runCommentList,
}

var commentEditCmd = &cobra.Command{
	Use:   "edit TASK COMMENT TEXT",
	Short: "Replace the text of a comment",
	Args:  cobra.ExactArgs(3), //nolint:mnd // task id, comment id and text
	RunE:  runCommentEdit,
}

var commentDeleteCmd = &cobra.Command{
	Use:     "delete TASK COMMENT",
	Aliases: []string{"rm"},
	Short:   "Delete a comment",
	Args:    cobra.ExactArgs(2), //nolint:mnd // task id and comment id
	RunE:    runCommentDelete,
}

func init() {
	commentCmd.AddCommand(commentAddCmd, commentListCmd, commentEditCmd, commentDeleteCmd)
	rootCmd.AddCommand(commentCmd)
}

func runCommentAdd(_ *cobra.Command, args []string) error {
	if err := task.ValidateTitle(args[1]); err != nil {
		return err
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	c := &task.Comment{Content: args[1]}
	if err := s.repo.AddComment(ctx, args[0], c); err != nil {
		return err
	}
	s.activity("comment", args[0], "added comment "+task.ShortID(c.ID))

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, c)
	}
	output.Messagef(os.Stdout, "Added comment %s", task.ShortID(c.ID))
	return nil
}

func runCommentList(_ *cobra.Command, args []string) error {
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
		comments := t.Comments
		if comments == nil {
			comments = []task.Comment{}
		}
		return output.JSON(os.Stdout, comments)
	}
	output.CommentList(os.Stdout, t.Comments)
	return nil
}

func runCommentEdit(_ *cobra.Command, args []string) error {
	if err := task.ValidateTitle(args[2]); err != nil {
		return err
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	c := &task.Comment{ID: args[1], Content: args[2]}
	if err := s.repo.UpdateComment(ctx, args[0], c); err != nil {
		return err
	}
	s.activity("comment", args[0], "edited comment "+task.ShortID(c.ID))

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, c)
	}
	output.Messagef(os.Stdout, "Updated comment %s", task.ShortID(c.ID))
	return nil
}

func runCommentDelete(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.repo.DeleteComment(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.activity("comment", args[0], "deleted comment "+args[1])

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "deleted", "id": args[1]})
	}
	output.Messagef(os.Stdout, "Deleted comment %s", args[1])
	return nil
}
