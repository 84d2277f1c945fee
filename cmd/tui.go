package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/drag"
	"github.com/twiced-technology-gmbh/trackle/internal/tui"
	"github.com/twiced-technology-gmbh/trackle/internal/watcher"
)

func init() {
	rootCmd.Flags().String("sprint", "", "sprint to open: id, 'active', 'none' or 'all'")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	sprintArg, _ := cmd.Flags().GetString("sprint")
	ctx, cancel := s.ctx()
	sprintID, sp, err := s.boardSprint(ctx, sprintArg)
	cancel()
	if err != nil {
		return err
	}

	model := tui.NewBoard(tui.Options{
		Name:     s.cfg.Board.Name,
		Store:    s.repo,
		SprintID: sprintID,
		Sprint:   sp,
		Drag: drag.Config{
			Distance:  s.cfg.Drag.Distance,
			Delay:     s.cfg.TouchDelay(),
			Tolerance: s.cfg.Drag.TouchTolerance,
		},
		BodyLines: s.cfg.BodyLines(),
		Timeout:   s.cfg.StoreTimeout(),
		Log:       s.log,
	})
	defer model.Close()
	s.log.WithField("sprint", sprintID).Info("opening board")

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())

	watchCtx, stop := context.WithCancel(context.Background())
	defer stop()
	if s.cfg.Store.Backend == config.BackendFile {
		go startTUIWatcher(watchCtx, s, p)
	}

	_, err = p.Run()
	return err
}

// startTUIWatcher reloads the board when task files change on disk.
func startTUIWatcher(ctx context.Context, s *session, p *tea.Program) {
	w, err := watcher.New(watchPaths(s.cfg), func() {
		p.Send(tui.ReloadMsg{})
	}, watcher.WithIgnore(watchIgnore()...))
	if err != nil {
		s.log.WithError(err).Warn("live reload disabled")
		return
	}
	defer w.Close()
	w.Run(ctx, func(err error) {
		s.log.WithError(err).Warn("file watcher")
	})
}
