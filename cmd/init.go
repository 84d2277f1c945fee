package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/store/filestore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new sprint board",
	Long: `Creates a board directory with config.yml. The file backend also gets a
tasks/ subdirectory; the redis and remote backends only keep their settings
and the log file there.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "board name (defaults to current directory name)")
	initCmd.Flags().String("backend", config.BackendFile, "store backend: file, redis or remote")
	initCmd.Flags().String("redis-url", "", "redis URL for the redis backend or the cache")
	initCmd.Flags().String("remote-url", "", "base URL of a trackle server for the remote backend")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.BoardAlreadyExists, "board already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg := config.NewDefault(name)
	cfg.SetDir(absDir)
	cfg.Store.Backend, _ = cmd.Flags().GetString("backend")
	cfg.Store.RedisURL, _ = cmd.Flags().GetString("redis-url")
	cfg.Store.RemoteURL, _ = cmd.Flags().GetString("remote-url")

	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "%v", err)
	}

	const dirMode = 0o750
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return fmt.Errorf("creating board directory: %w", err)
	}
	if cfg.Store.Backend == config.BackendFile {
		if err := filestore.New(absDir, cfg.TasksPath()).Init(); err != nil {
			return err
		}
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":  "initialized",
			"dir":     absDir,
			"name":    name,
			"config":  cfg.ConfigPath(),
			"backend": cfg.Store.Backend,
		})
	}

	output.Messagef(os.Stdout, "Initialized board %q in %s", name, absDir)
	output.Messagef(os.Stdout, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Backend: %s", cfg.Store.Backend)
	if cfg.Store.Backend == config.BackendFile {
		output.Messagef(os.Stdout, "  Tasks:   %s", cfg.TasksPath())
	}
	output.Messagef(os.Stdout, "  Hint:    Start a sprint with: trackle sprint create \"goal\" --days 14")
	return nil
}
