package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/output"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify board configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

// stringKey is a writable key backed by a string field. Range checks are
// left to Config.Validate.
func stringKey(field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *field(c) },
		set:      func(c *config.Config, v string) error { *field(c) = v; return nil },
		writable: true,
	}
}

func floatKey(key string, field func(*config.Config) *float64) configAccessor {
	return configAccessor{
		get: func(c *config.Config) any { return *field(c) },
		set: func(c *config.Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid %s %q: must be a number", key, v)
			}
			*field(c) = f
			return nil
		},
		writable: true,
	}
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version":   {get: func(c *config.Config) any { return c.Version }},
		"tasks_dir": {get: func(c *config.Config) any { return c.TasksDir }},
		"statuses": {get: func(*config.Config) any { return task.StatusNames() }},
		"priorities": {get: func(*config.Config) any { return task.PriorityNames() }},

		"board.name":        stringKey(func(c *config.Config) *string { return &c.Board.Name }),
		"board.description": stringKey(func(c *config.Config) *string { return &c.Board.Description }),
		"defaults.status": {
			get: func(c *config.Config) any { return c.Defaults.Status },
			set: func(c *config.Config, v string) error {
				s, err := task.ResolveStatus(v)
				if err != nil {
					return err
				}
				c.Defaults.Status = string(s)
				return nil
			},
			writable: true,
		},
		"defaults.priority": {
			get: func(c *config.Config) any { return c.Defaults.Priority },
			set: func(c *config.Config, v string) error {
				p, err := task.ResolvePriority(v)
				if err != nil {
					return err
				}
				c.Defaults.Priority = string(p)
				return nil
			},
			writable: true,
		},
		"active_sprint": stringKey(func(c *config.Config) *string { return &c.ActiveSprint }),

		"drag.distance":        floatKey("drag.distance", func(c *config.Config) *float64 { return &c.Drag.Distance }),
		"drag.touch_delay":     stringKey(func(c *config.Config) *string { return &c.Drag.TouchDelay }),
		"drag.touch_tolerance": floatKey("drag.touch_tolerance", func(c *config.Config) *float64 { return &c.Drag.TouchTolerance }),

		"store.backend":    stringKey(func(c *config.Config) *string { return &c.Store.Backend }),
		"store.redis_url":  stringKey(func(c *config.Config) *string { return &c.Store.RedisURL }),
		"store.cache_ttl":  stringKey(func(c *config.Config) *string { return &c.Store.CacheTTL }),
		"store.remote_url": stringKey(func(c *config.Config) *string { return &c.Store.RemoteURL }),
		"store.timeout":    stringKey(func(c *config.Config) *string { return &c.Store.Timeout }),

		"server.addr": stringKey(func(c *config.Config) *string { return &c.Server.Addr }),
		"log.level":   stringKey(func(c *config.Config) *string { return &c.Log.Level }),
		"log.format":  stringKey(func(c *config.Config) *string { return &c.Log.Format }),

		"tui.body_lines": {
			get: func(c *config.Config) any { return c.TUI.BodyLines },
			set: func(c *config.Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid tui.body_lines %q: must be an integer", v)
				}
				c.TUI.BodyLines = n
				return nil
			},
			writable: true,
		},
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"board.name",
		"board.description",
		"tasks_dir",
		"statuses",
		"priorities",
		"defaults.status",
		"defaults.priority",
		"active_sprint",
		"drag.distance",
		"drag.touch_delay",
		"drag.touch_tolerance",
		"store.backend",
		"store.redis_url",
		"store.cache_ttl",
		"store.remote_url",
		"store.timeout",
		"server.addr",
		"log.level",
		"log.format",
		"tui.body_lines",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	for _, key := range allConfigKeys() {
		fmt.Fprintf(os.Stdout, "%-22s %s\n", key, formatConfigValue(accessors[key].get(cfg)))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	acc, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}
	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}
	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	if err := setConfigValue(cfg, acc, key, value); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}
	output.Messagef(os.Stdout, "Set %s = %s", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func lookupConfigKey(key string) (configAccessor, error) {
	acc, ok := configAccessors()[key]
	if !ok {
		return configAccessor{}, clierr.Newf(clierr.InvalidInput, "unknown config key %q", key).
			WithDetails(map[string]any{"key": key, "allowed": allConfigKeys()})
	}
	return acc, nil
}

// setConfigValue applies value and validates the whole config.
func setConfigValue(cfg *config.Config, acc configAccessor, key, value string) error {
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}
	if err := acc.set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "%v", err).
			WithDetails(map[string]any{"key": key, "value": value})
	}
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ", ")
	case string:
		if v == "" {
			return "--"
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
