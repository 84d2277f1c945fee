package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/logging"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no trackle board found (run 'trackle init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the board configuration.
type Config struct {
	Version      int            `yaml:"version"`
	Board        BoardConfig    `yaml:"board"`
	TasksDir     string         `yaml:"tasks_dir"`
	Defaults     DefaultsConfig `yaml:"defaults"`
	ActiveSprint string         `yaml:"active_sprint,omitempty"`
	Drag         DragConfig     `yaml:"drag"`
	Store        StoreConfig    `yaml:"store"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
	TUI          TUIConfig      `yaml:"tui,omitempty"`

	// dir is the absolute path to the board directory (not serialized).
	dir string `yaml:"-"`
}

// BoardConfig holds board metadata.
type BoardConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// DefaultsConfig holds default values for new tasks.
type DefaultsConfig struct {
	Status   string `yaml:"status"`
	Priority string `yaml:"priority"`
}

// DragConfig holds pointer activation thresholds.
type DragConfig struct {
	Distance       float64 `yaml:"distance"`
	TouchDelay     string  `yaml:"touch_delay"`
	TouchTolerance float64 `yaml:"touch_tolerance"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	RedisURL  string `yaml:"redis_url,omitempty"`
	CacheTTL  string `yaml:"cache_ttl,omitempty"`
	RemoteURL string `yaml:"remote_url,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}

// ServerConfig configures `trackle serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TUIConfig holds TUI-specific display settings.
type TUIConfig struct {
	BodyLines int `yaml:"body_lines,omitempty"`
}

// Dir returns the absolute path to the board directory.
func (c *Config) Dir() string {
	return c.dir
}

// TasksPath returns the absolute path to the tasks directory.
func (c *Config) TasksPath() string {
	return filepath.Join(c.dir, c.TasksDir)
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// LogPath returns the path of the board's log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.dir, logging.FileName)
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	return &Config{
		Version:  CurrentVersion,
		Board:    BoardConfig{Name: name},
		TasksDir: DefaultTasksDir,
		Defaults: DefaultsConfig{
			Status:   DefaultStatus,
			Priority: DefaultPriority,
		},
		Drag:   defaultDrag(),
		Store:  defaultStore(),
		Server: ServerConfig{Addr: DefaultServerAddr},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// SetDir sets the board directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// TouchDelay returns drag.touch_delay as a duration.
func (c *Config) TouchDelay() time.Duration {
	return parseDuration(c.Drag.TouchDelay, parseDuration(DefaultTouchDelay, 0))
}

// CacheTTL returns store.cache_ttl as a duration. Zero disables the cache.
func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Store.CacheTTL, 0)
}

// StoreTimeout returns store.timeout as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return parseDuration(c.Store.Timeout, parseDuration(DefaultStoreTimeout, 0))
}

// DefaultStatus returns defaults.status as a Status.
func (c *Config) DefaultStatus() task.Status {
	s, ok := task.ParseStatus(c.Defaults.Status)
	if !ok {
		return task.StatusBacklog
	}
	return s
}

// DefaultPriority returns defaults.priority as a Priority.
func (c *Config) DefaultPriority() task.Priority {
	p, ok := task.ParsePriority(c.Defaults.Priority)
	if !ok {
		return task.PriorityMedium
	}
	return p
}

// BodyLines returns the configured number of body preview lines for TUI cards.
func (c *Config) BodyLines() int {
	return c.TUI.BodyLines
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Board.Name == "" {
		return fmt.Errorf("%w: board.name is required", ErrInvalid)
	}
	if c.TasksDir == "" {
		return fmt.Errorf("%w: tasks_dir is required", ErrInvalid)
	}
	if _, ok := task.ParseStatus(c.Defaults.Status); !ok {
		return fmt.Errorf("%w: default status %q is not one of %s",
			ErrInvalid, c.Defaults.Status, strings.Join(task.StatusNames(), ", "))
	}
	if _, ok := task.ParsePriority(c.Defaults.Priority); !ok {
		return fmt.Errorf("%w: default priority %q is not one of %s",
			ErrInvalid, c.Defaults.Priority, strings.Join(task.PriorityNames(), ", "))
	}
	if err := c.validateDrag(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: log.level %q must be debug, info, warn or error", ErrInvalid, c.Log.Level)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return fmt.Errorf("%w: log.format %q must be text or json", ErrInvalid, c.Log.Format)
	}
	const maxBodyLines = 2
	if c.TUI.BodyLines < 0 || c.TUI.BodyLines > maxBodyLines {
		return fmt.Errorf("%w: tui.body_lines must be between 0 and %d", ErrInvalid, maxBodyLines)
	}
	return nil
}

func (c *Config) validateDrag() error {
	if c.Drag.Distance < 0 {
		return fmt.Errorf("%w: drag.distance must be >= 0", ErrInvalid)
	}
	if c.Drag.TouchTolerance < 0 {
		return fmt.Errorf("%w: drag.touch_tolerance must be >= 0", ErrInvalid)
	}
	if err := validDuration("drag.touch_delay", c.Drag.TouchDelay); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if !slices.Contains(Backends(), c.Store.Backend) {
		return fmt.Errorf("%w: store.backend %q must be one of %s",
			ErrInvalid, c.Store.Backend, strings.Join(Backends(), ", "))
	}
	if err := validDuration("store.cache_ttl", c.Store.CacheTTL); err != nil {
		return err
	}
	if err := validDuration("store.timeout", c.Store.Timeout); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: store.redis_url is required for the redis backend", ErrInvalid)
		}
	case BackendRemote:
		u, err := url.Parse(c.Store.RemoteURL)
		if c.Store.RemoteURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: store.remote_url must be an absolute URL for the remote backend", ErrInvalid)
		}
	}
	return nil
}

func validDuration(key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: invalid %s %q: %w", ErrInvalid, key, v, err)
	}
	if d < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, key)
	}
	return nil
}

// Init creates a new board in the given directory with default settings.
// It creates the board directory, tasks subdirectory, and config file.
func Init(dir, name string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.TasksPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads, migrates and validates a config from the given board directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a board directory
// containing config.yml. Returns the absolute path to the board directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the board directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.BoardNotFound,
				"no trackle board found (run 'trackle init' to create one)")
		}
		dir = parent
	}
}
