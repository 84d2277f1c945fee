// Package config handles board configuration.
package config

import "time"

const (
	// DefaultDir is the board directory name looked up by FindDir.
	DefaultDir = ".trackle"
	// DefaultTasksDir is the default tasks subdirectory name.
	DefaultTasksDir = "tasks"
	// DefaultStatus is the default status for new tasks.
	DefaultStatus = "Backlog"
	// DefaultPriority is the default priority for new tasks.
	DefaultPriority = "Medium"

	// DefaultDragDistance is the mouse activation distance in cells.
	DefaultDragDistance = 1.0
	// DefaultTouchDelay is how long a touch must be held before dragging.
	DefaultTouchDelay = "250ms"
	// DefaultTouchTolerance is how far a held touch may wander in cells.
	DefaultTouchTolerance = 5.0

	// DefaultCacheTTL is the redis cache lifetime for board fetches.
	DefaultCacheTTL = "30s"
	// DefaultStoreTimeout bounds each remote store request.
	DefaultStoreTimeout = "10s"
	// DefaultServerAddr is where `trackle serve` listens.
	DefaultServerAddr = ":8080"

	// ConfigFileName is the name of the config file within the board directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 3
)

// Store backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendRemote = "remote"
)

// Backends lists the accepted store.backend values.
func Backends() []string {
	return []string{BackendFile, BackendRedis, BackendRemote}
}

// defaultDrag returns the drag settings for new and migrated boards.
func defaultDrag() DragConfig {
	return DragConfig{
		Distance:       DefaultDragDistance,
		TouchDelay:     DefaultTouchDelay,
		TouchTolerance: DefaultTouchTolerance,
	}
}

func defaultStore() StoreConfig {
	return StoreConfig{
		Backend:  BackendFile,
		CacheTTL: DefaultCacheTTL,
		Timeout:  DefaultStoreTimeout,
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
