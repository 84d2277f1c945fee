package config

import "fmt"

// migrate upgrades a config from its current version to CurrentVersion.
// Each migration function transforms the config one version forward.
func migrate(cfg *Config) error {
	if cfg.Version == CurrentVersion {
		return nil
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf(
			"%w: config version %d is newer than supported version %d (upgrade trackle)",
			ErrInvalid, cfg.Version, CurrentVersion,
		)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	for cfg.Version < CurrentVersion {
		fn, ok := migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("migrating config from v%d: %w", cfg.Version, err)
		}
	}

	return nil
}

// migrations maps each version to the function that migrates it to the next version.
// The migration function must increment cfg.Version after a successful migration.
var migrations = map[int]func(*Config) error{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

// migrateV1ToV2 adds the drag section.
func migrateV1ToV2(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	def := defaultDrag()
	if cfg.Drag.Distance == 0 {
		cfg.Drag.Distance = def.Distance
	}
	if cfg.Drag.TouchDelay == "" {
		cfg.Drag.TouchDelay = def.TouchDelay
	}
	if cfg.Drag.TouchTolerance == 0 {
		cfg.Drag.TouchTolerance = def.TouchTolerance
	}
	cfg.Version = 2
	return nil
}

// migrateV2ToV3 adds the store, server and log sections.
func migrateV2ToV3(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	def := defaultStore()
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Backend
	}
	if cfg.Store.CacheTTL == "" {
		cfg.Store.CacheTTL = def.CacheTTL
	}
	if cfg.Store.Timeout == "" {
		cfg.Store.Timeout = def.Timeout
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	cfg.Version = 3
	return nil
}
