package config

import (
	"fmt"
	"net"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for inconsistencies. It is called by
// the loaders after defaults are applied.
func Validate(cfg *Config) error {
	if cfg.Engine.RootID == "" {
		return fmt.Errorf("engine.root_id cannot be empty")
	}
	if cfg.Engine.MaxChainPrograms < 0 {
		return fmt.Errorf("engine.max_chain_programs cannot be negative: %d",
			cfg.Engine.MaxChainPrograms)
	}

	if cfg.Manifest.DebounceInterval < 0 {
		return fmt.Errorf("manifest.debounce_interval cannot be negative")
	}
	if cfg.Manifest.Watch && cfg.Manifest.Path == "" {
		return fmt.Errorf("manifest.watch requires manifest.path")
	}

	if cfg.Audit.Enabled {
		if cfg.Audit.SQLitePath == "" {
			return fmt.Errorf("audit.sqlite_path cannot be empty when audit is enabled")
		}
		if cfg.Audit.RetentionDays < 0 {
			return fmt.Errorf("audit.retention_days cannot be negative: %d",
				cfg.Audit.RetentionDays)
		}
		if cfg.Audit.MaxRecords < 0 {
			return fmt.Errorf("audit.max_records cannot be negative: %d",
				cfg.Audit.MaxRecords)
		}
		if cfg.Audit.PruneSchedule != "" {
			if _, err := cron.ParseStandard(cfg.Audit.PruneSchedule); err != nil {
				return fmt.Errorf("invalid audit.prune_schedule %q: %w",
					cfg.Audit.PruneSchedule, err)
			}
		}
	}

	if cfg.Server.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
			return fmt.Errorf("invalid server.listen_address %q: %w",
				cfg.Server.ListenAddress, err)
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid telemetry.logging.level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid telemetry.logging.format %q", cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.Path == "" {
		return fmt.Errorf("telemetry.metrics.path cannot be empty when metrics are enabled")
	}
	return nil
}
