package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultRootID           = "root"
	DefaultMaxChainPrograms = 64

	// Manifest defaults
	DefaultManifestWatch    = false
	DefaultManifestDebounce = 100 * time.Millisecond

	// Audit defaults
	DefaultAuditEnabled       = true
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditMaxOpenConns  = 10
	DefaultAuditBusyTimeout   = 5 * time.Second
	DefaultAuditRetentionDays = 90
	DefaultAuditMaxRecords    = int64(0)
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Server defaults
	DefaultServerEnabled         = true
	DefaultServerListenAddress   = "127.0.0.1:9090"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerIdleTimeout     = 60 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "callisto"
)

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields that default to true are handled by the loader before
// unmarshalling, since a false value is indistinguishable from an omitted
// one after the fact.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.RootID == "" {
		cfg.Engine.RootID = DefaultRootID
	}
	if cfg.Engine.MaxChainPrograms == 0 {
		cfg.Engine.MaxChainPrograms = DefaultMaxChainPrograms
	}

	if cfg.Manifest.DebounceInterval == 0 {
		cfg.Manifest.DebounceInterval = DefaultManifestDebounce
	}

	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.MaxOpenConns == 0 {
		cfg.Audit.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultAuditBusyTimeout
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
