package config

import "time"

// Config is the root configuration structure for Callisto. It contains all
// configuration sections for the hierarchy engine, the attachment manifest,
// audit storage, the admin server and telemetry.
type Config struct {
	// Engine contains hierarchy engine configuration: root node identity
	// and chain limits.
	Engine EngineConfig `yaml:"engine"`

	// Manifest contains configuration for the declarative attachment
	// manifest: file location and watch mode.
	Manifest ManifestConfig `yaml:"manifest"`

	// Audit contains configuration for the control-plane audit log.
	Audit AuditConfig `yaml:"audit"`

	// Server contains configuration for the admin/observability HTTP
	// server.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains observability configuration: logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains configuration for the hierarchy engine.
type EngineConfig struct {
	// RootID is the identifier of the root scope node.
	// Default: "root"
	RootID string `yaml:"root_id"`

	// MaxChainPrograms caps the number of programs in one effective
	// chain; attach operations that would exceed it are rejected.
	// Zero disables the cap.
	// Default: 64
	MaxChainPrograms int `yaml:"max_chain_programs"`
}

// ManifestConfig contains configuration for the attachment manifest.
type ManifestConfig struct {
	// Path is the manifest file location. Empty disables manifest
	// loading; the tree is then managed programmatically.
	Path string `yaml:"path"`

	// Watch re-applies the manifest when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is how long to coalesce file events before
	// re-applying.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// AuditConfig contains configuration for the audit log.
type AuditConfig struct {
	// Enabled controls whether control-plane operations are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the audit database file path.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long to wait for database locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how long audit events are kept. Zero disables
	// age-based pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the number of stored events, oldest trimmed first.
	// Zero disables the cap.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduled pruning. Empty
	// disables the scheduler.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// Enabled controls whether the admin server is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the exposition endpoint path on the admin server.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "callisto"
	Namespace string `yaml:"namespace"`
}
