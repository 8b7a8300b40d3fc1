package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/manifest"
	"mercator-hq/callisto/pkg/program"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	manifestPath  string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto daemon",
	Long: `Start the Callisto daemon with the specified configuration.

The daemon builds the scope tree and attachments from the configured
manifest, optionally watches the manifest for changes, and serves health,
metrics and introspection endpoints on the admin address.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Override the manifest location
  callisto run --manifest attachments.yaml

  # Validate config without starting
  callisto run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override admin listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.manifestPath, "manifest", "", "override manifest path")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.manifestPath != "" {
		cfg.Manifest.Path = runFlags.manifestPath
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Install(&cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	var collector *metrics.Collector
	var hm *metrics.HierarchyMetrics
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		hm = collector.Hierarchy
	}

	// Audit
	var recorder audit.Recorder
	if cfg.Audit.Enabled {
		rec, err := audit.NewSQLiteRecorder(&audit.SQLiteConfig{
			Path:         cfg.Audit.SQLitePath,
			MaxOpenConns: cfg.Audit.MaxOpenConns,
			BusyTimeout:  cfg.Audit.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer rec.Close()
		recorder = rec

		pruner := audit.NewPruner(rec, &audit.RetentionConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			MaxRecords:    cfg.Audit.MaxRecords,
			PruneSchedule: cfg.Audit.PruneSchedule,
		})
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
		defer scheduler.Stop()
	}

	// Engine
	engine := hierarchy.NewEngine(&hierarchy.EngineConfig{
		RootID:           hierarchy.NodeID(cfg.Engine.RootID),
		MaxChainPrograms: cfg.Engine.MaxChainPrograms,
	}, recorder, hm, logger)
	defer engine.Close()

	registry := program.NewRegistry(logger)

	// Manifest
	applier := manifest.NewApplier(engine, registry, logger)
	if cfg.Manifest.Path != "" {
		reload := func() error {
			m, err := manifest.Load(cfg.Manifest.Path)
			if err != nil {
				return err
			}
			if err := manifest.RegisterPrograms(m, registry); err != nil {
				return err
			}
			return applier.Apply(m)
		}
		if err := reload(); err != nil {
			return fmt.Errorf("failed to apply manifest: %w", err)
		}

		if cfg.Manifest.Watch {
			watcher, err := manifest.NewWatcher(&manifest.WatcherConfig{
				Path:             cfg.Manifest.Path,
				DebounceInterval: cfg.Manifest.DebounceInterval,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to create manifest watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx, reload); err != nil && ctx.Err() == nil {
					logger.Error("manifest watcher exited", "error", err)
				}
			}()
		}
	}

	// Admin server
	if cfg.Server.Enabled {
		srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, engine, collector)
		return srv.Start(ctx)
	}

	<-ctx.Done()
	return nil
}
