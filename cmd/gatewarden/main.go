package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/pkg/adminapi"
	"github.com/gatewarden/gatewarden/pkg/iam"
	"github.com/gatewarden/gatewarden/pkg/logging"
	"github.com/gatewarden/gatewarden/pkg/snapshot"
	"github.com/gatewarden/gatewarden/pkg/status"
)

var (
	version     = "dev" // Will be set during build
	cfgFile     string
	showVersion bool
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "gatewarden",
	Short:         "Gatewarden access-control daemon",
	SilenceUsage:  false,
	SilenceErrors: true,
	Long: `Gatewarden access-control daemon - in-memory authorization resolution

The daemon keeps the whole access-control graph (resources, the everyone
baseline, roles, groups, users) in memory, answers authorization and trace
queries over a JSON API, loads a snapshot once at startup, and flushes a
snapshot exactly once at shutdown.

Configuration file must be in JSON format with the following structure:
{
    "listen_addr": "127.0.0.1",
    "port": 8100,
    "demo_setup": false,
    "snapshot_backend": "file",
    "snapshot_path": "data/snapshot.json",
    "badger_dir": "data/badger",
    "flush_timeout": 10,
    "status_dir": "run",
    "app_log_path": "log/gatewarden.log",
    "audit_log_path": "log/gatewarden-audit.log"
}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("Gatewarden %s\n", version)
			return nil
		}

		if cfgFile == "" {
			return fmt.Errorf("config file is required (use --config)")
		}

		// Convert to absolute path if needed
		if !filepath.IsAbs(cfgFile) {
			var err error
			cfgFile, err = filepath.Abs(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to get absolute path: %v", err)
			}
		}

		// Load configuration
		var config Config
		if err := LoadConfig(cfgFile, &config); err != nil {
			return fmt.Errorf("failed to load config: %v", err)
		}

		// Initialize logging
		level := logging.LogLevelInfo
		if config.Debug {
			level = logging.LogLevelDebug
		}
		if err := logging.Initialize(config.AppLogPath, config.AuditLogPath, level); err != nil {
			return fmt.Errorf("failed to initialize logging: %v", err)
		}

		return run(&config)
	},
}

func run(config *Config) error {
	startTime := time.Now()

	// Open the snapshot store
	store, closeStore, err := openStore(config)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %v", err)
	}
	defer closeStore()

	sys := iam.NewSystem()
	gateway := snapshot.NewGateway(sys, store)

	// Seed demo data or load the stored snapshot, never both. A load
	// failure is fatal: there is no safe default graph to run with.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), time.Duration(config.FlushTimeout)*time.Second)
	defer cancelLoad()
	if config.DemoSetup {
		if err := seedDemo(sys); err != nil {
			return fmt.Errorf("failed to seed demo data: %v", err)
		}
		logging.App.Info("Seeded demo graph")
	} else if err := gateway.Load(loadCtx); err != nil {
		return fmt.Errorf("failed to load snapshot: %v", err)
	}

	// Status files are optional
	var statusWriter *status.Writer
	if config.StatusDir != "" {
		statusWriter, err = status.New(config.StatusDir, version)
		if err != nil {
			return fmt.Errorf("failed to create status writer: %v", err)
		}
		if err := statusWriter.WriteStartFile(); err != nil {
			logging.App.Warn("Failed to write start status file", "error", err)
		}
	}

	api := adminapi.New(sys)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.ListenAddr, config.Port),
		Handler: api.Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	fmt.Printf("Starting Gatewarden %s on %s\n", version, server.Addr)
	logging.App.Info("Server started", "addr", server.Addr, "backend", config.SnapshotBackend)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var reason string
	var runErr error
	select {
	case sig := <-sigCh:
		reason = sig.String()
		logging.App.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		reason = "server error"
		runErr = err
		logging.App.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.FlushTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.App.Warn("Server shutdown", "error", err)
	}

	// Flush the snapshot exactly once. A failed flush is logged and
	// surfaced through the status file, never retried; data entered since
	// the last successful save may be lost, but exit must not hang on a
	// store that cannot succeed.
	flushStart := time.Now()
	flushErr := gateway.Save(shutdownCtx)
	if flushErr != nil {
		logging.App.Error("Snapshot flush failed, possible data loss", "error", flushErr)
	}
	if statusWriter != nil {
		if err := statusWriter.WriteFlushFile(flushErr, time.Since(flushStart)); err != nil {
			logging.App.Warn("Failed to write flush status file", "error", err)
		}
		if err := statusWriter.WriteStopFile(reason, time.Since(startTime)); err != nil {
			logging.App.Warn("Failed to write stop status file", "error", err)
		}
	}

	logging.App.Info("Shutdown complete", "reason", reason, "uptime", time.Since(startTime))
	return runErr
}

// openStore builds the configured snapshot store and returns a close
// function for whatever it holds open.
func openStore(config *Config) (snapshot.Store, func(), error) {
	switch config.SnapshotBackend {
	case BackendBadger:
		opts := badger.DefaultOptions(config.BadgerDir).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger database: %w", err)
		}
		return snapshot.NewBadgerStore(db), func() {
			if err := db.Close(); err != nil {
				logging.App.Warn("Failed to close badger database", "error", err)
			}
		}, nil
	default:
		return snapshot.NewFileStore(afero.NewOsFs(), config.SnapshotPath), func() {}, nil
	}
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file (required)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")
}
