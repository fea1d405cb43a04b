package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot store backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config holds the daemon configuration
type Config struct {
	// Core server settings
	ListenAddr string `json:"listen_addr"`
	Port       int    `json:"port"`

	// Startup mode: seed the demo graph instead of loading a snapshot.
	// Mutually exclusive with snapshot loading.
	DemoSetup bool `json:"demo_setup,omitempty"`

	// Snapshot store settings
	SnapshotBackend string `json:"snapshot_backend"` // "file" or "badger"
	SnapshotPath    string `json:"snapshot_path"`    // file backend: path to the snapshot document
	BadgerDir       string `json:"badger_dir"`       // badger backend: database directory

	// How long the shutdown flush may take before the process exits anyway
	FlushTimeout int `json:"flush_timeout"` // seconds

	// Status file settings
	StatusDir string `json:"status_dir,omitempty"` // Optional: directory for daemon status files

	// Logging settings
	AppLogPath   string `json:"app_log_path,omitempty"`   // Optional: path to application log file
	AuditLogPath string `json:"audit_log_path,omitempty"` // Optional: path to decision/mutation audit log
	Debug        bool   `json:"debug,omitempty"`          // Enable debug logging
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults for optional settings
	if config.ListenAddr == "" {
		config.ListenAddr = "127.0.0.1"
	}
	if config.Port == 0 {
		config.Port = 8100
	}
	if config.SnapshotBackend == "" {
		config.SnapshotBackend = BackendFile
	}
	if config.SnapshotPath == "" {
		config.SnapshotPath = "data/snapshot.json"
	}
	if config.BadgerDir == "" {
		config.BadgerDir = "data/badger"
	}
	if config.FlushTimeout == 0 {
		config.FlushTimeout = 10
	}

	if config.SnapshotBackend != BackendFile && config.SnapshotBackend != BackendBadger {
		return fmt.Errorf("unknown snapshot_backend %q", config.SnapshotBackend)
	}

	// Convert relative paths to absolute paths based on config file location
	configDir := filepath.Dir(path)
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&config.SnapshotPath)
	resolve(&config.BadgerDir)
	resolve(&config.StatusDir)
	resolve(&config.AppLogPath)
	resolve(&config.AuditLogPath)

	return nil
}
