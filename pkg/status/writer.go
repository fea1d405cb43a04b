// Package status maintains small status files for daemon monitoring:
// last_start, last_stop, and last_flush. The flush file records whether the
// shutdown snapshot save succeeded, so a failed flush (possible data loss)
// is visible to operators after the process has exited.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gatewarden/gatewarden/pkg/logging"
)

// Writer manages status files for daemon health monitoring
type Writer struct {
	dir     string
	pid     int
	version string
}

// New creates a new status Writer
func New(dir string, version string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	return &Writer{
		dir:     dir,
		pid:     os.Getpid(),
		version: version,
	}, nil
}

// WriteStartFile writes the last_start file with startup information
func (w *Writer) WriteStartFile() error {
	now := time.Now()
	content := fmt.Sprintf(`timestamp_unix: %d
timestamp_human: %s
pid: %d
version: %s
`,
		now.Unix(),
		now.Format("Mon Jan 02 15:04:05 2006"),
		w.pid,
		w.version,
	)

	path := filepath.Join(w.dir, "last_start")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write last_start: %w", err)
	}

	logging.App.Info("Wrote status file", "file", "last_start")
	return nil
}

// WriteStopFile writes the last_stop file with shutdown information
func (w *Writer) WriteStopFile(reason string, uptime time.Duration) error {
	now := time.Now()
	content := fmt.Sprintf(`timestamp_unix: %d
timestamp_human: %s
pid: %d
version: %s
reason: %s
uptime_seconds: %d
`,
		now.Unix(),
		now.Format("Mon Jan 02 15:04:05 2006"),
		w.pid,
		w.version,
		reason,
		int64(uptime.Seconds()),
	)

	path := filepath.Join(w.dir, "last_stop")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write last_stop: %w", err)
	}

	logging.App.Info("Wrote status file", "file", "last_stop")
	return nil
}

// WriteFlushFile writes the last_flush file with the outcome of the
// shutdown snapshot save. flushErr nil means the save succeeded.
func (w *Writer) WriteFlushFile(flushErr error, took time.Duration) error {
	now := time.Now()
	result := "ok"
	detail := ""
	if flushErr != nil {
		result = "failed"
		detail = fmt.Sprintf("error: %s\n", flushErr)
	}
	content := fmt.Sprintf(`timestamp_unix: %d
timestamp_human: %s
pid: %d
result: %s
took_ms: %d
%s`,
		now.Unix(),
		now.Format("Mon Jan 02 15:04:05 2006"),
		w.pid,
		result,
		took.Milliseconds(),
		detail,
	)

	path := filepath.Join(w.dir, "last_flush")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write last_flush: %w", err)
	}

	logging.App.Info("Wrote status file", "file", "last_flush", "result", result)
	return nil
}

// atomicWrite writes content to a temp file and renames it into place
func (w *Writer) atomicWrite(path string, content []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
