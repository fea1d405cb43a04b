package logging

import (
	"fmt"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// LogLevelDebug is for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is for error messages
	LogLevelError LogLevel = "error"
)

var (
	// App is the global application logger
	App *AppLogger
	// Audit is the global audit logger
	Audit AuditLogger
)

func init() {
	// Initialize default loggers that write to io.Discard
	var err error

	App, err = NewAppLogger("", LogLevelInfo)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default app logger: %v", err))
	}

	Audit, err = NewAuditLogger("")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default audit logger: %v", err))
	}
}

// Initialize sets up the global loggers
func Initialize(appLogPath, auditLogPath string, level LogLevel) error {
	if level == "" {
		level = LogLevelInfo
	}

	newApp, err := NewAppLogger(appLogPath, level)
	if err != nil {
		return fmt.Errorf("failed to initialize app logger: %w", err)
	}

	newAudit, err := NewAuditLogger(auditLogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	App = newApp
	Audit = newAudit
	return nil
}

// MustInitialize initializes logging and panics on error
func MustInitialize(appLogPath, auditLogPath string, level LogLevel) {
	if err := Initialize(appLogPath, auditLogPath, level); err != nil {
		panic(fmt.Sprintf("failed to initialize logging: %v", err))
	}
}

// formatValue formats a value for logfmt, quoting if necessary
func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	// Quote if contains space, equals, or quotes
	if strings.ContainsAny(s, " =\"") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}

	str := fmt.Sprintf("%v", v)
	str = strings.ReplaceAll(str, "\n", " ")
	str = strings.ReplaceAll(str, "\r", " ")
	str = strings.ReplaceAll(str, "\t", " ")
	return strings.Join(strings.Fields(str), " ")
}
