package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// AuditLogger records authorization decisions and administrative mutations
type AuditLogger interface {
	// LogDecision logs one authorization query and its outcome
	LogDecision(user string, resource string, right string, granted bool, source string)
	// LogAdmin logs an administrative mutation of the graph
	LogAdmin(operation string, status string, details ...interface{})
}

type auditLogger struct {
	logger *log.Logger
}

// NewAuditLogger creates a new audit logger. An empty path discards output.
func NewAuditLogger(logPath string) (AuditLogger, error) {
	var writer io.Writer

	if logPath == "" {
		writer = io.Discard
	} else {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening audit log file: %w", err)
		}
		writer = f
	}

	return &auditLogger{
		logger: log.New(writer, "", 0), // No flags, we handle formatting ourselves
	}, nil
}

func (l *auditLogger) LogDecision(user string, resource string, right string, granted bool, source string) {
	outcome := "denied"
	if granted {
		outcome = "granted"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("op=%s", "DECIDE"))
	parts = append(parts, fmt.Sprintf("user=%s", formatValue(user)))
	parts = append(parts, fmt.Sprintf("resource=%s", formatValue(resource)))
	parts = append(parts, fmt.Sprintf("right=%s", formatValue(right)))
	parts = append(parts, fmt.Sprintf("outcome=%s", outcome))
	if source != "" {
		parts = append(parts, fmt.Sprintf("source=%s", formatValue(source)))
	}

	l.write(parts)
}

func (l *auditLogger) LogAdmin(operation string, status string, details ...interface{}) {
	var parts []string
	parts = append(parts, fmt.Sprintf("op=%s", formatValue(operation)))
	parts = append(parts, fmt.Sprintf("status=%s", formatValue(status)))
	for i := 0; i+1 < len(details); i += 2 {
		key := toString(details[i])
		parts = append(parts, fmt.Sprintf("%s=%s", key, formatValue(toString(details[i+1]))))
	}

	l.write(parts)
}

func (l *auditLogger) write(parts []string) {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 -0700")
	l.logger.Printf("%s %s", timestamp, strings.Join(parts, " "))
}
