package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"testprobe/internal/probeerrors"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// LogEntry is the structured shape of a single log line, kept distinct from
// the slog.Record it is rendered through so callers can build one without a
// logger present (e.g. in tests).
type LogEntry struct {
	Timestamp  time.Time
	Level      LogLevel
	Subsystem  string
	Message    string
	Err        error
	Attributes []slog.Attr
}

var defaultLogger *slog.Logger

// InitForCLI initializes the package-level logger. It must be called once
// during bootstrap, before any subsystem logs.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	opts := &slog.HandlerOptions{
		Level: filterLevel.SlogLevel(),
	}
	handler := slog.NewTextHandler(output, opts)
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// logInternal redacts the rendered message and, if present, the error text
// before handing both to slog, so vault responses, client secrets and JAAS
// strings never reach a log line (probeerrors.Redact, spec.md §7).
func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	msg = probeerrors.Redact(msg)

	var slogAttrs []slog.Attr
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", probeerrors.Redact(err.Error())))
	}

	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// TruncateID returns a truncated identifier for compact, correlation-safe
// log lines (e.g. a TestID). Format: first 8 chars + "..." when longer.
func TruncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// AuditEvent is a structured audit log event for the probe's
// admission/credential-fetch/staging/evidence lifecycle actions (spec.md
// §7). These events are always emitted at INFO level with an [AUDIT]
// prefix so log aggregation can filter on them.
type AuditEvent struct {
	// Action is the type of action being audited (e.g. "admit", "credential_fetch", "evidence_upload").
	Action string
	// Outcome indicates whether the action succeeded or failed.
	Outcome string // "success" or "failure"
	// TestID is the truncated test identifier.
	TestID string
	// Topic is the Kafka topic the action concerns, if any.
	Topic string
	// Details provides additional context-specific information.
	Details string
	// Error contains the redacted error message if Outcome is "failure".
	Error string
}

// Audit logs a structured audit event.
//
// Example output:
// [AUDIT] action=credential_fetch outcome=success test=ab12cd34... topic=orders.created
func Audit(event AuditEvent) {
	parts := make([]string, 0, 6)
	parts = append(parts, "action="+event.Action)
	parts = append(parts, "outcome="+event.Outcome)
	if event.TestID != "" {
		parts = append(parts, "test="+TruncateID(event.TestID))
	}
	if event.Topic != "" {
		parts = append(parts, "topic="+event.Topic)
	}
	if event.Details != "" {
		parts = append(parts, "details="+event.Details)
	}
	if event.Error != "" {
		parts = append(parts, "error="+probeerrors.Redact(event.Error))
	}

	logInternal(LevelInfo, "AUDIT", nil, "[AUDIT] %s", strings.Join(parts, " "))
}
