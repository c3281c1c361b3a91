package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation     = "operation"
	KeyTool          = "tool"
	KeyDuration      = "duration"
	KeyStatus        = "status"
	KeyError         = "error"
	KeyPath          = "path"
	KeyCorrelationID = "correlation_id"
	KeyTraceID       = "trace_id"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Setup installs the default slog logger writing text to stderr. Debug
// enables debug-level output. Stderr is deliberate: the stdio MCP transport
// owns stdout.
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// CorrelationID returns a slog attribute tagging a log entry with the
// per-call correlation id.
func CorrelationID(id string) slog.Attr {
	return slog.String(KeyCorrelationID, id)
}

// TraceID returns a slog attribute carrying the trace id, or an empty Group
// attribute (omitted from output) when id is empty, so TraceID is safe to
// pass even when tracing is sampled out.
func TraceID(id string) slog.Attr {
	if id == "" {
		return slog.Group("")
	}
	return slog.String(KeyTraceID, id)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// Only a length indicator is exposed; even partial token prefixes can aid
// attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// MaskClientID shortens an OAuth client id for display. The client id is not
// a secret, but confirmation output only needs enough of it to recognize.
func MaskClientID(clientID string) string {
	if len(clientID) <= 20 {
		return clientID
	}
	return clientID[:20] + "..."
}
