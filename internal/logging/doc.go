// Package logging provides structured logging utilities for gmailbridge.
//
// It centralizes attribute key names and small helpers around the standard
// library's slog package so log entries stay consistent and greppable across
// the CLI, REST, and MCP surfaces. Secrets never reach the log stream:
// passwords are not logged at all, and tokens pass through SanitizeToken.
package logging
