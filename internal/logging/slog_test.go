package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestErrNil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation done", Err(nil))

	if strings.Contains(buf.String(), KeyError) {
		t.Errorf("nil error must not produce an error attribute, got: %s", buf.String())
	}
}

func TestErrNonNil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Error("operation failed", Err(errors.New("boom")))

	out := buf.String()
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error attribute in output, got: %s", out)
	}
}

func TestTraceIDEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("tool invocation", TraceID(""))

	if strings.Contains(buf.String(), KeyTraceID) {
		t.Errorf("empty trace id must not produce an attribute, got: %s", buf.String())
	}
}

func TestTraceIDPresent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("tool invocation", TraceID("4bf92f3577b34da6a3ce929d0e0e4736"))

	if !strings.Contains(buf.String(), "trace_id=4bf92f3577b34da6a3ce929d0e0e4736") {
		t.Errorf("expected trace id attribute, got: %s", buf.String())
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "<empty>"},
		{"abc", "[token:3 chars]"},
		{"ya29.a0AfH6SMBx", "[token:15 chars]"},
	}

	for _, tt := range tests {
		if got := SanitizeToken(tt.token); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestMaskClientID(t *testing.T) {
	tests := []struct {
		clientID string
		want     string
	}{
		{"", ""},
		{"short-id", "short-id"},
		{"abc123def456ghi789jk.apps.googleusercontent.com", "abc123def456ghi789jk..."},
	}

	for _, tt := range tests {
		if got := MaskClientID(tt.clientID); got != tt.want {
			t.Errorf("MaskClientID(%q) = %q, want %q", tt.clientID, got, tt.want)
		}
	}
}

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithOperation(logger, "encrypt_credentials").Info("started")

	if !strings.Contains(buf.String(), "operation=encrypt_credentials") {
		t.Errorf("expected operation attribute, got: %s", buf.String())
	}
}
