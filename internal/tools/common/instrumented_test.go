package common

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"gmailbridge/internal/google"
	"gmailbridge/internal/server"
	"gmailbridge/internal/vault"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	v := vault.New(filepath.Join(t.TempDir(), "credentials.encrypted"), logger)
	oauth := google.NewManager(v, logger, google.ManagerOptions{})

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Vault:  v,
		OAuth:  oauth,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewServerContext: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestInstrumentedToolHandlerPassesThroughResult(t *testing.T) {
	sc := newTestServerContext(t)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("done"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInstrumentedToolHandlerPassesThroughError(t *testing.T) {
	sc := newTestServerContext(t)
	wantErr := errors.New("handler exploded")

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, wantErr
	})

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestInstrumentedToolHandlerErrorResult(t *testing.T) {
	sc := newTestServerContext(t)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("bad arguments"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error-shaped result to pass through")
	}
}
