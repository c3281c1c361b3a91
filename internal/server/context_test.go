package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"gmailbridge/internal/google"
	"gmailbridge/internal/vault"
)

func TestNewServerContextValidation(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	v := vault.New(filepath.Join(t.TempDir(), "credentials.encrypted"), logger)
	oauth := google.NewManager(v, logger, google.ManagerOptions{})

	if _, err := NewServerContext(context.Background(), Config{OAuth: oauth}); err == nil {
		t.Error("expected error without vault")
	}
	if _, err := NewServerContext(context.Background(), Config{Vault: v}); err == nil {
		t.Error("expected error without oauth manager")
	}

	sc, err := NewServerContext(context.Background(), Config{Vault: v, OAuth: oauth})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Vault() != v {
		t.Error("vault accessor mismatch")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	sc := newTestContext(t)

	if sc.IsShutdown() {
		t.Fatal("fresh context must not be shut down")
	}

	if err := sc.Shutdown(); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if !sc.IsShutdown() {
		t.Error("expected shutdown state")
	}
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}

	select {
	case <-sc.Context().Done():
	default:
		t.Error("expected context to be canceled after shutdown")
	}
}

func TestGmailClientWithoutCredentialsFails(t *testing.T) {
	sc := newTestContext(t)

	// Empty vault: authentication must fail before any network activity
	if _, err := sc.GmailClient(context.Background()); err == nil {
		t.Fatal("expected authentication failure with empty vault")
	}
}

func TestInvalidateClientIsSafeWithoutClient(t *testing.T) {
	sc := newTestContext(t)
	sc.InvalidateClient()
}
