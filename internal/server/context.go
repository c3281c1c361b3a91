package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/google"
	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/logging"
	"gmailbridge/internal/vault"
)

// ServerContext holds the long-lived session state shared by the MCP tools
// and the REST API: the credential vault, the session password (resolved once
// at startup), and the lazily built Gmail client.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	vault   *vault.Vault
	oauth   *google.Manager
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	password string
	client   *gmail.Client
	shutdown bool
}

// Config configures a ServerContext.
type Config struct {
	Vault *vault.Vault
	OAuth *google.Manager

	// Password is the vault password for this session. It is cached so a
	// long-running server prompts at most once.
	Password string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &instrumentation.Metrics{}
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		vault:    cfg.Vault,
		oauth:    cfg.OAuth,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		password: cfg.Password,
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Vault returns the credential vault.
func (sc *ServerContext) Vault() *vault.Vault {
	return sc.vault
}

// Logger returns the session logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the session metrics recorder.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// GmailClient returns the Gmail client for this session, authenticating and
// building it on first use.
func (sc *ServerContext) GmailClient(ctx context.Context) (*gmail.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.client != nil {
		return sc.client, nil
	}

	httpClient, err := sc.oauth.Authenticate(ctx, sc.password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	client, err := gmail.NewClient(ctx, httpClient, sc.logger, sc.metrics)
	if err != nil {
		return nil, err
	}

	sc.client = client
	return client, nil
}

// InvalidateClient drops the cached Gmail client so the next use rebuilds
// the session.
func (sc *ServerContext) InvalidateClient() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.client = nil
}

// WithClient runs fn with the session's Gmail client. On an authorization
// failure the cached client is dropped and fn retried once with a freshly
// authenticated client.
func (sc *ServerContext) WithClient(ctx context.Context, fn func(*gmail.Client) error) error {
	client, err := sc.GmailClient(ctx)
	if err != nil {
		return err
	}

	err = fn(client)
	if err == nil || !google.IsAuthError(err) {
		return err
	}

	sc.logger.Info("session expired, re-authenticating", logging.Err(err))
	sc.InvalidateClient()

	client, cerr := sc.GmailClient(ctx)
	if cerr != nil {
		return cerr
	}
	return fn(client)
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.client = nil
	sc.password = ""
	sc.cancel()
	return nil
}
