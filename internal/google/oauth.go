package google

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"

	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/logging"
	"gmailbridge/internal/vault"
)

// Plaintext-mode file names, used when the vault is disabled. They live in
// the same directory as the vault base path.
const (
	plainCredentialsFile = "credentials.json"
	plainTokenFile       = "token.json"
)

// Manager owns the OAuth session for the Gmail connector. It resolves client
// configuration and tokens through the credential vault (or plaintext files
// when encryption is disabled), refreshes expired tokens, and falls back to
// the interactive authorization flow when no usable token exists.
//
// A Manager is an explicit value constructed at the entry point; there is no
// package-level singleton.
type Manager struct {
	vault     *vault.Vault
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	plaintext bool

	// authIn and authOut carry the interactive authorization dialog.
	// Output defaults to stderr so the flow stays usable under the stdio
	// MCP transport, which owns stdout.
	authIn  io.Reader
	authOut io.Writer
}

// ManagerOptions configures optional Manager behavior.
type ManagerOptions struct {
	// Plaintext disables the vault: credentials.json and token.json are
	// read and written unencrypted next to the vault base path.
	Plaintext bool

	// Metrics records OAuth telemetry. May be nil.
	Metrics *instrumentation.Metrics

	// AuthInput and AuthOutput override the interactive flow streams.
	// Defaults: stdin and stderr.
	AuthInput  io.Reader
	AuthOutput io.Writer
}

// NewManager creates an OAuth manager over the given vault.
func NewManager(v *vault.Vault, logger *slog.Logger, opts ManagerOptions) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		vault:     v,
		logger:    logger,
		metrics:   opts.Metrics,
		plaintext: opts.Plaintext,
		authIn:    opts.AuthInput,
		authOut:   opts.AuthOutput,
	}
	if m.metrics == nil {
		m.metrics = &instrumentation.Metrics{}
	}
	if m.authIn == nil {
		m.authIn = os.Stdin
	}
	if m.authOut == nil {
		m.authOut = os.Stderr
	}
	return m
}

// Authenticate returns an HTTP client authorized for the Gmail API.
//
// The token state machine: a stored valid token is used as-is; an expired
// token with a refresh token is refreshed and re-stored; otherwise the
// interactive authorization flow runs. The client secrets file is
// materialized to a temp file only for the duration of config loading.
// Materialization happens on every call, including when a stored token is
// still valid, because the OAuth config is needed to build the HTTP client;
// the plaintext exposure window is therefore per call, not per authorization
// flow.
func (m *Manager) Authenticate(ctx context.Context, password string) (*http.Client, error) {
	conf, cleanup, err := m.clientConfig(password)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	tok, err := m.loadToken(password)
	if err != nil {
		return nil, err
	}

	save := false
	switch {
	case tok == nil:
		tok, err = m.interactiveAuth(ctx, conf)
		if err != nil {
			return nil, err
		}
		save = true

	case tok.Valid():
		// use as-is

	default:
		refreshed, rerr := conf.TokenSource(ctx, tok).Token()
		if rerr != nil {
			m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
			m.logger.Warn("token refresh failed, starting authorization flow", logging.Err(rerr))
			tok, err = m.interactiveAuth(ctx, conf)
			if err != nil {
				return nil, err
			}
		} else {
			m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
			m.logger.Debug("access token refreshed")
			tok = refreshed
		}
		save = true
	}

	if save {
		if err := m.saveToken(tok, password); err != nil {
			return nil, fmt.Errorf("failed to store token: %w", err)
		}
	}

	return conf.Client(ctx, tok), nil
}

// clientConfig loads the OAuth client configuration. In vault mode the
// encrypted credentials are materialized to a temp file, read, and the temp
// file is removed by the returned cleanup func. The cleanup func is always
// non-nil and safe to defer.
func (m *Manager) clientConfig(password string) (*oauth2.Config, func(), error) {
	noop := func() {}

	var (
		data    []byte
		err     error
		cleanup = noop
	)

	if m.plaintext {
		data, err = os.ReadFile(m.plainPath(plainCredentialsFile))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		path, merr := m.vault.MaterializeCredentials(password)
		if merr != nil {
			return nil, noop, merr
		}
		cleanup = func() { m.vault.Cleanup(path) }

		data, err = os.ReadFile(path)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("failed to read materialized credentials: %w", err)
		}
	}

	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("failed to parse client configuration: %w", err)
	}

	return conf, cleanup, nil
}

// loadToken returns the stored OAuth token, or (nil, nil) when no token has
// been stored yet. A token that fails to parse is treated as absent so the
// authorization flow can replace it.
func (m *Manager) loadToken(password string) (*oauth2.Token, error) {
	var data []byte

	if m.plaintext {
		raw, err := os.ReadFile(m.plainPath(plainTokenFile))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		data = raw
	} else {
		raw, err := m.vault.DecryptToken(password)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		data = raw
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		m.logger.Warn("stored token is not valid JSON, re-authorizing", logging.Err(err))
		return nil, nil
	}
	return tok, nil
}

// saveToken stores the token, encrypted unless plaintext mode is active.
func (m *Manager) saveToken(tok *oauth2.Token, password string) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if m.plaintext {
		return os.WriteFile(m.plainPath(plainTokenFile), data, 0600)
	}
	return m.vault.EncryptToken(data, password)
}

// interactiveAuth runs the out-of-band authorization flow: print the
// authorization URL, read the code, exchange it for a token.
func (m *Manager) interactiveAuth(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(m.authOut, "Visit the following URL to authorize access:\n\n%s\n\nEnter authorization code: ", authURL)

	scanner := bufio.NewScanner(m.authIn)
	if !scanner.Scan() {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read authorization code: %w", err)
		}
		return nil, fmt.Errorf("no authorization code provided")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("no authorization code provided")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	m.logger.Info("authorization complete")
	return tok, nil
}

// HasToken reports whether a stored token exists, without decrypting it.
func (m *Manager) HasToken() bool {
	if m.plaintext {
		_, err := os.Stat(m.plainPath(plainTokenFile))
		return err == nil
	}
	return m.vault.HasToken()
}

func (m *Manager) plainPath(name string) string {
	return filepath.Join(filepath.Dir(m.vault.CredentialsPath()), name)
}

// IsAuthError reports whether err is a Gmail API authorization failure.
// Callers use this to drop a cached session and retry once with a fresh
// client.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	return false
}
