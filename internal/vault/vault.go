package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fernet/fernet-go"

	"gmailbridge/internal/instrumentation"
)

const (
	// DefaultBasePath is the default location of the encrypted credentials
	// artifact. The salt and token artifacts are derived from it.
	DefaultBasePath = "credentials.encrypted"

	encryptedSuffix = ".encrypted"
	tokenSuffix     = "_token.encrypted"
)

// ErrCredentialsNotFound is returned by DecryptCredentials when the
// credentials artifact or its salt sidecar does not exist. Unlike an absent
// token this indicates a misconfigured installation.
var ErrCredentialsNotFound = errors.New("vault: encrypted credentials not found")

// Vault manages the two encrypted artifacts of an installation: the OAuth
// client configuration document and the OAuth session token. Both share one
// salt and one password. A Vault is cheap to construct and holds no key
// material; keys are derived per call from the password passed in.
//
// Vault operations are safe for concurrent readers. Concurrent writers to
// the same base path must be serialized by the caller.
type Vault struct {
	basePath string
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// New creates a Vault rooted at basePath. If basePath is empty,
// DefaultBasePath is used. If logger is nil, slog.Default() is used.
func New(basePath string, logger *slog.Logger) *Vault {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		basePath: basePath,
		logger:   logger,
		metrics:  &instrumentation.Metrics{},
	}
}

// SetMetrics sets the metrics recorder for vault operation telemetry.
// Without it (or with nil) recording is a no-op.
func (v *Vault) SetMetrics(m *instrumentation.Metrics) {
	if m == nil {
		m = &instrumentation.Metrics{}
	}
	v.metrics = m
}

// finish records the outcome of a vault operation.
func (v *Vault) finish(op string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	v.metrics.RecordVaultOperation(context.Background(), op, status, time.Since(start))
}

// CredentialsPath returns the path of the encrypted credentials artifact.
func (v *Vault) CredentialsPath() string {
	return v.basePath
}

// SaltPath returns the path of the salt sidecar file.
func (v *Vault) SaltPath() string {
	return v.basePath + ".salt"
}

// TokenPath returns the path of the encrypted token artifact, derived from
// the base path by replacing the ".encrypted" suffix with "_token.encrypted".
func (v *Vault) TokenPath() string {
	p := strings.Replace(v.basePath, encryptedSuffix, tokenSuffix, 1)
	if p == v.basePath {
		// Base path without the conventional suffix; keep the slots distinct.
		p = v.basePath + tokenSuffix
	}
	return p
}

// HasCredentials reports whether the encrypted credentials artifact exists.
func (v *Vault) HasCredentials() bool {
	_, err := os.Stat(v.CredentialsPath())
	return err == nil
}

// HasToken reports whether the encrypted token artifact exists.
func (v *Vault) HasToken() bool {
	_, err := os.Stat(v.TokenPath())
	return err == nil
}

// key obtains the salt (creating it on first use) and derives the
// encryption key for password.
func (v *Vault) key(password string) (*fernet.Key, error) {
	salt, err := getOrCreateSalt(v.SaltPath())
	if err != nil {
		return nil, err
	}
	return deriveKey(password, salt)
}

// EncryptCredentials reads the OAuth client JSON document at sourcePath,
// validates it, and writes the sealed credentials artifact. Any existing
// artifact is fully replaced.
func (v *Vault) EncryptCredentials(sourcePath, password string) (err error) {
	start := time.Now()
	defer func() { v.finish(instrumentation.VaultOpEncryptCredentials, start, err) }()

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		v.logger.Error("failed to read credentials source", "path", sourcePath, "error", err)
		return fmt.Errorf("failed to read credentials file %s: %w", sourcePath, err)
	}

	// Parse and re-serialize so a malformed document is rejected here,
	// not at first decrypt.
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		v.logger.Error("credentials source is not valid JSON", "path", sourcePath, "error", err)
		return fmt.Errorf("invalid JSON in credentials file %s: %w", sourcePath, err)
	}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	key, err := v.key(password)
	if err != nil {
		return err
	}
	artifact, err := seal(plaintext, key)
	if err != nil {
		return err
	}

	v.logger.Info("writing encrypted credentials", "path", v.CredentialsPath())
	if err := writeFileAtomic(v.CredentialsPath(), artifact, 0600); err != nil {
		v.logger.Error("failed to write credentials artifact", "path", v.CredentialsPath(), "error", err)
		return err
	}
	return nil
}

// DecryptCredentials decrypts the credentials artifact and returns the
// parsed OAuth client document. It returns ErrCredentialsNotFound when the
// artifact or salt is missing and ErrAuthentication when the password is
// wrong or the artifact has been modified.
func (v *Vault) DecryptCredentials(password string) (_ map[string]any, err error) {
	start := time.Now()
	defer func() { v.finish(instrumentation.VaultOpDecryptCredentials, start, err) }()

	plaintext, err := v.decryptCredentialsRaw(password)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		v.logger.Error("decrypted credentials are not valid JSON", "error", err)
		return nil, fmt.Errorf("invalid JSON in decrypted credentials: %w", err)
	}
	return doc, nil
}

// decryptCredentialsRaw returns the decrypted credentials JSON bytes.
func (v *Vault) decryptCredentialsRaw(password string) ([]byte, error) {
	for _, p := range []string{v.CredentialsPath(), v.SaltPath()} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				v.logger.Error("encrypted credentials artifact missing", "path", p)
				return nil, ErrCredentialsNotFound
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}

	key, err := v.key(password)
	if err != nil {
		return nil, err
	}
	artifact, err := os.ReadFile(v.CredentialsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials artifact: %w", err)
	}

	plaintext, err := open(artifact, key)
	if err != nil {
		v.logger.Error("failed to decrypt credentials", "error", err)
		return nil, err
	}
	return plaintext, nil
}

// EncryptToken seals an in-memory serialized OAuth token and writes the
// token artifact, fully replacing any previous one.
func (v *Vault) EncryptToken(tokenData []byte, password string) (err error) {
	start := time.Now()
	defer func() { v.finish(instrumentation.VaultOpEncryptToken, start, err) }()

	key, err := v.key(password)
	if err != nil {
		return err
	}
	artifact, err := seal(tokenData, key)
	if err != nil {
		return err
	}

	v.logger.Info("writing encrypted token", "path", v.TokenPath())
	if err := writeFileAtomic(v.TokenPath(), artifact, 0600); err != nil {
		v.logger.Error("failed to write token artifact", "path", v.TokenPath(), "error", err)
		return err
	}
	return nil
}

// DecryptToken decrypts the token artifact and returns the serialized OAuth
// token. A missing token artifact is an expected steady state (first run, or
// after logout), so it is reported as (nil, nil) and logged at debug level
// rather than treated as an error.
func (v *Vault) DecryptToken(password string) (_ []byte, err error) {
	start := time.Now()
	defer func() { v.finish(instrumentation.VaultOpDecryptToken, start, err) }()

	if _, err := os.Stat(v.TokenPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.logger.Debug("no encrypted token artifact", "path", v.TokenPath())
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", v.TokenPath(), err)
	}
	if _, err := os.Stat(v.SaltPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.logger.Error("salt file missing", "path", v.SaltPath())
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to stat %s: %w", v.SaltPath(), err)
	}

	key, err := v.key(password)
	if err != nil {
		return nil, err
	}
	artifact, err := os.ReadFile(v.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token artifact: %w", err)
	}

	plaintext, err := open(artifact, key)
	if err != nil {
		v.logger.Error("failed to decrypt token", "error", err)
		return nil, err
	}
	return plaintext, nil
}

// writeFileAtomic writes data to path via a temp file and rename so an
// interrupted write never leaves a partially written artifact behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
