package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// getOrCreateSalt returns the salt stored at path, generating and persisting
// a fresh random salt on first use. The salt is not secret; it only defeats
// precomputed dictionary attacks on the password. Filesystem errors are
// returned to the caller unchanged in cause.
func getOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read salt file %s: %w", path, err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("failed to write salt file %s: %w", path, err)
	}
	return salt, nil
}
