package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// TempCredentialsFile is the fixed name of the short-lived plaintext copy of
// the OAuth client document, consumed by the OAuth flow which requires a
// file path.
const TempCredentialsFile = "temp_credentials.json"

// MaterializeCredentials decrypts the credentials document and writes a
// short-lived plaintext copy to TempCredentialsFile, returning its path.
// On any decryption failure nothing is written.
//
// Callers must call Cleanup on the returned path on every exit path,
// success or failure:
//
//	path, err := v.MaterializeCredentials(password)
//	if err != nil {
//	    return err
//	}
//	defer v.Cleanup(path)
func (v *Vault) MaterializeCredentials(password string) (string, error) {
	doc, err := v.DecryptCredentials(password)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials: %w", err)
	}

	v.logger.Info("creating temporary credentials file", "path", TempCredentialsFile)
	if err := os.WriteFile(TempCredentialsFile, data, 0600); err != nil {
		v.logger.Error("failed to write temporary credentials file", "path", TempCredentialsFile, "error", err)
		return "", fmt.Errorf("failed to write temporary credentials file: %w", err)
	}
	return TempCredentialsFile, nil
}

// Cleanup removes the temporary plaintext file at path if it exists.
// Removal is best-effort: errors are logged, never propagated, so cleanup
// cannot mask the outcome of the operation that needed the file.
func (v *Vault) Cleanup(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	if err == nil {
		v.logger.Info("removed temporary credentials file", "path", path)
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		v.logger.Error("failed to remove temporary credentials file", "path", path, "error", err)
	}
}
