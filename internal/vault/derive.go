package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// kdfIterations is deliberately high enough to slow down offline
	// brute force while staying interactively acceptable.
	kdfIterations = 100000

	// keySize is the raw key length required by Fernet.
	keySize = 32

	// saltSize is the length of the persisted salt sidecar.
	saltSize = 16
)

// deriveKey derives the Fernet encryption key from a password and salt.
// The derivation is deterministic: the same (password, salt) pair always
// yields the same key. An empty password is not rejected here; it simply
// derives a key that will fail authentication against artifacts sealed
// with a real one.
func deriveKey(password string, salt []byte) (*fernet.Key, error) {
	raw := pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
	key, err := fernet.DecodeKey(base64.URLEncoding.EncodeToString(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return key, nil
}
