package vault

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrAuthentication is returned when an artifact cannot be decrypted.
// Wrong password, truncation, tampering, and a malformed envelope are all
// deliberately reported as this single error so that callers (and attackers)
// cannot distinguish which check failed.
var ErrAuthentication = errors.New("vault: authentication failed")

// seal encrypts plaintext into a self-describing Fernet envelope
// (version, timestamp, random nonce, ciphertext, HMAC). The random nonce
// means sealing identical plaintext twice yields different artifacts.
func seal(plaintext []byte, key *fernet.Key) ([]byte, error) {
	artifact, err := fernet.EncryptAndSign(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal data: %w", err)
	}
	return artifact, nil
}

// open decrypts and authenticates an artifact produced by seal.
// It never returns corrupted plaintext: any integrity failure yields
// ErrAuthentication.
func open(artifact []byte, key *fernet.Key) ([]byte, error) {
	plaintext := fernet.VerifyAndDecrypt(artifact, 0, []*fernet.Key{key})
	if plaintext == nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
