// Package vault implements password-based encryption for the Google OAuth
// client configuration and the OAuth session token.
//
// Both secrets are stored as independent encrypted artifacts next to a shared
// random salt sidecar. The encryption key is derived from a user password with
// PBKDF2 (SHA-256, 100,000 iterations) and used with Fernet authenticated
// encryption, so a wrong password or a tampered artifact fails decryption
// instead of yielding garbage.
//
// File layout relative to the configured base path (default
// "credentials.encrypted"):
//
//	credentials.encrypted        sealed OAuth client JSON
//	credentials.encrypted.salt   16 random bytes, created once
//	credentials_token.encrypted  sealed OAuth session token
//
// The key is re-derived from the password on every call and never persisted;
// callers that perform several operations in one session are expected to cache
// the password, not the key.
package vault
