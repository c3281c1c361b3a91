package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCredentials = `{"installed":{"client_id":"abc123.apps.googleusercontent.com","client_secret":"shh"}}`

func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "credentials.encrypted")
	return New(base, nil), dir
}

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestEncryptDecryptCredentialsRoundTrip(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)

	require.NoError(t, v.EncryptCredentials(source, "correct-horse"))

	doc, err := v.DecryptCredentials("correct-horse")
	require.NoError(t, err)

	installed, ok := doc["installed"].(map[string]any)
	require.True(t, ok, "expected installed section in decrypted document")
	assert.Equal(t, "abc123.apps.googleusercontent.com", installed["client_id"])
	assert.Equal(t, "shh", installed["client_secret"])
}

func TestDecryptCredentialsWrongPassword(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)

	require.NoError(t, v.EncryptCredentials(source, "correct-horse"))

	doc, err := v.DecryptCredentials("wrong-password")
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptCredentialsMissingArtifact(t *testing.T) {
	v, _ := newTestVault(t)

	_, err := v.DecryptCredentials("anything")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptCredentialsMissingSource(t *testing.T) {
	v, dir := newTestVault(t)

	err := v.EncryptCredentials(filepath.Join(dir, "nope.json"), "pw")
	assert.Error(t, err)
	assert.False(t, v.HasCredentials())
}

func TestEncryptCredentialsInvalidJSON(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, "{not json")

	err := v.EncryptCredentials(source, "pw")
	assert.Error(t, err)
	assert.False(t, v.HasCredentials())
}

func TestEncryptCredentialsReplacesArtifact(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)
	require.NoError(t, v.EncryptCredentials(source, "pw"))

	updated := filepath.Join(dir, "updated.json")
	require.NoError(t, os.WriteFile(updated, []byte(`{"installed":{"client_id":"new-id"}}`), 0600))
	require.NoError(t, v.EncryptCredentials(updated, "pw"))

	doc, err := v.DecryptCredentials("pw")
	require.NoError(t, err)
	installed := doc["installed"].(map[string]any)
	assert.Equal(t, "new-id", installed["client_id"])
	assert.NotContains(t, installed, "client_secret")
}

func TestSealDistinctArtifactsForSamePlaintext(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)

	require.NoError(t, v.EncryptCredentials(source, "pw"))
	first, err := os.ReadFile(v.CredentialsPath())
	require.NoError(t, err)

	require.NoError(t, v.EncryptCredentials(source, "pw"))
	second, err := os.ReadFile(v.CredentialsPath())
	require.NoError(t, err)

	// Per-call random nonce: same plaintext, same key, different artifact.
	assert.NotEqual(t, first, second)

	doc, err := v.DecryptCredentials("pw")
	require.NoError(t, err)
	assert.Contains(t, doc, "installed")
}

func TestDecryptTamperedArtifact(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)
	require.NoError(t, v.EncryptCredentials(source, "pw"))

	artifact, err := os.ReadFile(v.CredentialsPath())
	require.NoError(t, err)
	artifact[len(artifact)/2] ^= 0xff
	require.NoError(t, os.WriteFile(v.CredentialsPath(), artifact, 0600))

	_, err = v.DecryptCredentials("pw")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestTokenRoundTrip(t *testing.T) {
	v, _ := newTestVault(t)
	token := []byte(`{"access_token":"ya29.x","refresh_token":"1//y","token_type":"Bearer"}`)

	require.NoError(t, v.EncryptToken(token, "pw"))

	got, err := v.DecryptToken("pw")
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestDecryptTokenAbsentIsNotAnError(t *testing.T) {
	v, _ := newTestVault(t)

	// Fresh installation: no token artifact yet.
	got, err := v.DecryptToken("pw")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecryptTokenWrongPassword(t *testing.T) {
	v, _ := newTestVault(t)
	require.NoError(t, v.EncryptToken([]byte("token-bytes"), "pw"))

	_, err := v.DecryptToken("other")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestCredentialsAndTokenShareSalt(t *testing.T) {
	v, dir := newTestVault(t)
	source := writeSource(t, dir, testCredentials)

	require.NoError(t, v.EncryptCredentials(source, "pw"))
	saltAfterCredentials, err := os.ReadFile(v.SaltPath())
	require.NoError(t, err)

	require.NoError(t, v.EncryptToken([]byte("token"), "pw"))
	saltAfterToken, err := os.ReadFile(v.SaltPath())
	require.NoError(t, err)

	assert.Equal(t, saltAfterCredentials, saltAfterToken)
}

func TestGetOrCreateSaltIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.salt")

	first, err := getOrCreateSalt(path)
	require.NoError(t, err)
	assert.Len(t, first, saltSize)

	for i := 0; i < 5; i++ {
		salt, err := getOrCreateSalt(path)
		require.NoError(t, err)
		assert.Equal(t, first, salt)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1, err := deriveKey("password", salt)
	require.NoError(t, err)
	k2, err := deriveKey("password", salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := deriveKey("password", []byte("fedcba9876543210"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := deriveKey("other", salt)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestTokenPathNaming(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"credentials.encrypted", "credentials_token.encrypted"},
		{"/etc/app/credentials.encrypted", "/etc/app/credentials_token.encrypted"},
		{"secrets", "secrets_token.encrypted"},
	}

	for _, tt := range tests {
		v := New(tt.base, nil)
		assert.Equal(t, tt.want, v.TokenPath(), "base path %q", tt.base)
		assert.Equal(t, tt.base+".salt", v.SaltPath())
	}
}
