// Package google manages the OAuth session for the Gmail connector.
//
// The Manager resolves client secrets and tokens through the credential
// vault, refreshes expired tokens, and runs the interactive out-of-band
// authorization flow when no usable token exists. Tokens are serialized as
// JSON and stored encrypted alongside the credentials artifact.
package google
