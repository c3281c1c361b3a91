// Package cmd implements the command-line interface for gmailbridge.
//
// This package provides the following commands:
//   - credentials: Encrypt, inspect and verify the OAuth credentials vault
//   - read: List messages from the Gmail inbox
//   - send: Send an email from the Gmail account
//   - labels: List the account's labels
//   - serve: Start the MCP server for AI assistants
//   - api: Start the REST API server
//   - version: Display version information
//
// The --credentials and --plaintext flags apply to all commands; the vault
// password is resolved from GMAIL_MCP_PASSWORD or a terminal prompt.
package cmd
