// Package gmail wraps the Gmail API for reading, sending, and organizing
// messages.
//
// The Client operates on the authenticated user's mailbox ("me") and exposes
// the operations served by the CLI, REST API, and MCP tools: listing messages
// with full header extraction, RFC 2822 message building and sending, label
// modification, and the read/unread/spam/trash/star state changes built on
// top of label modification.
package gmail
