// Package gmail_tools registers the Gmail MCP tools: reading and sending
// mail, label listing and modification, and the label-backed state changes
// (read, unread, spam, trash, star). State change tools accept a single
// message id or an array of ids.
package gmail_tools
