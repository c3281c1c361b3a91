// Package common provides shared middleware for MCP tool handlers.
package common
