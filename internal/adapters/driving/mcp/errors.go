// Package mcp provides an MCP (Model Context Protocol) server adapter for
// ragdesk. It lets AI assistants upload documents into a session and ask
// questions answered from them.
package mcp

import "errors"

// ErrMissingAssistantService is returned when the assistant is not provided.
var ErrMissingAssistantService = errors.New("mcp: assistant service is required")
