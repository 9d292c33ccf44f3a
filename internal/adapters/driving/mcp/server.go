package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	serverName      = "ragdesk"
	shutdownTimeout = 10 * time.Second

	instructions = "Create a session with kb_create_session, add documents with kb_upload, " +
		"poll kb_status until it reports ready, then ask questions with kb_chat. " +
		"Answers only use the uploaded documents and may be withheld when a question " +
		"or answer touches sensitive information."
)

// Server exposes a session's knowledge base to MCP clients.
type Server struct {
	ports  *Ports
	server *mcp.Server

	tools        []string
	localUploads bool
}

// NewServer creates an MCP server backed by the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: serverName, Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled. Only this transport
// offers kb_upload. Logging goes to stderr so stdout stays reserved for
// the protocol.
func (s *Server) Run(ctx context.Context) error {
	s.registerLocalUploads()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// toolNames lists the registered tools in registration order.
func (s *Server) toolNames() []string {
	return append([]string(nil), s.tools...)
}

// Handler returns the streamable HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves MCP over streamable HTTP on addr until ctx is cancelled.
// Tools that read the local filesystem are not offered here.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
