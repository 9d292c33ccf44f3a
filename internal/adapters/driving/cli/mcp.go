package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base over MCP",
	Long: `Serve the session knowledge base to MCP clients.

Stdio is used unless --port is given, in which case the streamable HTTP
transport listens on --host (loopback by default) and that port. Expired
sessions are swept in the background either way.

Tools:
  kb_create_session  start an empty session
  kb_upload          copy local documents into a session and index them
                     (stdio only; HTTP clients upload through "ragdesk serve")
  kb_status          report processing progress
  kb_chat            ask a question answered from the session's documents
  kb_reset           discard a session

Resources:
  ragdesk://audit                          recent security events
  ragdesk://sessions/{sessionId}/audit     events for one session

Examples:
  ragdesk mcp
  ragdesk mcp --port 8081

Desktop client configuration:
  {"mcpServers": {"ragdesk": {"command": "/path/to/ragdesk", "args": ["mcp"]}}}`,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.Flags().String("host", "127.0.0.1", "HTTP listen host")
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ctx := cmd.Context()
	settings, release, err := ensureRuntime(ctx)
	if err != nil {
		return err
	}
	defer release()

	ports := &mcp.Ports{
		Assistant: assistantService,
		Uploads:   uploadService,
		Audit:     auditService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	go runSweeper(ctx, sweepInterval(settings.Session.Expiry))

	if port > 0 {
		host, err := cmd.Flags().GetString("host")
		if err != nil {
			return fmt.Errorf("getting host flag: %w", err)
		}
		addr := mcpAddr(host, port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// mcpAddr joins host and port for the HTTP transport.
func mcpAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
