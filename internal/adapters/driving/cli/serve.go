package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API for uploading documents and chatting with them.

Endpoints:
  POST /api/session   create a session
  POST /api/upload    multipart "documents" field
  GET  /api/status    processing progress
  POST /api/chat      {"message": "..."}
  POST /api/reset     discard the session's documents
  GET  /metrics       Prometheus metrics
  GET  /healthz       liveness

The session id travels in the X-Session-ID header.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from settings, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, release, err := ensureRuntime(ctx)
	if err != nil {
		return err
	}
	defer release()

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	if addr == "" {
		addr = settings.HTTPAddr
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Assistant: assistantService,
		Uploads:   uploadService,
		Metrics:   metricsRecorder,
	})
	if err != nil {
		return err
	}

	go runSweeper(ctx, sweepInterval(settings.Session.Expiry))

	fmt.Fprintf(cmd.OutOrStdout(), "ragdesk listening on %s\n", addr)
	return server.Run(ctx, addr)
}

// sweepInterval checks for expired sessions a few times per expiry period.
func sweepInterval(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		return 0
	}
	interval := expiry / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
