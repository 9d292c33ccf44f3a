// Package cli provides the cobra command tree for ragdesk.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// version is set from main at build time.
var version = "dev"

// Runtime is the set of running services commands drive.
type Runtime struct {
	Assistant driving.AssistantService
	Uploads   driving.UploadService
	Audit     driving.AuditService
	Metrics   *metrics.Recorder

	// Sweep expires idle sessions; serve calls it periodically.
	Sweep func()

	// Close stops workers and releases adapters.
	Close func()
}

// Bootstrap builds services from resolved settings. main provides it so
// that this package stays free of adapter wiring.
type Bootstrap struct {
	// Runtime builds the full assistant.
	Runtime func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)

	// Audit opens only the audit trail, for commands that read it.
	Audit func(settings *domain.AppSettings) (driving.AuditService, func(), error)
}

var (
	settingsService driving.SettingsService
	bootstrap       Bootstrap

	// Set directly by tests; built through bootstrap otherwise.
	assistantService driving.AssistantService
	uploadService    driving.UploadService
	auditService     driving.AuditService
	metricsRecorder  *metrics.Recorder
	sweepSessions    func()
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Answer questions from uploaded documents",
	Long: `ragdesk loads company documents into an isolated session and answers
questions using only their content. Unsafe queries are refused, sensitive
ones are flagged for human review and personal data is masked.

Serve it over HTTP, expose it to AI assistants through MCP, or ask a
one-off question from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ragdesk)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion records the build version.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers how services are built.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadSettings resolves settings from the config file and environment.
func loadSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		store, err := file.NewConfigStore(configDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		if err := store.Load(); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		settingsService = services.NewSettingsService(store)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.Verbose {
		logger.SetVerbose(true)
	}
	return settings, nil
}

// ensureRuntime builds the assistant unless a test already injected one.
// The returned func releases what was built.
func ensureRuntime(ctx context.Context) (*domain.AppSettings, func(), error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	if assistantService != nil {
		return settings, func() {}, nil
	}
	if bootstrap.Runtime == nil {
		return nil, nil, errors.New("assistant not configured")
	}

	rt, err := bootstrap.Runtime(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	assistantService = rt.Assistant
	uploadService = rt.Uploads
	auditService = rt.Audit
	metricsRecorder = rt.Metrics
	sweepSessions = rt.Sweep

	release := func() {
		if rt.Close != nil {
			rt.Close()
		}
		assistantService, uploadService, auditService, metricsRecorder, sweepSessions = nil, nil, nil, nil, nil
	}
	return settings, release, nil
}

// ensureAudit opens the audit trail unless one is already available.
func ensureAudit() (func(), error) {
	if auditService != nil {
		return func() {}, nil
	}
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if bootstrap.Audit == nil {
		return nil, errors.New("audit trail not configured")
	}
	svc, closeFn, err := bootstrap.Audit(settings)
	if err != nil {
		return nil, err
	}
	auditService = svc
	return func() {
		closeFn()
		auditService = nil
	}, nil
}

// runSweeper expires sessions every interval until ctx is done.
func runSweeper(ctx context.Context, interval time.Duration) {
	if sweepSessions == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepSessions()
		}
	}
}
