package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/services"
)

// mockAssistant is a mock implementation of driving.AssistantService.
// Status walks through statuses, repeating the last one.
type mockAssistant struct {
	mu sync.Mutex

	statuses  []domain.StatusReport
	chat      *domain.ChatResponse
	chatErr   error
	uploadErr error

	statusCalls   int
	uploadedPaths []string
	question      string
	resetIDs      []string
}

func (m *mockAssistant) CreateSession(_ context.Context) (domain.Session, error) {
	return domain.Session{ID: "sess-1", Status: domain.SessionIdle}, nil
}

func (m *mockAssistant) Upload(_ context.Context, sessionID string, paths []string) (domain.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadedPaths = paths
	if m.uploadErr != nil {
		return domain.UploadResult{}, m.uploadErr
	}
	return domain.UploadResult{SessionID: sessionID, DocumentCount: len(paths)}, nil
}

func (m *mockAssistant) Status(_ context.Context, sessionID string) domain.StatusReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return domain.StatusReport{SessionID: sessionID, Status: domain.SessionIdle}
	}
	i := m.statusCalls
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.statusCalls++
	r := m.statuses[i]
	r.SessionID = sessionID
	return r
}

func (m *mockAssistant) Chat(_ context.Context, _, message string) (*domain.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.question = message
	return m.chat, m.chatErr
}

func (m *mockAssistant) Reset(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIDs = append(m.resetIDs, sessionID)
	return "fresh", nil
}

// mockUploads is a mock implementation of driving.UploadService.
type mockUploads struct {
	names     []string
	err       error
	discarded int
}

func (m *mockUploads) Save(sessionID string, files []domain.IncomingFile) ([]domain.UploadedFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	saved := make([]domain.UploadedFile, len(files))
	for i, f := range files {
		m.names = append(m.names, f.Name)
		saved[i] = domain.UploadedFile{Filename: f.Name, Path: "/uploads/" + sessionID + "/" + f.Name, Size: f.Size}
	}
	return saved, nil
}

func (m *mockUploads) Discard(files []domain.UploadedFile) {
	m.discarded += len(files)
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	events []domain.SecurityEvent
	filter driven.AuditFilter
}

func (m *mockAuditService) Record(_ context.Context, _ domain.SecurityEvent) {}

func (m *mockAuditService) List(_ context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error) {
	m.filter = filter
	return m.events, nil
}

// useServices injects services for one test and restores the previous
// package state afterwards.
func useServices(t *testing.T, assistant *mockAssistant, uploads *mockUploads, audit *mockAuditService) *memory.ConfigStore {
	t.Helper()

	prevSettings, prevAssistant, prevUploads, prevAudit := settingsService, assistantService, uploadService, auditService
	t.Cleanup(func() {
		settingsService, assistantService, uploadService, auditService = prevSettings, prevAssistant, prevUploads, prevAudit
	})

	store := memory.NewConfigStore()
	settingsService = services.NewSettingsService(store)
	assistantService, uploadService, auditService = nil, nil, nil
	if assistant != nil {
		assistantService = assistant
	}
	if uploads != nil {
		uploadService = uploads
	}
	if audit != nil {
		auditService = audit
	}
	return store
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	resetFlags(rootCmd)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags clears values left by earlier executions of the shared
// command tree.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
