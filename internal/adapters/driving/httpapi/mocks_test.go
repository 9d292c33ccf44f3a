package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// mockAssistant is a mock implementation of driving.AssistantService.
type mockAssistant struct {
	mu sync.Mutex

	session   domain.Session
	report    domain.StatusReport
	chat      *domain.ChatResponse
	chatErr   error
	uploadErr error
	freshID   string

	uploadedSession string
	uploadedPaths   []string
	chatSession     string
	resetSession    string
}

func (m *mockAssistant) CreateSession(_ context.Context) (domain.Session, error) {
	return m.session, nil
}

func (m *mockAssistant) Upload(_ context.Context, sessionID string, paths []string) (domain.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadedSession = sessionID
	m.uploadedPaths = paths
	if m.uploadErr != nil {
		return domain.UploadResult{}, m.uploadErr
	}
	return domain.UploadResult{SessionID: sessionID, DocumentCount: len(paths)}, nil
}

func (m *mockAssistant) Status(_ context.Context, sessionID string) domain.StatusReport {
	r := m.report
	r.SessionID = sessionID
	return r
}

func (m *mockAssistant) Chat(_ context.Context, sessionID, _ string) (*domain.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatSession = sessionID
	return m.chat, m.chatErr
}

func (m *mockAssistant) Reset(_ context.Context, sessionID string) (string, error) {
	m.resetSession = sessionID
	return m.freshID, nil
}

// mockUploads is a mock implementation of driving.UploadService.
type mockUploads struct {
	saved     []domain.UploadedFile
	err       error
	names     []string
	discarded []domain.UploadedFile
}

func (m *mockUploads) Save(_ string, files []domain.IncomingFile) ([]domain.UploadedFile, error) {
	for _, f := range files {
		m.names = append(m.names, f.Name)
	}
	return m.saved, m.err
}

func (m *mockUploads) Discard(files []domain.UploadedFile) {
	m.discarded = append(m.discarded, files...)
}
