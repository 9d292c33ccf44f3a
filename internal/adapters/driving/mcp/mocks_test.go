package mcp

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// mockAssistant is a mock implementation of driving.AssistantService.
type mockAssistant struct {
	session   domain.Session
	report    domain.StatusReport
	chat      *domain.ChatResponse
	err       error
	uploadErr error
	freshID   string

	uploadedSession string
	uploadedPaths   []string
}

func (m *mockAssistant) CreateSession(_ context.Context) (domain.Session, error) {
	return m.session, m.err
}

func (m *mockAssistant) Upload(_ context.Context, sessionID string, paths []string) (domain.UploadResult, error) {
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

func (m *mockAssistant) Chat(_ context.Context, _, _ string) (*domain.ChatResponse, error) {
	return m.chat, m.err
}

func (m *mockAssistant) Reset(_ context.Context, _ string) (string, error) {
	return m.freshID, m.err
}

// mockUploads is a mock implementation of driving.UploadService that
// records what it was given.
type mockUploads struct {
	err       error
	files     []domain.IncomingFile
	discarded []domain.UploadedFile
}

func (m *mockUploads) Save(sessionID string, files []domain.IncomingFile) ([]domain.UploadedFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.files = files
	saved := make([]domain.UploadedFile, len(files))
	for i, f := range files {
		saved[i] = domain.UploadedFile{Filename: f.Name, Path: "/uploads/" + sessionID + "/" + f.Name, Size: f.Size}
	}
	return saved, nil
}

func (m *mockUploads) Discard(files []domain.UploadedFile) {
	m.discarded = append(m.discarded, files...)
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	events []domain.SecurityEvent
	err    error
	filter driven.AuditFilter
}

func (m *mockAuditService) Record(_ context.Context, _ domain.SecurityEvent) {}

func (m *mockAuditService) List(_ context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error) {
	m.filter = filter
	return m.events, m.err
}
