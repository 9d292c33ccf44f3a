package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// SessionInput addresses a session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session returned by kb_create_session or kb_upload"`
}

// SessionOutput is the output schema for kb_create_session and kb_reset.
type SessionOutput struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	SessionID string   `json:"session_id,omitempty" jsonschema:"existing session to load into; a new one is created when empty"`
	Paths     []string `json:"paths" jsonschema:"local paths of .txt, .pdf, .docx or .doc files"`
}

// UploadOutput is the output schema for the upload tool.
type UploadOutput struct {
	SessionID      string                `json:"session_id"`
	Uploaded       []domain.UploadedFile `json:"uploaded"`
	TotalDocuments int                   `json:"total_documents"`
	TotalSize      int64                 `json:"total_size"`
}

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	SessionID string `json:"session_id" jsonschema:"the session whose documents answer the question"`
	Message   string `json:"message" jsonschema:"the question to ask"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Response     string    `json:"response"`
	Sources      []string  `json:"sources"`
	Confidence   float64   `json:"confidence"`
	QueryID      string    `json:"query_id"`
	SecurityFlag bool      `json:"security_flag"`
	Timestamp    time.Time `json:"timestamp"`
}

// addTool registers a tool and records its name.
func addTool[In, Out any](s *Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.server, tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// registerTools registers the tools offered on every transport.
func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "kb_create_session",
		Description: "Create an empty document session",
	}, s.handleCreateSession)

	addTool(s, &mcp.Tool{
		Name:        "kb_status",
		Description: "Report document processing progress for a session",
	}, s.handleStatus)

	addTool(s, &mcp.Tool{
		Name:        "kb_chat",
		Description: "Ask a question answered only from the session's documents",
	}, s.handleChat)

	addTool(s, &mcp.Tool{
		Name:        "kb_reset",
		Description: "Discard a session's documents and start a new session",
	}, s.handleReset)
}

// registerLocalUploads adds kb_upload, which reads paths on this machine.
// Only the stdio transport calls it.
func (s *Server) registerLocalUploads() {
	if s.ports.Uploads == nil || s.localUploads {
		return
	}
	s.localUploads = true
	addTool(s, &mcp.Tool{
		Name:        "kb_upload",
		Description: "Load local documents into a session; processing continues in the background",
	}, s.handleUpload)
}

func (s *Server) handleCreateSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, SessionOutput, error) {
	sess, err := s.ports.Assistant.CreateSession(ctx)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, SessionOutput{SessionID: sess.ID, Status: sess.Status.String()}, nil
}

// handleUpload copies the named files into the upload area so that
// session cleanup never touches the caller's originals.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	files := make([]domain.IncomingFile, 0, len(input.Paths))
	for _, path := range input.Paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, UploadOutput{}, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, UploadOutput{}, fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, domain.IncomingFile{Name: filepath.Base(path), Size: info.Size(), Content: f})
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sess, err := s.ports.Assistant.CreateSession(ctx)
		if err != nil {
			return nil, UploadOutput{}, err
		}
		sessionID = sess.ID
	}

	saved, err := s.ports.Uploads.Save(sessionID, files)
	if err != nil {
		return nil, UploadOutput{}, err
	}
	result, err := s.ports.Assistant.Upload(ctx, sessionID, domain.UploadedPaths(saved))
	if err != nil {
		s.ports.Uploads.Discard(saved)
		return nil, UploadOutput{}, err
	}

	return nil, UploadOutput{
		SessionID:      result.SessionID,
		Uploaded:       saved,
		TotalDocuments: result.DocumentCount,
		TotalSize:      domain.UploadedSize(saved),
	}, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, domain.StatusReport, error) {
	return nil, s.ports.Assistant.Status(ctx, input.SessionID), nil
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	resp, err := s.ports.Assistant.Chat(ctx, input.SessionID, input.Message)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{
		Response:     resp.Response,
		Sources:      resp.Sources,
		Confidence:   resp.Confidence,
		QueryID:      resp.QueryID,
		SecurityFlag: resp.SecurityFlag,
		Timestamp:    resp.Timestamp,
	}, nil
}

func (s *Server) handleReset(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	fresh, err := s.ports.Assistant.Reset(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, SessionOutput{SessionID: fresh, Status: domain.SessionIdle.String()}, nil
}
