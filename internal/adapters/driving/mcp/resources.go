package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

const (
	// uriScheme is the custom URI scheme for ragdesk resources.
	uriScheme = "ragdesk://"

	// auditLimit caps events returned by the audit resources.
	auditLimit = 100
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "audit",
		Name:        "audit",
		Description: "Recent security events across all sessions",
		MIMEType:    "application/json",
	}, s.handleAuditResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{sessionId}/audit",
		Name:        "session-audit",
		Description: "Security events recorded for one session",
		MIMEType:    "application/json",
	}, s.handleSessionAuditResource)
}

// auditInfo is the JSON shape of one listed event.
type auditInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	QueryID   string    `json:"query_id,omitempty"`
	RiskLevel string    `json:"risk_level"`
	Reason    string    `json:"reason,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleAuditResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return s.auditResult(ctx, req.Params.URI, driven.AuditFilter{Limit: auditLimit})
}

func (s *Server) handleSessionAuditResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessionID := extractSessionID(req.Params.URI)
	if sessionID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.auditResult(ctx, req.Params.URI, driven.AuditFilter{SessionID: sessionID, Limit: auditLimit})
}

func (s *Server) auditResult(ctx context.Context, uri string, filter driven.AuditFilter) (*mcp.ReadResourceResult, error) {
	var events []domain.SecurityEvent
	if s.ports.Audit != nil {
		var err error
		events, err = s.ports.Audit.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("listing security events: %w", err)
		}
	}

	infos := make([]auditInfo, len(events))
	for i, e := range events {
		infos[i] = auditInfo{
			ID:        e.ID,
			Type:      string(e.Type),
			SessionID: e.SessionID,
			QueryID:   e.QueryID,
			RiskLevel: string(e.RiskLevel),
			Reason:    e.Reason,
			Preview:   e.Preview,
			CreatedAt: e.CreatedAt,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling security events: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSessionID extracts the session ID from a URI like
// ragdesk://sessions/{sessionId}/audit.
func extractSessionID(uri string) string {
	const prefix = uriScheme + "sessions/"
	const suffix = "/audit"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
