package services

import (
	"context"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// SecurityNotice is returned in place of an answer when a query carries
// sensitive information.
const SecurityNotice = "I notice your query contains sensitive information. For security reasons, " +
	"please don't share personal details like account numbers, SSN, or passwords. " +
	"How can I help you with general company information?"

// auditPreviewLimit bounds the sanitised query preview kept in audit events.
const auditPreviewLimit = 50

// Ensure SecureChatbot implements Responder.
var _ Responder = (*SecureChatbot)(nil)

// SecureChatbot gates a Responder with a SecurityFilter. Queries are
// screened before they reach the responder and every reply is sanitised
// before it is returned.
type SecureChatbot struct {
	inner     Responder
	filter    *SecurityFilter
	audit     driving.AuditService
	sessionID string
}

// NewSecureChatbot wraps inner. audit may be nil.
func NewSecureChatbot(inner Responder, filter *SecurityFilter, audit driving.AuditService, sessionID string) *SecureChatbot {
	if filter == nil {
		filter = NewSecurityFilter()
	}
	return &SecureChatbot{
		inner:     inner,
		filter:    filter,
		audit:     audit,
		sessionID: sessionID,
	}
}

// Respond screens query, delegates when it is safe and sanitises the reply.
func (c *SecureChatbot) Respond(ctx context.Context, query string, k int) domain.ChatResponse {
	if safe, reason := c.filter.IsQuerySafe(query); !safe {
		resp := domain.ChatResponse{
			Response:     SecurityNotice,
			Sources:      []string{},
			QueryID:      NewQueryID(),
			SecurityFlag: true,
			Timestamp:    time.Now().UTC(),
		}
		c.record(ctx, domain.SecurityEvent{
			Type:      domain.EventUnsafeQuery,
			QueryID:   resp.QueryID,
			RiskLevel: c.filter.RiskLevel(query),
			Reason:    reason,
		})
		return c.sanitize(ctx, resp)
	}

	if c.filter.RequiresHumanReview(query) {
		c.record(ctx, domain.SecurityEvent{
			Type:      domain.EventHumanReviewRequired,
			RiskLevel: c.filter.RiskLevel(query),
			Preview:   truncateRunes(c.filter.Sanitize(query), auditPreviewLimit),
		})
	}

	return c.sanitize(ctx, c.inner.Respond(ctx, query, k))
}

func (c *SecureChatbot) sanitize(ctx context.Context, resp domain.ChatResponse) domain.ChatResponse {
	clean, n := c.filter.SanitizeCount(resp.Response)
	if n > 0 {
		c.record(ctx, domain.SecurityEvent{
			Type:      domain.EventResponseSanitized,
			QueryID:   resp.QueryID,
			RiskLevel: domain.RiskCritical,
			Reason:    "response contained PII",
		})
	}
	resp.Response = clean
	return resp
}

func (c *SecureChatbot) record(ctx context.Context, event domain.SecurityEvent) {
	if c.audit == nil {
		return
	}
	event.SessionID = c.sessionID
	c.audit.Record(ctx, event)
}
