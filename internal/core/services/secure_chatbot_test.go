package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// stubResponder returns a fixed reply and counts calls.
type stubResponder struct {
	reply domain.ChatResponse
	calls int
}

func (r *stubResponder) Respond(_ context.Context, _ string, _ int) domain.ChatResponse {
	r.calls++
	return r.reply
}

func newSecureTestBot(inner Responder) (*SecureChatbot, *mockAuditStore) {
	store := &mockAuditStore{}
	return NewSecureChatbot(inner, NewSecurityFilter(), NewAuditService(store, nil), "s1"), store
}

func TestSecureChatbot_BlocksPII(t *testing.T) {
	inner := &stubResponder{}
	bot, store := newSecureTestBot(inner)

	resp := bot.Respond(context.Background(), "My SSN is 123-45-6789, what's my balance?", 5)

	assert.Equal(t, SecurityNotice, resp.Response)
	assert.True(t, resp.SecurityFlag)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Empty(t, resp.Sources)
	assert.Len(t, resp.QueryID, 8)
	assert.Zero(t, inner.calls)

	events, err := store.List(context.Background(), driven.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventUnsafeQuery, events[0].Type)
	assert.Equal(t, domain.RiskCritical, events[0].RiskLevel)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Contains(t, events[0].Reason, "ssn")
	assert.NotContains(t, events[0].Preview, "123-45-6789")
}

func TestSecureChatbot_BlocksRestrictedTerms(t *testing.T) {
	inner := &stubResponder{}
	bot, store := newSecureTestBot(inner)

	resp := bot.Respond(context.Background(), "What is my password?", 5)

	assert.True(t, resp.SecurityFlag)
	assert.Zero(t, inner.calls)
	require.Len(t, store.events, 1)
	assert.Equal(t, "Query contains restricted information", store.events[0].Reason)
}

func TestSecureChatbot_HumanReviewIsNonBlocking(t *testing.T) {
	inner := &stubResponder{reply: domain.ChatResponse{Response: "Please contact the fraud team.", Sources: []string{"faq.txt"}, Confidence: 0.8}}
	bot, store := newSecureTestBot(inner)

	resp := bot.Respond(context.Background(), "I think there is fraud on my card, what should I do?", 5)

	assert.Equal(t, 1, inner.calls)
	assert.False(t, resp.SecurityFlag)
	assert.Equal(t, "Please contact the fraud team.", resp.Response)
	assert.Equal(t, []domain.SecurityEventType{domain.EventHumanReviewRequired}, store.types())
	assert.Equal(t, domain.RiskHigh, store.events[0].RiskLevel)
	assert.LessOrEqual(t, len([]rune(store.events[0].Preview)), 50)
}

func TestSecureChatbot_SanitizesResponses(t *testing.T) {
	inner := &stubResponder{reply: domain.ChatResponse{Response: "Email support@example.com or call 555-123-4567.", QueryID: "abcd1234"}}
	bot, store := newSecureTestBot(inner)

	resp := bot.Respond(context.Background(), "How do I contact support?", 5)

	assert.NotContains(t, resp.Response, "support@example.com")
	assert.NotContains(t, resp.Response, "555-123-4567")
	assert.Contains(t, resp.Response, "[EMAIL_REDACTED]")
	assert.Contains(t, resp.Response, "[PHONE_REDACTED]")
	assert.Equal(t, []domain.SecurityEventType{domain.EventResponseSanitized}, store.types())
	assert.Equal(t, "abcd1234", store.events[0].QueryID)
}

func TestSecureChatbot_CleanResponsePassesThrough(t *testing.T) {
	inner := &stubResponder{reply: domain.ChatResponse{Response: "Branches open at 9am.", Confidence: 0.7}}
	bot, store := newSecureTestBot(inner)

	resp := bot.Respond(context.Background(), "When do branches open?", 5)

	assert.Equal(t, "Branches open at 9am.", resp.Response)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9)
	assert.Empty(t, store.events)
}

func TestSecureChatbot_NilAudit(t *testing.T) {
	bot := NewSecureChatbot(&stubResponder{}, nil, nil, "s1")

	resp := bot.Respond(context.Background(), "card 4111 1111 1111 1111", 5)

	assert.True(t, resp.SecurityFlag)
}

func TestAuditService_RecordAndList(t *testing.T) {
	store := &mockAuditStore{}
	svc := NewAuditService(store, nil)

	svc.Record(context.Background(), domain.SecurityEvent{Type: domain.EventUnsafeQuery, SessionID: "a"})
	svc.Record(context.Background(), domain.SecurityEvent{Type: domain.EventHumanReviewRequired, SessionID: "b"})

	events, err := svc.List(context.Background(), driven.AuditFilter{SessionID: "a"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestAuditService_StoreFailureIsSwallowed(t *testing.T) {
	svc := NewAuditService(&mockAuditStore{err: errMock}, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), domain.SecurityEvent{Type: domain.EventUnsafeQuery})
	})
}

func TestAuditService_NoStore(t *testing.T) {
	svc := NewAuditService(nil, nil)
	svc.Record(context.Background(), domain.SecurityEvent{Type: domain.EventUnsafeQuery})

	events, err := svc.List(context.Background(), driven.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}
