package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// sessionEntry is a session record plus the handles built for it.
// store and bot are set only while the session is ready.
type sessionEntry struct {
	session domain.Session
	store   *VectorStore
	bot     Responder
}

// SessionManager is the process-wide session registry. All access is
// guarded by one RWMutex; callers receive copies of session records.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	expiry   time.Duration
	now      func() time.Time

	// onExpire is called outside the lock for each session dropped by age.
	onExpire func(domain.Session)
}

// NewSessionManager creates an empty registry. Sessions older than
// expiry are dropped on their next access. Zero disables expiry.
func NewSessionManager(expiry time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*sessionEntry),
		expiry:   expiry,
		now:      time.Now,
	}
}

// OnExpire registers the cleanup run for sessions dropped by age.
func (m *SessionManager) OnExpire(fn func(domain.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// NewSessionID returns an opaque session token.
func NewSessionID() string {
	return uuid.NewString()
}

// Create registers an idle session. An empty id allocates a fresh one.
// Creating an existing id replaces its record.
func (m *SessionManager) Create(id string) domain.Session {
	if id == "" {
		id = NewSessionID()
	}
	s := domain.Session{
		ID:        id,
		Status:    domain.SessionIdle,
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.sessions[id] = &sessionEntry{session: s}
	m.mu.Unlock()

	logger.Debug("Session %s created", id)
	return copySession(s)
}

// Get returns a copy of the session. Expired sessions are removed and
// reported absent.
func (m *SessionManager) Get(id string) (domain.Session, bool) {
	entry, ok := m.entry(id)
	if !ok {
		return domain.Session{}, false
	}
	return copySession(entry.session), true
}

// entry returns a snapshot of the entry, expiring it when it is too old.
func (m *SessionManager) entry(id string) (sessionEntry, bool) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	var snapshot sessionEntry
	if ok {
		snapshot = *e
	}
	m.mu.RUnlock()
	if !ok {
		return sessionEntry{}, false
	}

	if snapshot.session.Expired(m.now(), m.expiry) {
		m.expire(id)
		return sessionEntry{}, false
	}
	return snapshot, true
}

func (m *SessionManager) expire(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	hook := m.onExpire
	m.mu.Unlock()

	logger.Info("Session %s expired", id)
	if hook != nil {
		hook(copySession(e.session))
	}
}

// UpdateStatus moves a session to status with progress. Missing sessions
// return domain.ErrSessionReplaced; disallowed transitions return
// domain.ErrInvalidInput.
func (m *SessionManager) UpdateStatus(id string, status domain.SessionStatus, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionReplaced)
	}
	if !e.session.Status.CanTransition(status) {
		return fmt.Errorf("%w: session %s cannot move from %s to %s",
			domain.ErrInvalidInput, id, e.session.Status, status)
	}
	e.session.Status = status
	e.session.Progress = progress
	if status != domain.SessionReady {
		e.store = nil
		e.bot = nil
	}
	if status != domain.SessionError {
		e.session.Error = ""
	}
	return nil
}

// BeginProcessing claims a session for an upload. A session that is
// already processing returns domain.ErrSessionBusy.
func (m *SessionManager) BeginProcessing(id string, documents []string, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if e.session.Status == domain.SessionProcessing {
		return domain.ErrSessionBusy
	}
	e.session.Status = domain.SessionProcessing
	e.session.Progress = domain.ProgressAccepted
	e.session.Documents = append([]string(nil), documents...)
	e.session.Namespace = namespace
	e.session.Error = ""
	e.store = nil
	e.bot = nil
	return nil
}

// MarkReady publishes the handles and moves the session to ready under
// one lock, so readers never see ready without them.
func (m *SessionManager) MarkReady(id string, store *VectorStore, bot Responder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionReplaced)
	}
	if e.session.Status != domain.SessionProcessing {
		return fmt.Errorf("%w: session %s is %s", domain.ErrInvalidInput, id, e.session.Status)
	}
	e.store = store
	e.bot = bot
	e.session.Status = domain.SessionReady
	e.session.Progress = domain.ProgressReady
	return nil
}

// Fail moves a processing session to error, keeping its progress.
func (m *SessionManager) Fail(id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionReplaced)
	}
	e.session.Status = domain.SessionError
	if cause != nil {
		e.session.Error = cause.Error()
	}
	e.store = nil
	e.bot = nil
	return nil
}

// Ready returns the handles of a ready session. Sessions in any other
// state return domain.ErrSessionNotReady.
func (m *SessionManager) Ready(id string) (Responder, *VectorStore, error) {
	e, ok := m.entry(id)
	if !ok || e.session.Status != domain.SessionReady || e.bot == nil {
		return nil, nil, domain.ErrSessionNotReady
	}
	return e.bot, e.store, nil
}

// Store returns the vector store of a ready session, if any.
func (m *SessionManager) Store(id string) (*VectorStore, bool) {
	e, ok := m.entry(id)
	if !ok || e.store == nil {
		return nil, false
	}
	return e.store, true
}

// IncrementMessages counts one answered chat message.
func (m *SessionManager) IncrementMessages(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.session.MessageCount++
	}
}

// ListAll returns copies of every session, oldest first.
func (m *SessionManager) ListAll() []domain.Session {
	m.mu.RLock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, copySession(e.session))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove deletes a session and returns its last record. Any job still
// running for it fails its next checkpoint with domain.ErrSessionReplaced.
func (m *SessionManager) Remove(id string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	delete(m.sessions, id)
	return copySession(e.session), true
}

// Len returns the number of registered sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep expires every session older than the expiry and returns how many
// were dropped.
func (m *SessionManager) Sweep() int {
	m.mu.RLock()
	var stale []string
	now := m.now()
	for id, e := range m.sessions {
		if e.session.Expired(now, m.expiry) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.expire(id)
	}
	return len(stale)
}

func copySession(s domain.Session) domain.Session {
	s.Documents = append([]string(nil), s.Documents...)
	return s
}
