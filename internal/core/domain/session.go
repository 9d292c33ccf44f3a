package domain

import (
	"io"
	"time"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

// Session lifecycle states.
const (
	SessionIdle       SessionStatus = "idle"
	SessionProcessing SessionStatus = "processing"
	SessionReady      SessionStatus = "ready"
	SessionError      SessionStatus = "error"
)

// Progress checkpoints reported while documents are processed.
const (
	ProgressAccepted    = 10
	ProgressLoaded      = 20
	ProgressChunked     = 40
	ProgressInitialised = 60
	ProgressIndexed     = 80
	ProgressReady       = 100
)

// IsValid returns true if the status is recognised.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionIdle, SessionProcessing, SessionReady, SessionError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is allowed.
// Any state may return to idle; processing is re-entrant for checkpoints.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if next == SessionIdle {
		return true
	}
	switch s {
	case SessionIdle:
		return next == SessionProcessing
	case SessionProcessing:
		return next == SessionProcessing || next == SessionReady || next == SessionError
	case SessionReady, SessionError:
		// A new upload restarts processing.
		return next == SessionProcessing
	default:
		return false
	}
}

// String returns the string representation.
func (s SessionStatus) String() string {
	return string(s)
}

// Session is an isolated unit of uploaded documents, vectors and
// conversation state. Service handles live in the session registry,
// not here.
type Session struct {
	ID           string
	Status       SessionStatus
	Progress     int
	Documents    []string
	Namespace    string
	MessageCount int
	Error        string
	CreatedAt    time.Time
}

// Expired reports whether the session is older than ttl at now.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

// StatusReport is what status-polling callers see.
type StatusReport struct {
	SessionID     string        `json:"session_id"`
	Status        SessionStatus `json:"status"`
	Progress      int           `json:"progress"`
	DocumentCount int           `json:"document_count"`
	MessageCount  int           `json:"message_count"`
	VectorCount   int           `json:"vector_count"`
	Error         string        `json:"error,omitempty"`
}

// UploadResult is returned when an upload has been accepted for processing.
type UploadResult struct {
	SessionID     string `json:"session_id"`
	DocumentCount int    `json:"total_documents"`
}

// IncomingFile is an uploaded file before it is written to disk.
// Size is the size the client declared; the bytes actually copied are
// checked again against the limits.
type IncomingFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// UploadedFile describes one stored upload.
type UploadedFile struct {
	Filename string `json:"filename"`
	Path     string `json:"filepath"`
	Size     int64  `json:"size"`
}

// UploadedPaths returns the stored paths of files.
func UploadedPaths(files []UploadedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// UploadedSize sums the stored sizes of files.
func UploadedSize(files []UploadedFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
