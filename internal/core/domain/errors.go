package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the generative model could not be reached.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Session Errors.

	// ErrSessionNotReady indicates a chat arrived before documents were processed.
	ErrSessionNotReady = errors.New("chatbot not ready, please upload documents first")

	// ErrSessionBusy indicates an upload is already being processed for the session.
	ErrSessionBusy = errors.New("session is processing documents")

	// ErrSessionReplaced indicates the session was reset or expired while work was in flight.
	ErrSessionReplaced = errors.New("session was reset")

	// ErrNoDocuments indicates none of the uploaded files produced text.
	ErrNoDocuments = errors.New("no readable documents")

	// ErrEmptyMessage indicates a chat request without a message.
	ErrEmptyMessage = errors.New("no message provided")

	// ErrQueueFull indicates the processing queue cannot accept more work.
	ErrQueueFull = errors.New("processing queue full")

	// Upload Errors.

	// ErrTooManyFiles indicates the upload exceeds the file count limit.
	ErrTooManyFiles = errors.New("too many files")

	// ErrFileTooLarge indicates a single file exceeds the per-file size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUploadTooLarge indicates the combined upload exceeds the total size cap.
	ErrUploadTooLarge = errors.New("total upload size exceeds limit")

	// ErrEmptyFile indicates an uploaded file has no content.
	ErrEmptyFile = errors.New("empty file")
)
