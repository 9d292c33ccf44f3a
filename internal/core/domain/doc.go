// Package domain defines the core business entities for ragdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted text of one uploaded file with its metadata
//   - Chunk: A bounded span of a document used as the retrieval unit
//   - VectorRecord: An embedded chunk as stored in the vector index
//   - Session: An isolated set of documents, vectors and conversation state
//   - SecurityEvent: An audit record produced by the security gate
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
