// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts text from an uploaded file
//   - NormaliserRegistry: Selects a normaliser by file extension
//   - PostProcessor: Splits document content into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Namespaced vector storage and similarity search
//   - ChunkCache: Full chunk text keyed by vector record ID
//   - LLMService: Generates grounded answers
//   - AuditStore: Security event persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
