package domain

import "time"

// PreviewLimit is the maximum number of runes of chunk text stored
// alongside a vector in the index.
const PreviewLimit = 1000

// VectorRecord is an embedded chunk as written to the vector index.
type VectorRecord struct {
	// ID is "{namespace}_{md5(content)[:8]}_{sequence}".
	ID string

	// Vector is the embedding, sized by the embedding model.
	Vector []float32

	// Metadata is the subset of chunk data stored in the index.
	Metadata RecordMetadata
}

// RecordMetadata is the metadata stored with every vector.
// SessionID is the isolation key applied as a hard filter on every query.
type RecordMetadata struct {
	Text       string
	Source     string
	DocType    DocType
	ChunkIndex int
	SessionID  string
	Namespace  string
	CreatedAt  time.Time
}

// VectorFilter restricts a query to records with matching metadata.
type VectorFilter struct {
	// SessionID is matched exactly. Required.
	SessionID string
}

// VectorMatch is a single ranked result from the index.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata RecordMetadata
}

// IndexStats describes the contents of one namespace.
type IndexStats struct {
	Namespace   string
	VectorCount int
	Dimension   int
}

// Passage is a retrieved chunk paired with its similarity score.
type Passage struct {
	Chunk Chunk
	Score float64
}
