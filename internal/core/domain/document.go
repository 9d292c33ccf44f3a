package domain

import "time"

// DocType classifies a document by the kind of company material it holds.
type DocType string

// Known document types. Classification falls back to DocTypeGeneral.
const (
	DocTypeFAQ     DocType = "faq"
	DocTypePolicy  DocType = "policy"
	DocTypeLoan    DocType = "loan"
	DocTypeAccount DocType = "account"
	DocTypeCard    DocType = "card"
	DocTypeGeneral DocType = "general"
)

// IsValid returns true if the document type is recognised.
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeFAQ, DocTypePolicy, DocTypeLoan, DocTypeAccount, DocTypeCard, DocTypeGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocType) String() string {
	return string(t)
}

// Document is the normalised text of one uploaded file.
// Documents are immutable once loaded.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the base filename the document was loaded from.
	Source string

	// Path is the on-disk location of the uploaded file.
	Path string

	// Content is the full extracted text before chunking.
	Content string

	// DocType is the classification assigned at load time.
	DocType DocType

	// Checksum is the hex MD5 of Content.
	Checksum string

	// Metadata contains extractor-specific key-value pairs (format, pages).
	Metadata map[string]any

	// CreatedAt is when the document was loaded.
	CreatedAt time.Time
}

// Chunk is a contiguous span of a Document's content.
type Chunk struct {
	// ID is "{source}_{index}".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Source is inherited from the parent Document.
	Source string

	// DocType is inherited from the parent Document.
	DocType DocType

	// Content is the text of this span.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// Total is the number of chunks the document was split into.
	Total int

	// Start and End are rune offsets into the parent content, End exclusive.
	Start int
	End   int

	// Metadata contains the parent metadata plus chunk-specific pairs.
	Metadata map[string]any

	// CreatedAt is inherited from the parent Document.
	CreatedAt time.Time
}
