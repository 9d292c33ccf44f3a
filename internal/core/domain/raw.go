package domain

// RawDocument represents the bytes of an uploaded file before extraction.
// It is the input to a Normaliser.
type RawDocument struct {
	// Path is the on-disk location of the uploaded file.
	Path string

	// Name is the base filename, used as the document source.
	Name string

	// Extension is the lower-cased file extension including the dot.
	Extension string

	// Content is the raw bytes.
	Content []byte
}
