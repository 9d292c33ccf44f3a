// Package chunker provides a recursive, boundary-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 400

// DefaultChunkOverlap is the default maximum number of characters shared
// by adjacent chunks.
const DefaultChunkOverlap = 50

// DefaultSeparators are tried in order, largest natural boundary first.
// The empty separator splits between characters and always applies.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Processor splits document content into chunks of at most chunkSize
// characters, preferring paragraph, line and sentence boundaries.
// Every chunk is an exact span of the document content; adjacent chunks
// share at most overlap characters. It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list. An empty separator is
// appended when missing so that splitting always terminates.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) == 0 {
			return
		}
		p.separators = append([]string(nil), seps...)
		if seps[len(seps)-1] != "" {
			p.separators = append(p.separators, "")
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// span is a half-open rune range.
type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Output is deterministic: the same document always yields the same chunks and IDs.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(doc.Content) == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	text := []rune(doc.Content)
	pieces := p.split(text, span{0, len(text)}, p.separators)
	spans := p.merge(pieces)

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		meta := copyMetadata(doc.Metadata)
		meta["source"] = doc.Source
		meta["doc_type"] = doc.DocType.String()
		meta["chunk_index"] = i
		meta["total_chunks"] = len(spans)

		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.Source, i),
			DocumentID: doc.ID,
			Source:     doc.Source,
			DocType:    doc.DocType,
			Content:    string(text[s.start:s.end]),
			Index:      i,
			Total:      len(spans),
			Start:      s.start,
			End:        s.end,
			Metadata:   meta,
			CreatedAt:  doc.CreatedAt,
		})
	}

	return chunks, nil
}

// split breaks region into contiguous pieces no longer than chunkSize,
// using the first separator present in region and recursing with the
// remaining separators on pieces that are still too long.
func (p *Processor) split(text []rune, region span, seps []string) []span {
	if region.len() <= p.chunkSize {
		return []span{region}
	}

	sep, rest := "", []string(nil)
	for i, s := range seps {
		if s == "" || indexRunes(text[region.start:region.end], []rune(s)) >= 0 {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	var out []span
	for _, piece := range splitKeep(text, region, []rune(sep)) {
		if piece.len() <= p.chunkSize || len(rest) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, p.split(text, piece, rest)...)
	}
	return out
}

// merge greedily packs contiguous pieces into chunks of at most chunkSize,
// starting each new chunk with trailing pieces of the previous one that
// total at most overlap characters.
func (p *Processor) merge(pieces []span) []span {
	var (
		chunks []span
		window []span
		total  int
	)

	for _, piece := range pieces {
		n := piece.len()
		if total+n > p.chunkSize && len(window) > 0 {
			chunks = append(chunks, span{window[0].start, window[len(window)-1].end})
			for len(window) > 0 && (total > p.overlap || total+n > p.chunkSize) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if len(window) > 0 {
		chunks = append(chunks, span{window[0].start, window[len(window)-1].end})
	}
	return chunks
}

// splitKeep cuts region after every occurrence of sep, keeping the
// separator at the end of the preceding piece. An empty sep cuts
// between every character.
func splitKeep(text []rune, region span, sep []rune) []span {
	if len(sep) == 0 {
		out := make([]span, 0, region.len())
		for i := region.start; i < region.end; i++ {
			out = append(out, span{i, i + 1})
		}
		return out
	}

	var out []span
	start := region.start
	for start < region.end {
		idx := indexRunes(text[start:region.end], sep)
		if idx < 0 {
			break
		}
		end := start + idx + len(sep)
		out = append(out, span{start, end})
		start = end
	}
	if start < region.end {
		out = append(out, span{start, region.end})
	}
	return out
}

// indexRunes returns the index of the first occurrence of sep in s, or -1.
func indexRunes(s, sep []rune) int {
	n := len(sep)
	if n == 0 {
		return 0
	}
outer:
	for i := 0; i+n <= len(s); i++ {
		for j := 0; j < n; j++ {
			if s[i+j] != sep[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+4)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
