package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})

	t.Run("separators terminate with empty string", func(t *testing.T) {
		p := New(WithSeparators("\n", " "))
		if got := p.separators[len(p.separators)-1]; got != "" {
			t.Errorf("expected trailing empty separator, got %q", got)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker'")
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "   \n\n\t "} {
		chunks, err := New().Process(context.Background(), &domain.Document{ID: "d", Content: content}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected 0 chunks for %q, got %d", content, len(chunks))
		}
	}
}

func TestProcessor_Process_NilDocument(t *testing.T) {
	if _, err := New().Process(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestProcessor_Process_SmallContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID:        "doc-1",
		Source:    "faq_rates.txt",
		DocType:   domain.DocTypeFAQ,
		Content:   "Q: What is the savings rate? A: 2.5% APY",
		Metadata:  map[string]any{"format": "text"},
		CreatedAt: created,
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	c := chunks[0]
	if c.ID != "faq_rates.txt_0" {
		t.Errorf("unexpected ID %q", c.ID)
	}
	if c.Content != doc.Content || c.Start != 0 || c.End != len([]rune(doc.Content)) {
		t.Errorf("expected the chunk to span the whole document")
	}
	if c.DocType != domain.DocTypeFAQ || c.Source != "faq_rates.txt" || c.DocumentID != "doc-1" {
		t.Errorf("expected parent fields to be inherited")
	}
	if c.Total != 1 || c.Metadata["total_chunks"] != 1 || c.Metadata["format"] != "text" {
		t.Errorf("unexpected metadata: %v", c.Metadata)
	}
	if !c.CreatedAt.Equal(created) {
		t.Errorf("expected created-at to be inherited")
	}
}

func TestProcessor_Process_PrefersParagraphBoundaries(t *testing.T) {
	p := New(WithChunkSize(45), WithOverlap(0))
	para1 := "Savings accounts earn monthly interest."
	para2 := "Checking accounts have no minimum."
	doc := &domain.Document{Source: "a.txt", Content: para1 + "\n\n" + para2}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), contents(chunks))
	}
	if chunks[0].Content != para1+"\n\n" {
		t.Errorf("expected first paragraph with its break, got %q", chunks[0].Content)
	}
	if chunks[1].Content != para2 {
		t.Errorf("expected second paragraph, got %q", chunks[1].Content)
	}
}

func TestProcessor_Process_FallsBackToCharacters(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.Document{Source: "x.txt", Content: strings.Repeat("x", 250)}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c.Content)); n > 100 {
			t.Errorf("chunk %d has %d characters", i, n)
		}
	}
	if chunks[1].Start != 80 {
		t.Errorf("expected second chunk to start 20 characters back, got %d", chunks[1].Start)
	}
}

func TestProcessor_Process_Invariants(t *testing.T) {
	const size, overlap = 120, 30
	p := New(WithChunkSize(size), WithOverlap(overlap))

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Our premium card earns points on every purchase, including travel! ")
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
		if i%7 == 0 {
			b.WriteString("Ünïcödé rates apply? Yes.\n")
		}
	}
	doc := &domain.Document{Source: "card_terms.txt", Content: b.String()}
	text := []rune(doc.Content)

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	var rebuilt []rune
	prevEnd := 0
	for i, c := range chunks {
		if c.Index != i || c.Total != len(chunks) {
			t.Errorf("chunk %d has index %d total %d", i, c.Index, c.Total)
		}
		if n := len([]rune(c.Content)); n > size {
			t.Errorf("chunk %d has %d characters, limit %d", i, n, size)
		}
		if string(text[c.Start:c.End]) != c.Content {
			t.Errorf("chunk %d content does not match its span", i)
		}
		if i == 0 {
			if c.Start != 0 {
				t.Errorf("first chunk starts at %d", c.Start)
			}
			rebuilt = append(rebuilt, []rune(c.Content)...)
		} else {
			shared := prevEnd - c.Start
			if shared < 0 || shared > overlap {
				t.Errorf("chunk %d shares %d characters with its predecessor", i, shared)
			}
			rebuilt = append(rebuilt, text[prevEnd:c.End]...)
		}
		prevEnd = c.End
	}

	if string(rebuilt) != doc.Content {
		t.Error("chunks do not reconstruct the original text")
	}
}

func TestProcessor_Process_Deterministic(t *testing.T) {
	p := New()
	doc := &domain.Document{
		ID:      "doc-1",
		Source:  "policy.txt",
		Content: strings.Repeat("Customers must verify identity. Records are retained for five years.\n", 30),
	}

	first, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("re-chunking the same document changed the chunks")
	}
}

func TestProcessor_Process_IgnoresInputChunks(t *testing.T) {
	doc := &domain.Document{Source: "a.txt", Content: "Short text."}
	input := []domain.Chunk{{ID: "existing"}, {ID: "other"}}

	chunks, err := New().Process(context.Background(), doc, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "a.txt_0" {
		t.Errorf("expected input chunks to be replaced, got %v", contents(chunks))
	}
}

func TestSplitKeep(t *testing.T) {
	text := []rune("a.b.c")
	got := splitKeep(text, span{0, len(text)}, []rune("."))
	want := []span{{0, 2}, {2, 4}, {4, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestIndexRunes(t *testing.T) {
	if got := indexRunes([]rune("héllo\n\nworld"), []rune("\n\n")); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := indexRunes([]rune("abc"), []rune("x")); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
