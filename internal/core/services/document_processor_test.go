package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
)

func newTestProcessor() *DocumentProcessor {
	return NewDocumentProcessor(
		normalisers.NewDefaultRegistry(),
		postprocessors.NewDefaultPipeline(domain.ChunkingSettings{Size: 400, Overlap: 50}),
	)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		expected domain.DocType
	}{
		{"faq filename", "faq_rates.txt", "", domain.DocTypeFAQ},
		{"frequently filename", "Frequently_Asked.pdf", "", domain.DocTypeFAQ},
		{"kyc filename", "kyc_rules.docx", "", domain.DocTypePolicy},
		{"mortgage filename", "mortgage_guide.txt", "", domain.DocTypeLoan},
		{"credit resolves to loan before card", "credit_card_terms.txt", "", domain.DocTypeLoan},
		{"savings filename", "savings.txt", "", domain.DocTypeAccount},
		{"debit filename", "debit_guide.txt", "", domain.DocTypeCard},
		{"filename beats content", "checking.txt", "Frequently asked questions", domain.DocTypeAccount},
		{"content q:", "notes.txt", "Q: How do I apply?", domain.DocTypeFAQ},
		{"content regulation", "notes.txt", "This regulation applies to all staff.", domain.DocTypePolicy},
		{"content apr", "notes.txt", "The APR is fixed.", domain.DocTypeLoan},
		{"default", "notes.txt", "Branch opening hours are 9 to 5.", domain.DocTypeGeneral},
		{
			"content beyond window ignored", "notes.txt",
			strings.Repeat("a", 1000) + " interest rate", domain.DocTypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyDocument(tt.filename, tt.content))
		})
	}
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", Checksum("hello"))
	assert.Equal(t, Checksum("same"), Checksum("same"))
}

func TestDocumentProcessor_Load(t *testing.T) {
	dir := t.TempDir()
	faq := writeFile(t, dir, "faq_rates.txt", "Q: What is the savings rate? A: 2.5% APY")
	notes := writeFile(t, dir, "notes.txt", "Branch hours are 9 to 5.")

	docs, err := newTestProcessor().Load(context.Background(), []string{faq, notes})

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "faq_rates.txt", docs[0].Source)
	assert.Equal(t, domain.DocTypeFAQ, docs[0].DocType)
	assert.Equal(t, Checksum(docs[0].Content), docs[0].Checksum)
	assert.Equal(t, faq, docs[0].Path)
	assert.Equal(t, domain.DocTypeGeneral, docs[1].DocType)
}

func TestDocumentProcessor_Load_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "policy.txt", "All customers must complete KYC.")
	image := writeFile(t, dir, "logo.png", "not text")
	brokenPDF := writeFile(t, dir, "broken.pdf", "not a pdf")
	missing := filepath.Join(dir, "missing.txt")

	docs, err := newTestProcessor().Load(context.Background(), []string{image, good, brokenPDF, missing})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "policy.txt", docs[0].Source)
}

func TestDocumentProcessor_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProcessor().Load(ctx, []string{"a.txt"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocumentProcessor_Chunk(t *testing.T) {
	dir := t.TempDir()
	long := writeFile(t, dir, "loan_terms.txt", strings.Repeat("Loan terms range from 12 to 60 months.\n", 40))
	short := writeFile(t, dir, "faq.txt", "Q: Fees? A: None.")
	p := newTestProcessor()

	docs, err := p.Load(context.Background(), []string{long, short})
	require.NoError(t, err)

	chunks, err := p.Chunk(context.Background(), docs)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	assert.Equal(t, "loan_terms.txt_0", chunks[0].ID)
	assert.Equal(t, domain.DocTypeLoan, chunks[0].DocType)
	last := chunks[len(chunks)-1]
	assert.Equal(t, "faq.txt_0", last.ID)
	assert.Equal(t, domain.DocTypeFAQ, last.DocType)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 400)
	}

	again, err := p.Chunk(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, chunks, again, "chunking is idempotent")
}
