package services

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: content fingerprint, not a security boundary.
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// classifyWindow is how many leading characters of content are
// inspected when the filename gives no hint.
const classifyWindow = 1000

type classRule struct {
	docType domain.DocType
	terms   []string
}

// Filename rules take precedence over content rules; the first match wins.
var (
	filenameRules = []classRule{
		{domain.DocTypeFAQ, []string{"faq", "frequently"}},
		{domain.DocTypePolicy, []string{"policy", "compliance", "kyc", "aml"}},
		{domain.DocTypeLoan, []string{"loan", "mortgage", "credit"}},
		{domain.DocTypeAccount, []string{"account", "savings", "checking"}},
		{domain.DocTypeCard, []string{"card", "debit", "credit"}},
	}
	contentRules = []classRule{
		{domain.DocTypeFAQ, []string{"frequently asked", "q:", "question:"}},
		{domain.DocTypePolicy, []string{"compliance", "regulation", "requirement"}},
		{domain.DocTypeLoan, []string{"interest rate", "apr", "loan term"}},
	}
)

// DocumentProcessor loads uploaded files into documents and splits them
// into chunks.
type DocumentProcessor struct {
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	readFile    func(string) ([]byte, error)
}

// NewDocumentProcessor creates a processor using the given normaliser
// registry for extraction and pipeline for chunking.
func NewDocumentProcessor(normalisers driven.NormaliserRegistry, pipeline driven.PostProcessorPipeline) *DocumentProcessor {
	return &DocumentProcessor{
		normalisers: normalisers,
		pipeline:    pipeline,
		readFile:    os.ReadFile,
	}
}

// Load extracts, classifies and fingerprints each file. Loading is
// best-effort: unreadable or unsupported files are logged and skipped.
// The only error returned is context cancellation.
func (p *DocumentProcessor) Load(ctx context.Context, paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := p.loadOne(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", filepath.Base(path), err)
			continue
		}
		docs = append(docs, *doc)
		logger.Info("Loaded document: %s (%s)", doc.Source, doc.DocType)
	}

	return docs, nil
}

func (p *DocumentProcessor) loadOne(ctx context.Context, path string) (*domain.Document, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))

	data, err := p.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	result, err := p.normalisers.Normalise(ctx, &domain.RawDocument{
		Path:      path,
		Name:      name,
		Extension: ext,
		Content:   data,
	})
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	doc := result.Document
	doc.Source = name
	doc.Path = path
	doc.DocType = ClassifyDocument(name, doc.Content)
	doc.Checksum = Checksum(doc.Content)
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["checksum"] = doc.Checksum
	return &doc, nil
}

// Chunk splits every document into chunks, in document order.
func (p *DocumentProcessor) Chunk(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for i := range docs {
		chunks, err := p.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", docs[i].Source, err)
		}
		all = append(all, chunks...)
	}
	logger.Info("Created %d chunks from %d documents", len(all), len(docs))
	return all, nil
}

// ClassifyDocument assigns a document type from the filename, falling
// back to the first characters of content, then to general.
func ClassifyDocument(filename, content string) domain.DocType {
	name := strings.ToLower(filepath.Base(filename))
	if t, ok := firstMatch(filenameRules, name); ok {
		return t
	}

	head := []rune(content)
	if len(head) > classifyWindow {
		head = head[:classifyWindow]
	}
	if t, ok := firstMatch(contentRules, strings.ToLower(string(head))); ok {
		return t
	}

	return domain.DocTypeGeneral
}

func firstMatch(rules []classRule, s string) (domain.DocType, bool) {
	for _, rule := range rules {
		for _, term := range rule.terms {
			if strings.Contains(s, term) {
				return rule.docType, true
			}
		}
	}
	return "", false
}

// Checksum returns the hex MD5 of content.
func Checksum(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec // G401: fingerprint only.
	return hex.EncodeToString(sum[:])
}
