// Package weaviate provides a VectorIndex backed by a Weaviate class.
//
// Each index name maps to one class with vectorizer "none"; vectors are
// supplied by the embedding service. Namespaces and session IDs are
// field-tokenized properties so equality filters match exactly.
package weaviate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Property names of the class.
const (
	propRecordID   = "record_id"
	propText       = "text"
	propSource     = "source"
	propDocType    = "doc_type"
	propChunkIndex = "chunk_index"
	propSessionID  = "session_id"
	propNamespace  = "namespace"
	propCreatedAt  = "created_at"
)

// Config holds connection settings.
type Config struct {
	Host   string
	Scheme string
	APIKey string
}

// Index is a Weaviate-backed vector index.
type Index struct {
	client *weaviate.Client
	class  string
}

// New connects a client. No request is made until EnsureIndex.
func New(cfg Config) (*Index, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: weaviate host is required", domain.ErrInvalidInput)
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client: %w", err)
	}
	return &Index{client: client}, nil
}

// EnsureIndex creates the class for name if missing and binds the index to it.
func (idx *Index) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	if metric != driven.MetricCosine {
		return fmt.Errorf("%w: metric %q", domain.ErrUnsupportedType, metric)
	}
	class := ClassName(name)
	if class == "" {
		return fmt.Errorf("%w: index name %q", domain.ErrInvalidInput, name)
	}

	exists, err := idx.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: check class %s: %w", domain.ErrVectorIndexUnavailable, class, err)
	}
	if !exists {
		if err := idx.client.Schema().ClassCreator().WithClass(classSchema(class, dimension)).Do(ctx); err != nil {
			return fmt.Errorf("%w: create class %s: %w", domain.ErrVectorIndexUnavailable, class, err)
		}
	}
	idx.class = class
	return nil
}

// Upsert writes records with deterministic UUIDs, so repeated IDs replace.
func (idx *Index) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if err := idx.bound(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(records))
	for i, r := range records {
		objects[i] = toObject(idx.class, namespace, r)
	}

	resp, err := idx.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: batch upsert: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return batchError(resp)
}

// Query runs a nearVector search restricted to namespace and session.
func (idx *Index) Query(ctx context.Context, namespace string, vector []float32, k int,
	filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if err := idx.bound(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	nearVector := idx.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	resp, err := idx.client.GraphQL().Get().
		WithClassName(idx.class).
		WithNearVector(nearVector).
		WithWhere(sessionWhere(namespace, filter.SessionID)).
		WithFields(queryFields()...).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrVectorIndexUnavailable, err)
	}
	if err := graphQLError(resp); err != nil {
		return nil, err
	}
	return parseMatches(resp, idx.class), nil
}

// DeleteNamespace batch-deletes every object in namespace.
func (idx *Index) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := idx.bound(); err != nil {
		return err
	}
	_, err := idx.client.Batch().ObjectsBatchDeleter().
		WithClassName(idx.class).
		WithOutput("minimal").
		WithWhere(namespaceWhere(namespace)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete namespace %s: %w", domain.ErrVectorIndexUnavailable, namespace, err)
	}
	return nil
}

// Describe counts objects in namespace with an Aggregate query.
func (idx *Index) Describe(ctx context.Context, namespace string) (domain.IndexStats, error) {
	stats := domain.IndexStats{Namespace: namespace}
	if err := idx.bound(); err != nil {
		return stats, err
	}
	resp, err := idx.client.GraphQL().Aggregate().
		WithClassName(idx.class).
		WithWhere(namespaceWhere(namespace)).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: aggregate: %w", domain.ErrVectorIndexUnavailable, err)
	}
	if err := graphQLError(resp); err != nil {
		return stats, err
	}
	stats.VectorCount = parseCount(resp, idx.class)
	return stats, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

func (idx *Index) bound() error {
	if idx.class == "" {
		return fmt.Errorf("%w: index not created", domain.ErrVectorIndexUnavailable)
	}
	return nil
}

// ClassName converts an index name such as "company-chatbot" to a valid
// class name ("CompanyChatbot").
func ClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if b.Len() == 0 && !unicode.IsLetter(r) {
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ObjectID derives a stable UUID for a record in a namespace.
func ObjectID(namespace, id string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+id)).String())
}

func classSchema(class string, dimension int) *models.Class {
	filterable := true
	searchable := false
	keyword := func(name string) *models.Property {
		return &models.Property{
			Name:            name,
			DataType:        []string{"text"},
			Tokenization:    models.PropertyTokenizationField,
			IndexFilterable: &filterable,
			IndexSearchable: &searchable,
		}
	}
	return &models.Class{
		Class:       class,
		Description: fmt.Sprintf("Document chunks, %d-dimensional cosine vectors", dimension),
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			keyword(propRecordID),
			{Name: propText, DataType: []string{"text"}},
			keyword(propSource),
			keyword(propDocType),
			{Name: propChunkIndex, DataType: []string{"int"}},
			keyword(propSessionID),
			keyword(propNamespace),
			{Name: propCreatedAt, DataType: []string{"date"}},
		},
	}
}

func toObject(class, namespace string, r domain.VectorRecord) *models.Object {
	created := r.Metadata.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &models.Object{
		Class: class,
		ID:    ObjectID(namespace, r.ID),
		Properties: map[string]interface{}{
			propRecordID:   r.ID,
			propText:       r.Metadata.Text,
			propSource:     r.Metadata.Source,
			propDocType:    string(r.Metadata.DocType),
			propChunkIndex: r.Metadata.ChunkIndex,
			propSessionID:  r.Metadata.SessionID,
			propNamespace:  namespace,
			propCreatedAt:  created.UTC().Format(time.RFC3339),
		},
		Vector: models.C11yVector(r.Vector),
	}
}

func namespaceWhere(namespace string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{propNamespace}).
		WithOperator(filters.Equal).
		WithValueText(namespace)
}

func sessionWhere(namespace, sessionID string) *filters.WhereBuilder {
	return filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			namespaceWhere(namespace),
			filters.Where().
				WithPath([]string{propSessionID}).
				WithOperator(filters.Equal).
				WithValueText(sessionID),
		})
}

func queryFields() []graphql.Field {
	return []graphql.Field{
		{Name: propRecordID},
		{Name: propText},
		{Name: propSource},
		{Name: propDocType},
		{Name: propChunkIndex},
		{Name: propSessionID},
		{Name: propNamespace},
		{Name: propCreatedAt},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}
}

func batchError(resp []models.ObjectsGetResponse) error {
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				return fmt.Errorf("%w: object %s: %s", domain.ErrVectorIndexUnavailable, r.ID, e.Message)
			}
		}
	}
	return nil
}

func graphQLError(resp *models.GraphQLResponse) error {
	if resp == nil || len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		if e != nil {
			msgs = append(msgs, e.Message)
		}
	}
	return fmt.Errorf("%w: graphql: %s", domain.ErrVectorIndexUnavailable, strings.Join(msgs, "; "))
}

// parseMatches reads Get.{class}[] from a GraphQL response. Score is
// 1 - cosine distance.
func parseMatches(resp *models.GraphQLResponse, class string) []domain.VectorMatch {
	items := classItems(resp, "Get", class)
	matches := make([]domain.VectorMatch, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		m := domain.VectorMatch{
			ID: stringProp(obj, propRecordID),
			Metadata: domain.RecordMetadata{
				Text:       stringProp(obj, propText),
				Source:     stringProp(obj, propSource),
				DocType:    domain.DocType(stringProp(obj, propDocType)),
				ChunkIndex: int(floatProp(obj, propChunkIndex)),
				SessionID:  stringProp(obj, propSessionID),
				Namespace:  stringProp(obj, propNamespace),
			},
		}
		if t, err := time.Parse(time.RFC3339, stringProp(obj, propCreatedAt)); err == nil {
			m.Metadata.CreatedAt = t
		}
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			m.Score = 1 - floatProp(add, "distance")
		}
		matches = append(matches, m)
	}
	return matches
}

// parseCount reads Aggregate.{class}[0].meta.count.
func parseCount(resp *models.GraphQLResponse, class string) int {
	items := classItems(resp, "Aggregate", class)
	if len(items) == 0 {
		return 0
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	return int(floatProp(meta, "count"))
}

func classItems(resp *models.GraphQLResponse, op, class string) []interface{} {
	if resp == nil || resp.Data == nil {
		return nil
	}
	data, ok := resp.Data[op].(map[string]interface{})
	if !ok {
		return nil
	}
	items, _ := data[class].([]interface{})
	return items
}

func stringProp(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatProp(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
