// Package search keeps the Elasticsearch copy of transaction records and
// answers full-text queries over it.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/metrics"
	"github.com/pennywise/finance/shared/models"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "accountId":   {"type": "keyword"},
      "userId":      {"type": "keyword"},
      "amount":      {"type": "double"},
      "type":        {"type": "keyword"},
      "category":    {"type": "keyword", "fields": {"text": {"type": "text"}}},
      "description": {"type": "text"},
      "occurredAt":  {"type": "date"}
    }
  }
}`

// RecordIndex is the Elasticsearch-backed record index.
type RecordIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

func NewRecordIndex(es *elasticsearch.Client, index string) *RecordIndex {
	return &RecordIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping if it does not exist.
func (i *RecordIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

// Index writes or replaces the document for a record.
func (i *RecordIndex) Index(ctx context.Context, doc *models.RecordDocument) (err error) {
	defer func() { metrics.RecordSearchOp("index", err) }()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index record %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// Delete removes a record's document. A missing document is not an error.
func (i *RecordIndex) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.RecordSearchOp("delete", err) }()

	res, err := i.es.Delete(i.index, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.RecordDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query restricted to q.UserID.
func (i *RecordIndex) Search(ctx context.Context, q cqrs.SearchRecordsQuery) (docs []models.RecordDocument, err error) {
	defer func() { metrics.RecordSearchOp("search", err) }()

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	docs = make([]models.RecordDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// buildQuery turns a search request into an Elasticsearch bool query. The
// user filter is always present.
func buildQuery(q cqrs.SearchRecordsQuery) map[string]any {
	size := q.Limit
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	filter := []any{
		map[string]any{"term": map[string]any{"userId": q.UserID}},
	}
	if q.Category != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"category": q.Category}})
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		rng := map[string]any{}
		if !q.From.IsZero() {
			rng["gte"] = q.From.UTC().Format(time.RFC3339)
		}
		if !q.To.IsZero() {
			rng["lt"] = q.To.UTC().Format(time.RFC3339)
		}
		filter = append(filter, map[string]any{"range": map[string]any{"occurredAt": rng}})
	}

	boolQuery := map[string]any{"filter": filter}
	sort := []any{map[string]any{"occurredAt": "desc"}}
	if q.Text != "" {
		boolQuery["must"] = []any{map[string]any{
			"multi_match": map[string]any{
				"query":     q.Text,
				"fields":    []string{"description", "category.text"},
				"fuzziness": "AUTO",
			},
		}}
		sort = append([]any{"_score"}, sort...)
	}

	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"sort":  sort,
	}
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("elasticsearch %s failed: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}
