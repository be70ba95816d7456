package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"spa-comments/internal/domain"
)

// Stored text is sanitized markup; html_strip drops the tags and decodes
// entities before tokenizing.
const indexMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "comment_text": {
          "type": "custom",
          "char_filter": ["html_strip"],
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "parent_id":      { "type": "keyword" },
      "user_name":      { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 64 } } },
      "email":          { "type": "keyword" },
      "home_page":      { "type": "keyword", "index": false },
      "text":           { "type": "text", "analyzer": "comment_text" },
      "created_at":     { "type": "date" },
      "attachment_ids": { "type": "keyword" }
    }
  }
}`

type Indexer interface {
	Upsert(ctx context.Context, doc domain.SearchDocument) error
}

type ESIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewESIndexer(es *elasticsearch.Client, index string) *ESIndexer {
	return &ESIndexer{es: es, index: index}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (i *ESIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: unexpected status %s", i.index, res.Status())
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body := responseError(res)
		if strings.Contains(body, "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index %s: %s", i.index, body)
	}
	return nil
}

// Upsert writes the document under the comment id, replacing any previous
// version.
func (i *ESIndexer) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}

	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(doc.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s: %s", doc.ID, responseError(res))
	}
	return nil
}

func responseError(res *esapi.Response) string {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Sprintf("%s: %s", res.Status(), bytes.TrimSpace(data))
}
