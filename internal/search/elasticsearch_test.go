package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-comments/internal/domain"
	"spa-comments/internal/search"
)

// fakeElasticsearch serves the few endpoints the indexer and reader call.
type fakeElasticsearch struct {
	mu          sync.Mutex
	indexExists bool
	docs        map[string][]byte
	lastSearch  map[string]any
	created     map[string]any
	requests    []string
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/comments":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case r.Method == http.MethodPut && r.URL.Path == "/comments":
		f.indexExists = true
		_ = json.Unmarshal(body, &f.created)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/comments/_doc/"):
		id := strings.TrimPrefix(r.URL.Path, "/comments/_doc/")
		_, existed := f.docs[id]
		f.docs[id] = body
		if existed {
			_, _ = w.Write([]byte(`{"result":"updated"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))

	case r.URL.Path == "/comments/_search":
		_ = json.Unmarshal(body, &f.lastSearch)
		var hits []string
		for _, doc := range f.docs {
			hits = append(hits, `{"_source":`+string(doc)+`}`)
		}
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":` + itoa(len(hits)) + `},"hits":[` + strings.Join(hits, ",") + `]}}`))

	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unexpected request"}`))
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newFakeClient(t *testing.T) (*fakeElasticsearch, *elasticsearch.Client) {
	t.Helper()
	fake := &fakeElasticsearch{docs: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return fake, es
}

func TestESIndexer_EnsureIndex(t *testing.T) {
	fake, es := newFakeClient(t)
	indexer := search.NewESIndexer(es, "comments")

	require.NoError(t, indexer.EnsureIndex(context.Background()))
	require.NoError(t, indexer.EnsureIndex(context.Background()))

	assert.Equal(t, []string{"HEAD /comments", "PUT /comments", "HEAD /comments"}, fake.requests)

	props := fake.created["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "comment_text", props["text"].(map[string]any)["analyzer"])
	analyzer := fake.created["settings"].(map[string]any)["analysis"].(map[string]any)["analyzer"].(map[string]any)["comment_text"].(map[string]any)
	assert.Equal(t, []any{"html_strip"}, analyzer["char_filter"])
}

func TestESIndexer_UpsertOverwritesById(t *testing.T) {
	fake, es := newFakeClient(t)
	indexer := search.NewESIndexer(es, "comments")
	doc := domain.SearchDocument{ID: uuid.New(), UserName: "Aurora7", Text: "first", CreatedAt: time.Now().UTC()}

	require.NoError(t, indexer.Upsert(context.Background(), doc))
	doc.Text = "second"
	require.NoError(t, indexer.Upsert(context.Background(), doc))

	require.Len(t, fake.docs, 1)
	var stored domain.SearchDocument
	require.NoError(t, json.Unmarshal(fake.docs[doc.ID.String()], &stored))
	assert.Equal(t, "second", stored.Text)
}

func TestESIndexer_UpsertReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"cluster_block_exception"}`))
	}))
	defer srv.Close()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 1, DisableRetry: true})
	require.NoError(t, err)

	err = search.NewESIndexer(es, "comments").Upsert(context.Background(), domain.SearchDocument{ID: uuid.New()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster_block_exception")
}

func TestESReader_Search(t *testing.T) {
	fake, es := newFakeClient(t)
	doc := domain.SearchDocument{ID: uuid.New(), UserName: "Aurora7", Text: "hello world", CreatedAt: time.Now().UTC()}
	require.NoError(t, search.NewESIndexer(es, "comments").Upsert(context.Background(), doc))

	reader := search.NewESReader(es, "comments")
	res, err := reader.Search(context.Background(), domain.SearchQuery{
		Text:     "hello",
		UserName: "Aurora7",
		Page:     2,
		PageSize: 5,
		SortBy:   domain.SearchSortUserName,
		SortDesc: true,
	})

	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, doc.ID, res.Data[0].ID)
	assert.EqualValues(t, 1, res.TotalItems)

	assert.EqualValues(t, 5, fake.lastSearch["from"])
	assert.EqualValues(t, 5, fake.lastSearch["size"])
	must := fake.lastSearch["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	assert.Len(t, must, 2)
	sort := fake.lastSearch["sort"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"order": "desc"}, sort["user_name.keyword"])
}

func TestESReader_MatchAllWithoutFilters(t *testing.T) {
	fake, es := newFakeClient(t)

	_, err := search.NewESReader(es, "comments").Search(context.Background(), domain.SearchQuery{Page: 1, PageSize: 10})

	require.NoError(t, err)
	query := fake.lastSearch["query"].(map[string]any)
	assert.Contains(t, query, "match_all")
	sort := fake.lastSearch["sort"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"order": "asc"}, sort["created_at"])
}
