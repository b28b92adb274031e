package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/pkg/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCluster answers the handful of endpoints the engine calls.
type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	created     string
	indexed     map[string]domain.CompanyDocument
	lastSearch  map[string]any
	bulkLines   int
	bulkFail    bool
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && len(parts) == 1:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && len(parts) == 1:
		f.created = string(body)
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "_doc":
		var doc domain.CompanyDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception","reason":"bad doc"},"status":400}`))
			return
		}
		f.indexed[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodDelete && len(parts) == 3:
		if _, ok := f.indexed[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return
		}
		delete(f.indexed, parts[2])
		_, _ = w.Write([]byte(`{"result":"deleted"}`))
	case len(parts) == 2 && parts[1] == "_search":
		f.lastSearch = map[string]any{}
		_ = json.Unmarshal(body, &f.lastSearch)
		resp := map[string]any{"took": 3}
		hits := make([]map[string]any, 0, len(f.indexed))
		for _, d := range f.indexed {
			hits = append(hits, map[string]any{"_source": d})
		}
		resp["hits"] = map[string]any{
			"total": map[string]any{"value": len(hits)},
			"hits":  hits,
		}
		_ = json.NewEncoder(w).Encode(resp)
	case len(parts) == 2 && parts[1] == "_bulk":
		f.bulkLines = strings.Count(string(body), "\n")
		if f.bulkFail {
			_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"_id":"c-1","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [rating]"}}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"illegal_argument_exception","reason":"unexpected request"},"status":400}`))
	}
}

func newFakeEngine(t *testing.T, existing bool) (*Engine, *fakeCluster) {
	t.Helper()
	fake := &fakeCluster{indexExists: existing, indexed: map[string]domain.CompanyDocument{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	eng, err := New(context.Background(), srv.URL, "", testLogger())
	require.NoError(t, err)
	return eng, fake
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	eng, fake := newFakeEngine(t, false)

	assert.Equal(t, DefaultIndexName, eng.indexName)
	assert.Contains(t, fake.created, `"arabic_stemmer"`)
	assert.True(t, json.Valid([]byte(fake.created)))
	assert.NoError(t, eng.Ping(context.Background()))
}

func TestNew_KeepsExistingIndex(t *testing.T) {
	_, fake := newFakeEngine(t, true)
	assert.Empty(t, fake.created)
}

func TestEngine_IndexSearchDelete(t *testing.T) {
	ctx := context.Background()
	eng, fake := newFakeEngine(t, true)

	doc := &domain.CompanyDocument{ID: "c-1", Slug: "al-bustan", Name: "Al Bustan", Rating: 4.5, ReviewsCount: 12}
	require.NoError(t, eng.Index(ctx, doc))
	assert.Equal(t, "Al Bustan", fake.indexed["c-1"].Name)

	res, err := eng.Search(ctx, &domain.CompanySearchQuery{Text: "bustan", Page: 2, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, int64(3), res.TookMs)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, 4.5, res.Companies[0].Rating)
	assert.EqualValues(t, 5, fake.lastSearch["from"])
	assert.EqualValues(t, 5, fake.lastSearch["size"])

	require.NoError(t, eng.Delete(ctx, "c-1"))
	require.NoError(t, eng.Delete(ctx, "c-1"), "missing document is ignored")
	assert.Empty(t, fake.indexed)
}

func TestEngine_BulkIndex(t *testing.T) {
	ctx := context.Background()
	eng, fake := newFakeEngine(t, true)

	require.NoError(t, eng.BulkIndex(ctx, nil))

	docs := []domain.CompanyDocument{{ID: "c-1"}, {ID: "c-2"}}
	require.NoError(t, eng.BulkIndex(ctx, docs))
	assert.Equal(t, 4, fake.bulkLines)

	fake.bulkFail = true
	err := eng.BulkIndex(ctx, docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=c-1: mapper_parsing_exception")
}

func TestBuildSearchQuery(t *testing.T) {
	country := "sa"
	minRating := 4.0
	q := &domain.CompanySearchQuery{
		Text:         "  grill ",
		CountryID:    &country,
		MinRating:    &minRating,
		VerifiedOnly: true,
		Sort:         domain.CompanySortRating,
	}

	body := buildSearchQuery(q, pagination.New(1, 20))

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)[0].(map[string]any)
	assert.Equal(t, "grill", must["multi_match"].(map[string]any)["query"])
	assert.Len(t, boolQuery["filter"], 3)
	assert.Equal(t, []any{
		map[string]any{"rating": "desc"},
		map[string]any{"reviews_count": "desc"},
	}, body["sort"])

	body = buildSearchQuery(&domain.CompanySearchQuery{}, pagination.New(0, 0))
	boolQuery = body["query"].(map[string]any)["bool"].(map[string]any)
	assert.Contains(t, boolQuery["must"].([]any)[0], "match_all")
	assert.NotContains(t, boolQuery, "filter")
	assert.Equal(t, 0, body["from"])
	assert.Equal(t, 20, body["size"])
}
