package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dsipek/nj-search-engine/internal/builder"
	"github.com/Dsipek/nj-search-engine/internal/cache"
	"github.com/Dsipek/nj-search-engine/internal/index"
	"github.com/Dsipek/nj-search-engine/internal/scorer"
	"github.com/Dsipek/nj-search-engine/internal/tokenizer"
)

type testEnv struct {
	handler  *Handler
	store    *index.Store
	indexDir string
}

func newTestEnv(t *testing.T, docs ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := index.New(
		filepath.Join(dir, "inverted_index.json"),
		filepath.Join(dir, "term_frequencies.json"),
	)
	if len(docs) > 0 {
		tokenized := make([][]string, len(docs))
		for i, doc := range docs {
			tokenized[i] = tokenizer.Tokenize(doc)
		}
		if err := store.Rebuild(tokenized); err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
	}

	resultCache := cache.NewResultCache(cache.NopBackend{}, time.Hour)
	h := New(scorer.New(store, resultCache), builder.New(store), resultCache, nil, 1<<20)
	return &testEnv{handler: h, store: store, indexDir: dir}
}

func searchRequest(t *testing.T, query string) *http.Request {
	t.Helper()
	body, err := json.Marshal(SearchRequest{Query: query})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSearchReturnsFullRanking(t *testing.T) {
	env := newTestEnv(t, "cat sat", "cat ran", "dog slept")

	rec := httptest.NewRecorder()
	env.handler.Search(rec, searchRequest(t, "cat"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want all 3 documents", len(resp.Results))
	}
	if resp.Results[0].DocumentID != 0 || resp.Results[1].DocumentID != 1 {
		t.Errorf("top results = %+v, want documents 0 and 1 first", resp.Results[:2])
	}
	if resp.Results[2].DocumentID != 2 || resp.Results[2].Score != 0 {
		t.Errorf("last result = %+v, want document 2 with score 0", resp.Results[2])
	}
}

func TestSearchEmptyQueryIsValid(t *testing.T) {
	env := newTestEnv(t, "cat", "dog")

	rec := httptest.NewRecorder()
	env.handler.Search(rec, searchRequest(t, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	for i, r := range resp.Results {
		if r.DocumentID != i || r.Score != 0 {
			t.Errorf("result %d = %+v, want document %d with score 0", i, r, i)
		}
	}
}

func TestSearchRejectsInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	env.handler.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAddDocumentAcceptsTxtUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.AddDocument(rec, uploadRequest(t, "doc.txt", []byte("cat ran")))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rec.Code, rec.Body)
	}
	var resp AddDocumentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.DocumentID != 0 {
		t.Errorf("document_id = %d, want 0", resp.DocumentID)
	}
	if got := env.store.DocCount(); got != 1 {
		t.Errorf("DocCount = %d, want 1", got)
	}

	// The new document is immediately searchable.
	searchRec := httptest.NewRecorder()
	env.handler.Search(searchRec, searchRequest(t, "ran"))
	var searchResp SearchResponse
	if err := json.NewDecoder(searchRec.Body).Decode(&searchResp); err != nil {
		t.Fatal(err)
	}
	if len(searchResp.Results) != 1 || searchResp.Results[0].Score <= 0 {
		t.Errorf("results after ingest = %+v, want one positive-score document", searchResp.Results)
	}
}

func TestAddDocumentRejectsNonTxtAndLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)

	// Establish persisted files to compare against.
	okRec := httptest.NewRecorder()
	env.handler.AddDocument(okRec, uploadRequest(t, "base.txt", []byte("cat")))
	if okRec.Code != http.StatusCreated {
		t.Fatalf("setup upload status = %d", okRec.Code)
	}
	invBefore, err := os.ReadFile(filepath.Join(env.indexDir, "inverted_index.json"))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	env.handler.AddDocument(rec, uploadRequest(t, "image.png", []byte("cat")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := env.store.DocCount(); got != 1 {
		t.Errorf("DocCount = %d after rejection, want 1", got)
	}
	invAfter, err := os.ReadFile(filepath.Join(env.indexDir, "inverted_index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(invBefore, invAfter) {
		t.Error("persisted inverted index changed after rejected upload")
	}
}

func TestAddDocumentRequiresFileField(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	env.handler.AddDocument(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, "cat")

	env.handler.Search(httptest.NewRecorder(), searchRequest(t, "cat"))

	rec := httptest.NewRecorder()
	env.handler.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"hits", "misses", "total", "hit_rate"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats response missing %q: %v", key, stats)
		}
	}
}
