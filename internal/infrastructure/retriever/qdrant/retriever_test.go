package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

type fakeEmbedder struct {
	vector  []float32
	queries []string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	f.queries = append(f.queries, query)
	return f.vector, nil
}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
}

func searchResponse(hits ...searchHit) map[string]any {
	return map[string]any{"result": hits}
}

func TestRetrieveMapsHits(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/spec_chunks/points/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(searchResponse(
			searchHit{ID: "p1", Score: 0.9, Payload: map[string]any{
				"text":   "chunk text",
				"doc_id": "s3://bucket/spec.pdf",
				"doc_meta": map[string]any{
					"doc_type": "base",
					"doc_name": "spec.pdf",
				},
				"chunk_meta": map[string]any{"chunk_id": "c1"},
			}},
		))
	}))
	defer server.Close()

	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	retriever := New(NewClient(server.URL), "spec_chunks", embedder, 5, newTestExecutor())

	chunks, err := retriever.Retrieve(context.Background(), domain.BundleFromQuestion("fees"),
		domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: "base"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	chunk := chunks[0]
	if chunk.ChunkID != "c1" || chunk.DocID != "s3://bucket/spec.pdf" || chunk.Score != 0.9 {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
	if chunk.DocMeta["doc_type"] != "base" {
		t.Fatalf("doc meta not carried: %+v", chunk.DocMeta)
	}
	if chunk.SourceRetriever != "qdrant" {
		t.Fatalf("SourceRetriever = %q", chunk.SourceRetriever)
	}

	if len(embedder.queries) != 1 || embedder.queries[0] != "fees" {
		t.Fatalf("embedded queries = %v", embedder.queries)
	}
	if _, ok := gotBody["filter"]; !ok {
		t.Fatalf("translated filter not sent: %v", gotBody)
	}
}

func TestRetrieveIssuesOneSearchPerQuery(t *testing.T) {
	searches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		searches++
		_ = json.NewEncoder(w).Encode(searchResponse())
	}))
	defer server.Close()

	retriever := New(NewClient(server.URL), "spec_chunks", &fakeEmbedder{vector: []float32{0.1}}, 5, newTestExecutor())
	bundle := domain.QueryBundle{Translation: "fees", Rewriting: "fee schedule", HyDE: "fees are computed as"}

	if _, err := retriever.Retrieve(context.Background(), bundle, nil); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if searches != 3 {
		t.Fatalf("got %d searches, want 3", searches)
	}
}

func TestRetrieveWrapsBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	retriever := New(NewClient(server.URL), "spec_chunks", &fakeEmbedder{vector: []float32{0.1}}, 5, newTestExecutor())

	_, err := retriever.Retrieve(context.Background(), domain.BundleFromQuestion("fees"), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestProcessHitChunkIDFallback(t *testing.T) {
	// chunk_meta wins, then payload, then the point id.
	fromMeta := processHit(searchHit{ID: "p1", Payload: map[string]any{
		"chunk_meta": map[string]any{"chunk_id": "c-meta"},
		"chunk_id":   "c-payload",
	}}, "qdrant")
	if fromMeta.ChunkID != "c-meta" {
		t.Fatalf("ChunkID = %q, want c-meta", fromMeta.ChunkID)
	}

	fromPayload := processHit(searchHit{ID: "p1", Payload: map[string]any{"chunk_id": "c-payload"}}, "qdrant")
	if fromPayload.ChunkID != "c-payload" {
		t.Fatalf("ChunkID = %q, want c-payload", fromPayload.ChunkID)
	}

	fromID := processHit(searchHit{ID: "p1"}, "qdrant")
	if fromID.ChunkID != "p1" {
		t.Fatalf("ChunkID = %q, want point id", fromID.ChunkID)
	}

	synthetic := processHit(searchHit{ID: 42}, "qdrant")
	if synthetic.ChunkID == "" {
		t.Fatalf("expected synthetic chunk id for non-string point id")
	}
}

func TestProcessHitQualitativeScore(t *testing.T) {
	chunk := processHit(searchHit{ID: "p1", Payload: map[string]any{
		"chunk_meta": map[string]any{"chunk_id": "c1", "score": "HIGH"},
	}}, "qdrant")
	if chunk.Score != 0.75 {
		t.Fatalf("Score = %v, want normalized tier 0.75", chunk.Score)
	}
}
