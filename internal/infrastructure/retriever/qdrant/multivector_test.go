package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akarpov/specqa/internal/core/domain"
)

func TestMultiVectorResolvesParents(t *testing.T) {
	var fetchedIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/spec_chunks_child/points/search":
			_ = json.NewEncoder(w).Encode(searchResponse(
				searchHit{ID: "ch1", Score: 0.9, Payload: map[string]any{
					"chunk_meta": map[string]any{"parent_id": "parent-1"},
				}},
				searchHit{ID: "ch2", Score: 0.5, Payload: map[string]any{
					"chunk_meta": map[string]any{"parent_id": "parent-1"},
				}},
				searchHit{ID: "ch3", Score: 0.4, Payload: map[string]any{
					"parent_id": "parent-2",
				}},
			))
		case "/collections/spec_chunks/points":
			var body struct {
				IDs []string `json:"ids"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			fetchedIDs = body.IDs
			_ = json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{
				{"id": "parent-1", "payload": map[string]any{
					"text":       "parent one text",
					"doc_id":     "doc-1",
					"chunk_meta": map[string]any{"chunk_id": "parent-1"},
				}},
				{"id": "parent-2", "payload": map[string]any{
					"text":       "parent two text",
					"doc_id":     "doc-2",
					"chunk_meta": map[string]any{"chunk_id": "parent-2"},
				}},
			}})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	retriever := NewMultiVector(
		NewClient(server.URL), "spec_chunks", "spec_chunks_child",
		&fakeEmbedder{vector: []float32{0.1}}, 5, newTestExecutor(), nil,
	)

	chunks, err := retriever.Retrieve(context.Background(), domain.BundleFromQuestion("fees"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}
	// parent-1 aggregates 1.4 vs parent-2's 0.4, so after min-max scaling
	// parent-1 holds 1.0 and parent-2 0.0.
	if chunks[0].ChunkID != "parent-1" || chunks[0].Score != 1.0 {
		t.Fatalf("chunks[0] = %+v", chunks[0])
	}
	if chunks[1].ChunkID != "parent-2" || chunks[1].Score != 0.0 {
		t.Fatalf("chunks[1] = %+v", chunks[1])
	}
	if len(fetchedIDs) != 2 || fetchedIDs[0] != "parent-1" || fetchedIDs[1] != "parent-2" {
		t.Fatalf("fetched parent ids = %v", fetchedIDs)
	}
}

func TestMultiVectorNoParentsResolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse(
			searchHit{ID: "ch1", Score: 0.9, Payload: map[string]any{"text": "orphan child"}},
		))
	}))
	defer server.Close()

	retriever := NewMultiVector(
		NewClient(server.URL), "spec_chunks", "spec_chunks_child",
		&fakeEmbedder{vector: []float32{0.1}}, 5, newTestExecutor(), nil,
	)

	chunks, err := retriever.Retrieve(context.Background(), domain.BundleFromQuestion("fees"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected nil chunks, got %+v", chunks)
	}
}

func TestNormalizeScores(t *testing.T) {
	scores := map[string]float64{"a": 2.0, "b": 1.0, "c": 3.0}
	normalizeScores(scores)
	if scores["c"] != 1.0 || scores["b"] != 0.0 || scores["a"] != 0.5 {
		t.Fatalf("normalized = %v", scores)
	}

	single := map[string]float64{"only": 4.2}
	normalizeScores(single)
	if single["only"] != 1.0 {
		t.Fatalf("single parent must normalize to 1.0, got %v", single["only"])
	}

	equal := map[string]float64{"a": 2.0, "b": 2.0}
	normalizeScores(equal)
	if equal["a"] != 1.0 || equal["b"] != 1.0 {
		t.Fatalf("equal sums must normalize to 1.0, got %v", equal)
	}
}
