package retrieval

import (
	"context"
	"testing"

	"github.com/akarpov/specqa/internal/core/domain"
)

type phasedRetriever struct {
	responses [][]domain.Chunk
	filters   []domain.Filter
}

func (f *phasedRetriever) Name() string { return "phased" }
func (f *phasedRetriever) Retrieve(_ context.Context, _ domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	f.filters = append(f.filters, filter)
	call := len(f.filters) - 1
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return nil, nil
}

func typedChunk(chunkID, docID, docType, baseDocID string, score float64) domain.Chunk {
	return domain.Chunk{
		ChunkID: chunkID,
		DocID:   docID,
		Text:    "text " + chunkID,
		Score:   score,
		DocMeta: map[string]any{
			"doc_type":    docType,
			"base_doc_id": baseDocID,
		},
	}
}

func TestHierarchicalSplitsBudgetAndScopesAdditional(t *testing.T) {
	inner := &phasedRetriever{responses: [][]domain.Chunk{
		{
			typedChunk("b1", "base-1", domain.DocTypeBase, "", 0.9),
			typedChunk("b2", "base-1", domain.DocTypeBase, "", 0.8),
			typedChunk("b3", "base-2", domain.DocTypeBase, "", 0.7),
			typedChunk("b4", "base-2", domain.DocTypeBase, "", 0.6),
			typedChunk("b5", "base-3", domain.DocTypeBase, "", 0.5),
		},
		{
			typedChunk("a1", "amend-1", domain.DocTypeAdditional, "base-1", 0.85),
			typedChunk("a2", "amend-2", domain.DocTypeAdditional, "base-2", 0.65),
			typedChunk("a3", "amend-3", domain.DocTypeAdditional, "*", 0.55),
		},
	}}

	h := NewHierarchical(inner, 6, 0.7, nil)
	chunks, err := h.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	// floor(6*0.7) = 4 base chunks, 6-4 = 2 additional.
	if len(chunks) != 6 {
		t.Fatalf("got %d chunks, want 6: %+v", len(chunks), chunks)
	}
	for i, want := range []string{"b1", "b2", "b3", "b4", "a1", "a2"} {
		if chunks[i].ChunkID != want {
			t.Fatalf("chunks[%d] = %q, want %q", i, chunks[i].ChunkID, want)
		}
	}

	if len(inner.filters) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(inner.filters))
	}
	basePred, ok := inner.filters[0].(domain.FilterPredicate)
	if !ok || basePred.Op != domain.OpEquals || basePred.Key != "doc_type" || basePred.Value != domain.DocTypeBase {
		t.Fatalf("unexpected base phase filter: %+v", inner.filters[0])
	}
	expr, ok := inner.filters[1].(domain.FilterExpression)
	if !ok || expr.Op != domain.OpAndAll || len(expr.Predicates) != 2 {
		t.Fatalf("unexpected additional phase filter: %+v", inner.filters[1])
	}
	inPred, ok := expr.Predicates[1].(domain.FilterPredicate)
	if !ok || inPred.Op != domain.OpIn || inPred.Key != "base_doc_id" {
		t.Fatalf("unexpected scope predicate: %+v", expr.Predicates[1])
	}
	scope, ok := inPred.Value.([]string)
	if !ok {
		t.Fatalf("scope value type %T", inPred.Value)
	}
	wantScope := []string{"base-1", "base-2", domain.BaseDocWildcard}
	if len(scope) != len(wantScope) {
		t.Fatalf("scope = %v, want %v", scope, wantScope)
	}
	for i := range wantScope {
		if scope[i] != wantScope[i] {
			t.Fatalf("scope[%d] = %q, want %q", i, scope[i], wantScope[i])
		}
	}
}

func TestHierarchicalKeepsWildcardScopeWithoutBaseHits(t *testing.T) {
	inner := &phasedRetriever{responses: [][]domain.Chunk{
		nil,
		{typedChunk("a1", "amend-1", domain.DocTypeAdditional, "*", 0.9)},
	}}

	h := NewHierarchical(inner, 5, 0.6, nil)
	chunks, err := h.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].ChunkID != "a1" {
		t.Fatalf("expected wildcard additional chunk, got %+v", chunks)
	}

	expr := inner.filters[1].(domain.FilterExpression)
	inPred := expr.Predicates[1].(domain.FilterPredicate)
	scope := inPred.Value.([]string)
	if len(scope) != 1 || scope[0] != domain.BaseDocWildcard {
		t.Fatalf("scope = %v, want wildcard only", scope)
	}
}

func TestHierarchicalMergesUserFilterIntoBothPhases(t *testing.T) {
	inner := &phasedRetriever{}
	userFilter := domain.FilterPredicate{Op: domain.OpEquals, Key: "version", Value: "2024"}

	h := NewHierarchical(inner, 5, 0.6, nil)
	if _, err := h.Retrieve(context.Background(), bundle("q"), userFilter); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	for phase, filter := range inner.filters {
		expr, ok := filter.(domain.FilterExpression)
		if !ok || expr.Op != domain.OpAndAll {
			t.Fatalf("phase %d: expected andAll merge, got %+v", phase, filter)
		}
		first, ok := expr.Predicates[0].(domain.FilterPredicate)
		if !ok || first.Key != "version" {
			t.Fatalf("phase %d: user filter not preserved: %+v", phase, expr.Predicates[0])
		}
	}
}

func TestHierarchicalKeepsOrphanedAdditionalChunks(t *testing.T) {
	inner := &phasedRetriever{responses: [][]domain.Chunk{
		{typedChunk("b1", "base-1", domain.DocTypeBase, "", 0.9)},
		{typedChunk("a1", "amend-1", domain.DocTypeAdditional, "base-unknown", 0.8)},
	}}

	h := NewHierarchical(inner, 5, 0.6, nil)
	chunks, err := h.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// Orphan linkage is logged, never dropped.
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}
}
