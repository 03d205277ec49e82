package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

type fakeRetriever struct {
	name   string
	chunks []domain.Chunk
	err    error
	filter domain.Filter
	calls  int
}

func (f *fakeRetriever) Name() string { return f.name }
func (f *fakeRetriever) Retrieve(_ context.Context, _ domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	f.filter = filter
	f.calls++
	return f.chunks, f.err
}

func chunk(chunkID, docID string, score float64) domain.Chunk {
	return domain.Chunk{
		ChunkID:         chunkID,
		DocID:           docID,
		Text:            "text " + chunkID,
		Score:           score,
		SourceRetriever: "fake",
	}
}

func bundle(q string) domain.QueryBundle {
	return domain.BundleFromQuestion(q)
}

func TestEnsembleFusesAndDeduplicates(t *testing.T) {
	first := &fakeRetriever{name: "r1", chunks: []domain.Chunk{chunk("a", "d1", 0.9), chunk("b", "d2", 0.7)}}
	second := &fakeRetriever{name: "r2", chunks: []domain.Chunk{chunk("b", "d2", 0.95), chunk("c", "d3", 0.5)}}
	third := &fakeRetriever{name: "r3", chunks: []domain.Chunk{chunk("a", "d1", 0.6)}}

	ensemble, err := NewEnsemble([]ports.Retriever{first, second, third}, nil, 10, RRFConstant, nil)
	if err != nil {
		t.Fatalf("NewEnsemble() error = %v", err)
	}

	fused, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	// a: 1/61 from two rank-1 appearances, b: 1/62 + 1/61, c: 1/62.
	wantOrder := []string{"a", "b", "c"}
	if len(fused) != len(wantOrder) {
		t.Fatalf("got %d chunks, want %d: %+v", len(fused), len(wantOrder), fused)
	}
	for i, want := range wantOrder {
		if fused[i].ChunkID != want {
			t.Fatalf("fused[%d] = %q, want %q (full: %+v)", i, fused[i].ChunkID, want, fused)
		}
	}
	if fused[0].Score <= fused[1].Score || fused[1].Score <= fused[2].Score {
		t.Fatalf("scores not descending: %v %v %v", fused[0].Score, fused[1].Score, fused[2].Score)
	}
}

func TestEnsembleIsDeterministic(t *testing.T) {
	first := &fakeRetriever{name: "r1", chunks: []domain.Chunk{chunk("a", "d1", 0.9), chunk("b", "d2", 0.7)}}
	second := &fakeRetriever{name: "r2", chunks: []domain.Chunk{chunk("c", "d3", 0.95), chunk("a", "d1", 0.5)}}

	ensemble, err := NewEnsemble([]ports.Retriever{first, second}, nil, 10, RRFConstant, nil)
	if err != nil {
		t.Fatalf("NewEnsemble() error = %v", err)
	}

	baseline, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for run := 0; run < 5; run++ {
		fused, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(fused) != len(baseline) {
			t.Fatalf("run %d: got %d chunks, want %d", run, len(fused), len(baseline))
		}
		for i := range baseline {
			if fused[i].ChunkID != baseline[i].ChunkID || fused[i].Score != baseline[i].Score {
				t.Fatalf("run %d: fused[%d] = %+v, want %+v", run, i, fused[i], baseline[i])
			}
		}
	}
}

func TestEnsembleWeightsShiftRanking(t *testing.T) {
	first := &fakeRetriever{name: "r1", chunks: []domain.Chunk{chunk("a", "d1", 0.9)}}
	second := &fakeRetriever{name: "r2", chunks: []domain.Chunk{chunk("b", "d2", 0.8)}}

	ensemble, err := NewEnsemble([]ports.Retriever{first, second}, []float64{0.1, 2.0}, 10, RRFConstant, nil)
	if err != nil {
		t.Fatalf("NewEnsemble() error = %v", err)
	}

	fused, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(fused) != 2 || fused[0].ChunkID != "b" {
		t.Fatalf("expected weighted member to win, got %+v", fused)
	}
}

func TestEnsembleSkipsFailedMember(t *testing.T) {
	healthy := &fakeRetriever{name: "ok", chunks: []domain.Chunk{chunk("a", "d1", 0.9)}}
	broken := &fakeRetriever{name: "broken", err: errors.New("backend down")}

	ensemble, err := NewEnsemble([]ports.Retriever{healthy, broken}, nil, 10, RRFConstant, nil)
	if err != nil {
		t.Fatalf("NewEnsemble() error = %v", err)
	}

	fused, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(fused) != 1 || fused[0].ChunkID != "a" {
		t.Fatalf("expected only healthy contribution, got %+v", fused)
	}
}

func TestEnsembleTruncatesToTopK(t *testing.T) {
	first := &fakeRetriever{name: "r1", chunks: []domain.Chunk{
		chunk("a", "d1", 0.9), chunk("b", "d1", 0.8), chunk("c", "d1", 0.7),
	}}

	ensemble, err := NewEnsemble([]ports.Retriever{first, &fakeRetriever{name: "r2"}}, nil, 2, RRFConstant, nil)
	if err != nil {
		t.Fatalf("NewEnsemble() error = %v", err)
	}

	fused, err := ensemble.Retrieve(context.Background(), bundle("q"), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(fused) != 2 {
		t.Fatalf("got %d chunks, want 2", len(fused))
	}
}

func TestNewEnsembleRejectsWeightsMismatch(t *testing.T) {
	_, err := NewEnsemble([]ports.Retriever{&fakeRetriever{name: "r1"}}, []float64{0.5, 0.5}, 5, RRFConstant, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrWeightsMismatch) {
		t.Fatalf("expected ErrWeightsMismatch, got %v", err)
	}
}
