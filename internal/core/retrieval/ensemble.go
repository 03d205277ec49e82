package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

// RRFConstant is the reciprocal-rank-fusion smoothing constant. 60 is the
// standard value; it de-emphasizes rank-1 dominance so one retriever cannot
// drown out the rest.
const RRFConstant = 60

// Ensemble fuses the ranked lists of several retrievers with weighted
// reciprocal rank fusion. Raw scores across heterogeneous backends (cosine
// similarity, qualitative tiers, fulltext scores) are not comparable, so
// fusion is rank-based.
type Ensemble struct {
	retrievers []ports.Retriever
	weights    []float64
	topK       int
	rrfC       int
	logger     *slog.Logger
}

// NewEnsemble builds an ensemble over the given retrievers. A nil weights
// slice means equal weight 1.0 each; a weights slice of the wrong length is
// a configuration error surfaced immediately.
func NewEnsemble(retrievers []ports.Retriever, weights []float64, topK, rrfC int, logger *slog.Logger) (*Ensemble, error) {
	if weights != nil && len(weights) != len(retrievers) {
		return nil, domain.WrapError(domain.ErrWeightsMismatch, "new ensemble",
			errLengths(len(weights), len(retrievers)))
	}
	if weights == nil {
		weights = make([]float64, len(retrievers))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if rrfC <= 0 {
		rrfC = RRFConstant
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensemble{
		retrievers: retrievers,
		weights:    weights,
		topK:       topK,
		rrfC:       rrfC,
		logger:     logger,
	}, nil
}

func (e *Ensemble) Name() string { return "ensemble" }

// Retrieve fans the query bundle out to every member retriever, fuses the
// ranked lists and returns the top-k fused chunks. A failed member is
// logged and contributes nothing.
func (e *Ensemble) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	lists := make([][]domain.Chunk, len(e.retrievers))

	var wg sync.WaitGroup
	for i, retriever := range e.retrievers {
		wg.Add(1)
		go func(i int, retriever ports.Retriever) {
			defer wg.Done()
			chunks, err := retriever.Retrieve(ctx, queries, filter)
			if err != nil {
				e.logger.Warn("ensemble member failed",
					"retriever", retriever.Name(),
					"error", err,
				)
				return
			}
			lists[i] = chunks
		}(i, retriever)
	}
	wg.Wait()

	return e.weightedReciprocalRank(lists), nil
}

// weightedReciprocalRank accrues weight/(rank+c) per chunk_id over every
// member list (rank is 1-indexed), deduplicates by chunk_id keeping the
// first occurrence, and sorts by fused score descending. The sort is stable
// so ties keep first-contribution order and repeated calls with identical
// inputs are reproducible.
func (e *Ensemble) weightedReciprocalRank(lists [][]domain.Chunk) []domain.Chunk {
	fused := make(map[string]float64)
	for i, list := range lists {
		for rank, chunk := range list {
			fused[chunk.ChunkID] += e.weights[i] / float64(rank+1+e.rrfC)
		}
	}

	seen := make(map[string]bool, len(fused))
	out := make([]domain.Chunk, 0, len(fused))
	for _, list := range lists {
		for _, chunk := range list {
			if seen[chunk.ChunkID] {
				continue
			}
			seen[chunk.ChunkID] = true
			chunk.Score = fused[chunk.ChunkID]
			out = append(out, chunk)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if len(out) > e.topK {
		out = out[:e.topK]
	}
	return out
}
