package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
	"github.com/akarpov/specqa/internal/core/retrieval"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

// parentChildFactor over-fetches child chunks so enough distinct parents
// survive the aggregation.
const parentChildFactor = 3

// MultiVector retrieves against a child (fine-grained) collection and
// resolves hits to their parent chunks, aggregating child scores per
// parent. Parent and child chunk ids live in distinct namespaces; a parent
// id equal to some child id is not the same logical entity.
type MultiVector struct {
	client           *Client
	parentCollection string
	childCollection  string
	embedder         ports.Embedder
	topK             int
	executor         *resilience.Executor
	logger           *slog.Logger
}

func NewMultiVector(
	client *Client,
	parentCollection, childCollection string,
	embedder ports.Embedder,
	topK int,
	executor *resilience.Executor,
	logger *slog.Logger,
) *MultiVector {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiVector{
		client:           client,
		parentCollection: parentCollection,
		childCollection:  childCollection,
		embedder:         embedder,
		topK:             topK,
		executor:         executor,
		logger:           logger,
	}
}

func (r *MultiVector) Name() string { return "qdrant-multivector" }

func (r *MultiVector) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	nativeFilter, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	parentScores := make(map[string]float64)
	parentOrder := make([]string, 0)
	childHits := 0

	for _, query := range queries.Queries() {
		vector, err := r.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}

		var hits []searchHit
		err = r.executor.Execute(ctx, "qdrant.search_child", func(ctx context.Context) error {
			var searchErr error
			hits, searchErr = r.client.Search(ctx, r.childCollection, vector, r.topK*parentChildFactor, nativeFilter)
			return searchErr
		}, resilience.ClassifyTransient)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "qdrant multivector retrieve", err)
		}

		childHits += len(hits)
		for _, hit := range hits {
			parentID := stringValue(subMap(hit.Payload, "chunk_meta"), "parent_id")
			if parentID == "" {
				parentID = stringValue(hit.Payload, "parent_id")
			}
			if parentID == "" {
				continue
			}
			if _, seen := parentScores[parentID]; !seen {
				parentOrder = append(parentOrder, parentID)
			}
			parentScores[parentID] += hit.Score
		}
	}

	if len(parentScores) == 0 {
		r.logger.Warn("no parent chunks resolved", "child_hits", childHits)
		return nil, nil
	}

	normalizeScores(parentScores)

	var parents []searchHit
	err = r.executor.Execute(ctx, "qdrant.fetch_parents", func(ctx context.Context) error {
		var fetchErr error
		parents, fetchErr = r.client.FetchPoints(ctx, r.parentCollection, parentOrder)
		return fetchErr
	}, resilience.ClassifyTransient)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "qdrant multivector retrieve", err)
	}

	chunks := make([]domain.Chunk, 0, len(parents))
	for _, parent := range parents {
		chunk := processHit(parent, r.Name())
		score, ok := parentScores[chunk.ChunkID]
		if !ok {
			// A fetched parent without any scored child should not happen.
			r.logger.Warn("parent chunk has no scored children", "chunk_id", chunk.ChunkID)
			score = 0
		}
		chunk.Score = score
		chunk.ChunkMeta["score"] = score
		chunks = append(chunks, chunk)
	}

	retrieval.SortByScoreDesc(chunks)
	return retrieval.TrimTopK(chunks, r.topK), nil
}

// normalizeScores min-max scales the aggregated sums in place so parent
// scores are comparable with other adapters. A single parent, or all
// parents with equal sums, would divide by zero; those all map to the
// neutral 1.0.
func normalizeScores(scores map[string]float64) {
	var min, max float64
	first := true
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	if max == min {
		for id := range scores {
			scores[id] = 1.0
		}
		return
	}
	for id, s := range scores {
		scores[id] = (s - min) / (max - min)
	}
}
