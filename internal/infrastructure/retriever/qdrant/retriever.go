package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
	"github.com/akarpov/specqa/internal/core/retrieval"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

// Retriever adapts one qdrant collection to the generic retriever contract.
type Retriever struct {
	client     *Client
	collection string
	embedder   ports.Embedder
	topK       int
	executor   *resilience.Executor
}

func New(client *Client, collection string, embedder ports.Embedder, topK int, executor *resilience.Executor) *Retriever {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Retriever{
		client:     client,
		collection: collection,
		embedder:   embedder,
		topK:       topK,
		executor:   executor,
	}
}

func (r *Retriever) Name() string { return "qdrant" }

// Retrieve embeds each query formulation, searches the collection with the
// translated filter, maps hits into chunks and returns the top-k by score.
func (r *Retriever) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	nativeFilter, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, query := range queries.Queries() {
		vector, err := r.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}

		var hits []searchHit
		err = r.executor.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
			var searchErr error
			hits, searchErr = r.client.Search(ctx, r.collection, vector, r.topK, nativeFilter)
			return searchErr
		}, resilience.ClassifyTransient)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "qdrant retrieve", err)
		}

		for _, hit := range hits {
			chunks = append(chunks, processHit(hit, r.Name()))
		}
	}

	retrieval.SortByScoreDesc(chunks)
	return retrieval.TrimTopK(chunks, r.topK), nil
}

// processHit maps one native point into a Chunk: text, doc/chunk ids, the
// two metadata levels, and the normalized score. Points indexed without a
// chunk_id get a synthetic one so fusion dedup still has a key.
func processHit(hit searchHit, source string) domain.Chunk {
	docMeta := subMap(hit.Payload, "doc_meta")
	chunkMeta := subMap(hit.Payload, "chunk_meta")

	chunkID := stringValue(chunkMeta, "chunk_id")
	if chunkID == "" {
		chunkID = stringValue(hit.Payload, "chunk_id")
	}
	if chunkID == "" {
		if s, ok := hit.ID.(string); ok && s != "" {
			chunkID = s
		} else {
			chunkID = uuid.NewString()
		}
	}

	score := hit.Score
	if raw, ok := chunkMeta["score"]; ok && score == 0 {
		score = domain.NormalizeScore(raw)
	}
	if chunkMeta == nil {
		chunkMeta = map[string]any{}
	}
	chunkMeta["chunk_id"] = chunkID
	chunkMeta["score"] = score

	return domain.Chunk{
		Text:            stringValue(hit.Payload, "text"),
		DocID:           stringValue(hit.Payload, "doc_id"),
		ChunkID:         chunkID,
		DocMeta:         docMeta,
		ChunkMeta:       chunkMeta,
		Score:           score,
		SourceRetriever: source,
	}
}

func subMap(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	if m, ok := payload[key].(map[string]any); ok {
		return m
	}
	return nil
}

func stringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
