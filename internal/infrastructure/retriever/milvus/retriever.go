package milvus

import (
	"context"
	"fmt"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
	"github.com/akarpov/specqa/internal/core/retrieval"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

const (
	vectorField = "embedding"
	searchEF    = 64
)

var outputFields = []string{"chunk_id", "doc_id", "doc_name", "doc_type", "base_doc_id", "version", "page", "text"}

// Retriever adapts one milvus collection to the generic retriever
// contract. The collection schema holds flat varchar metadata fields plus
// an HNSW-indexed embedding.
type Retriever struct {
	client     milvusclient.Client
	collection string
	metricType milvusentity.MetricType
	embedder   ports.Embedder
	topK       int
	executor   *resilience.Executor
}

func New(client milvusclient.Client, collection, metricType string, embedder ports.Embedder, topK int, executor *resilience.Executor) *Retriever {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if metricType == "" {
		metricType = string(milvusentity.COSINE)
	}
	return &Retriever{
		client:     client,
		collection: collection,
		metricType: milvusentity.MetricType(metricType),
		embedder:   embedder,
		topK:       topK,
		executor:   executor,
	}
}

// Dial connects a milvus client. Kept separate from New so tests can
// inject a fake client.
func Dial(ctx context.Context, address string) (milvusclient.Client, error) {
	cli, err := milvusclient.NewClient(ctx, milvusclient.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return cli, nil
}

func (r *Retriever) Name() string { return "milvus" }

func (r *Retriever) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	expr, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	searchParam, err := milvusentity.NewIndexHNSWSearchParam(searchEF)
	if err != nil {
		return nil, fmt.Errorf("milvus search param: %w", err)
	}

	var chunks []domain.Chunk
	for _, query := range queries.Queries() {
		vector, err := r.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}

		var results []milvusclient.SearchResult
		err = r.executor.Execute(ctx, "milvus.search", func(ctx context.Context) error {
			var searchErr error
			results, searchErr = r.client.Search(
				ctx,
				r.collection,
				nil,
				expr,
				outputFields,
				[]milvusentity.Vector{milvusentity.FloatVector(vector)},
				vectorField,
				r.metricType,
				r.topK,
				searchParam,
			)
			return searchErr
		}, resilience.ClassifyTransient)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "milvus retrieve", err)
		}

		for _, result := range results {
			chunks = append(chunks, processResult(result, r.Name())...)
		}
	}

	retrieval.SortByScoreDesc(chunks)
	return retrieval.TrimTopK(chunks, r.topK), nil
}

// processResult maps one milvus result set into chunks, splitting native
// flat fields into the two metadata levels.
func processResult(result milvusclient.SearchResult, source string) []domain.Chunk {
	fields := make(map[string]milvusentity.Column, len(result.Fields))
	for _, column := range result.Fields {
		fields[column.Name()] = column
	}

	chunks := make([]domain.Chunk, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		score := domain.NormalizeScore(result.Scores[i])

		docMeta := map[string]any{}
		for _, key := range []string{"doc_name", "doc_type", "base_doc_id", "version"} {
			if v := varcharAt(fields, key, i); v != "" {
				docMeta[key] = v
			}
		}

		chunkID := varcharAt(fields, "chunk_id", i)
		chunkMeta := map[string]any{
			"chunk_id": chunkID,
			"score":    score,
		}
		if page, ok := int64At(fields, "page", i); ok {
			chunkMeta["page"] = page
		}

		chunks = append(chunks, domain.Chunk{
			Text:            varcharAt(fields, "text", i),
			DocID:           varcharAt(fields, "doc_id", i),
			ChunkID:         chunkID,
			DocMeta:         docMeta,
			ChunkMeta:       chunkMeta,
			Score:           score,
			SourceRetriever: source,
		})
	}
	return chunks
}

func varcharAt(fields map[string]milvusentity.Column, name string, i int) string {
	column, ok := fields[name]
	if !ok {
		return ""
	}
	varchar, ok := column.(*milvusentity.ColumnVarChar)
	if !ok || i >= varchar.Len() {
		return ""
	}
	return varchar.Data()[i]
}

func int64At(fields map[string]milvusentity.Column, name string, i int) (int64, bool) {
	column, ok := fields[name]
	if !ok {
		return 0, false
	}
	ints, ok := column.(*milvusentity.ColumnInt64)
	if !ok || i >= ints.Len() {
		return 0, false
	}
	return ints.Data()[i], true
}
