package neofts

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/retrieval"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

// Retriever runs keyword search over a neo4j fulltext index of chunk
// nodes. It is the sparse counterpart to the vector adapters and is meant
// to be fused with them through the ensemble.
type Retriever struct {
	driver   neo4j.DriverWithContext
	index    string
	topK     int
	executor *resilience.Executor
}

func New(driver neo4j.DriverWithContext, index string, topK int, executor *resilience.Executor) *Retriever {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Retriever{
		driver:   driver,
		index:    index,
		topK:     topK,
		executor: executor,
	}
}

// Dial connects a neo4j driver. Kept separate from New so tests can
// inject a fake driver.
func Dial(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return driver, nil
}

func (r *Retriever) Name() string { return "neofts" }

func (r *Retriever) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	fragment, params, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}
	cypher := buildQuery(fragment)

	var chunks []domain.Chunk
	for _, query := range queries.Queries() {
		term := sanitizeLucene(query)
		if term == "" {
			continue
		}

		queryParams := map[string]any{
			"index": r.index,
			"query": term,
			"limit": r.topK,
		}
		for name, value := range params {
			queryParams[name] = value
		}

		var result *neo4j.EagerResult
		err = r.executor.Execute(ctx, "neofts.search", func(ctx context.Context) error {
			var runErr error
			result, runErr = neo4j.ExecuteQuery(ctx, r.driver, cypher, queryParams,
				neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithReadersRouting())
			return runErr
		}, resilience.ClassifyTransient)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "neofts retrieve", err)
		}

		for _, record := range result.Records {
			chunks = append(chunks, processRow(record.AsMap(), r.Name()))
		}
	}

	retrieval.SortByScoreDesc(chunks)
	return retrieval.TrimTopK(chunks, r.topK), nil
}

func buildQuery(fragment string) string {
	var b strings.Builder
	b.WriteString("CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score\n")
	if fragment != "" {
		b.WriteString("WHERE " + fragment + "\n")
	}
	b.WriteString("RETURN node.text AS text, node.docId AS docId, node.chunkId AS chunkId,\n")
	b.WriteString("       node.docName AS docName, node.docType AS docType, node.baseDocId AS baseDocId,\n")
	b.WriteString("       node.version AS version, node.page AS page, node.relevance AS relevance, score\n")
	b.WriteString("LIMIT $limit")
	return b.String()
}

// processRow maps one result row into a Chunk. Nodes annotated with a
// qualitative relevance tier use its normalized value instead of the raw
// Lucene score, so fused ranks stay on one scale.
func processRow(row map[string]any, source string) domain.Chunk {
	score := domain.NormalizeScore(row["score"])
	if relevance, ok := row["relevance"].(string); ok && relevance != "" {
		score = domain.NormalizeScore(relevance)
	}

	docMeta := map[string]any{}
	for key, column := range map[string]string{
		"doc_name":    "docName",
		"doc_type":    "docType",
		"base_doc_id": "baseDocId",
		"version":     "version",
	} {
		if v, ok := row[column].(string); ok && v != "" {
			docMeta[key] = v
		}
	}

	chunkID, _ := row["chunkId"].(string)
	chunkMeta := map[string]any{
		"chunk_id": chunkID,
		"score":    score,
	}
	if page, ok := row["page"].(int64); ok {
		chunkMeta["page"] = page
	}

	text, _ := row["text"].(string)
	docID, _ := row["docId"].(string)
	return domain.Chunk{
		Text:            text,
		DocID:           docID,
		ChunkID:         chunkID,
		DocMeta:         docMeta,
		ChunkMeta:       chunkMeta,
		Score:           score,
		SourceRetriever: source,
	}
}

// sanitizeLucene strips Lucene query syntax from user text so free-form
// questions cannot break the fulltext parser.
func sanitizeLucene(query string) string {
	replacer := strings.NewReplacer(
		"+", " ", "-", " ", "&&", " ", "||", " ", "!", " ",
		"(", " ", ")", " ", "{", " ", "}", " ", "[", " ", "]", " ",
		"^", " ", "\"", " ", "~", " ", "*", " ", "?", " ",
		":", " ", "\\", " ", "/", " ",
	)
	return strings.TrimSpace(strings.Join(strings.Fields(replacer.Replace(query)), " "))
}
