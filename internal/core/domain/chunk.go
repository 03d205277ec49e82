package domain

import "strings"

// Document type values carried in DocMeta["doc_type"]. Base documents hold
// canonical specification text; additional documents amend a base document
// identified by DocMeta["base_doc_id"], or every base document when the
// base_doc_id is the wildcard.
const (
	DocTypeBase       = "base"
	DocTypeAdditional = "additional"

	// BaseDocWildcard marks an additional document that applies to any base
	// document, not one specific doc_id.
	BaseDocWildcard = "*"
)

// Chunk is one retrieved unit of text plus its two-level metadata.
// Adapters construct chunks from backend-native hits; after that the only
// mutation is score reassignment during multi-vector aggregation.
type Chunk struct {
	Text            string         `json:"text"`
	DocID           string         `json:"doc_id"`
	ChunkID         string         `json:"chunk_id"`
	DocMeta         map[string]any `json:"doc_meta,omitempty"`
	ChunkMeta       map[string]any `json:"chunk_meta,omitempty"`
	Score           float64        `json:"score"`
	SourceRetriever string         `json:"source_retriever,omitempty"`
}

// DocType reads the document type out of DocMeta.
func (c Chunk) DocType() string {
	return metaString(c.DocMeta, "doc_type")
}

// BaseDocID reads the base document linkage out of DocMeta. Empty for base
// documents.
func (c Chunk) BaseDocID() string {
	return metaString(c.DocMeta, "base_doc_id")
}

// DocName reads the human-readable document name out of DocMeta, falling
// back to the last path segment of the doc_id (typically a storage URI).
func (c Chunk) DocName() string {
	if name := metaString(c.DocMeta, "doc_name"); name != "" {
		return name
	}
	if idx := strings.LastIndex(c.DocID, "/"); idx >= 0 {
		return c.DocID[idx+1:]
	}
	return c.DocID
}

// CombinedChunks groups every retrieved chunk of one source document.
// Built fresh per retrieval call by the context assembler, never persisted.
type CombinedChunks struct {
	DocID     string         `json:"doc_id"`
	DocMeta   map[string]any `json:"doc_meta,omitempty"`
	Chunks    []Chunk        `json:"chunks"`
	MeanScore float64        `json:"mean_score"`
	MaxScore  float64        `json:"max_score"`
	Link      string         `json:"link,omitempty"`
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	v, ok := meta[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
