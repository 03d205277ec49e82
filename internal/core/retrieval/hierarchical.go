package retrieval

import (
	"context"
	"log/slog"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

// DefaultBaseRatio controls how much of the top-k budget favors canonical
// base text over amendments. The optimal value is a product decision; it is
// a tunable, not a constant.
const DefaultBaseRatio = 0.6

// Hierarchical wraps any retriever with two-phase base/additional
// retrieval: base chunks first, then additional chunks scoped to the base
// documents actually retrieved (plus the wildcard).
type Hierarchical struct {
	inner     ports.Retriever
	topK      int
	baseRatio float64
	logger    *slog.Logger
}

func NewHierarchical(inner ports.Retriever, topK int, baseRatio float64, logger *slog.Logger) *Hierarchical {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if baseRatio <= 0 || baseRatio > 1 {
		baseRatio = DefaultBaseRatio
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hierarchical{inner: inner, topK: topK, baseRatio: baseRatio, logger: logger}
}

func (h *Hierarchical) Name() string { return "hierarchical(" + h.inner.Name() + ")" }

func (h *Hierarchical) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error) {
	baseFilter := domain.And(filter, domain.FilterPredicate{
		Op: domain.OpEquals, Key: "doc_type", Value: domain.DocTypeBase,
	})
	baseChunks, err := h.inner.Retrieve(ctx, queries, baseFilter)
	if err != nil {
		h.logger.Warn("base phase retrieval failed", "error", err)
		baseChunks = nil
	}

	baseBudget := int(float64(h.topK) * h.baseRatio)
	if len(baseChunks) > baseBudget {
		baseChunks = baseChunks[:baseBudget]
	}

	// The wildcard is always in scope so globally-applicable addenda stay
	// reachable even when phase 1 returned nothing.
	baseDocIDs := []string{}
	seen := map[string]bool{}
	for _, c := range baseChunks {
		if !seen[c.DocID] {
			seen[c.DocID] = true
			baseDocIDs = append(baseDocIDs, c.DocID)
		}
	}
	baseDocIDs = append(baseDocIDs, domain.BaseDocWildcard)

	additionalFilter := domain.And(filter, domain.FilterExpression{
		Op: domain.OpAndAll,
		Predicates: []domain.Filter{
			domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: domain.DocTypeAdditional},
			domain.FilterPredicate{Op: domain.OpIn, Key: "base_doc_id", Value: baseDocIDs},
		},
	})
	additionalChunks, err := h.inner.Retrieve(ctx, queries, additionalFilter)
	if err != nil {
		h.logger.Warn("additional phase retrieval failed", "error", err)
		additionalChunks = nil
	}

	additionalBudget := h.topK - len(baseChunks)
	if additionalBudget < 0 {
		additionalBudget = 0
	}
	if len(additionalChunks) > additionalBudget {
		additionalChunks = additionalChunks[:additionalBudget]
	}

	chunks := make([]domain.Chunk, 0, len(baseChunks)+len(additionalChunks))
	chunks = append(chunks, baseChunks...)
	chunks = append(chunks, additionalChunks...)

	h.validate(chunks)
	return chunks, nil
}

// validate checks the linkage post-condition on every call. Violations are
// a data-quality signal, not a gate: the retrieval already happened, and
// returning nothing would be worse for the user than returning possibly
// mislinked context, so violations are logged and results kept.
func (h *Hierarchical) validate(chunks []domain.Chunk) {
	baseIDs := map[string]bool{domain.BaseDocWildcard: true}
	for _, c := range chunks {
		if c.DocType() == domain.DocTypeBase {
			baseIDs[c.DocID] = true
		}
	}

	for _, c := range chunks {
		switch c.DocType() {
		case domain.DocTypeBase:
		case domain.DocTypeAdditional:
			if !baseIDs[c.BaseDocID()] {
				h.logger.Warn("orphaned additional chunk",
					"chunk_id", c.ChunkID,
					"doc_id", c.DocID,
					"base_doc_id", c.BaseDocID(),
				)
			}
		default:
			h.logger.Warn("unexpected doc_type",
				"chunk_id", c.ChunkID,
				"doc_id", c.DocID,
				"doc_type", c.DocType(),
			)
		}
	}
}
