package retrieval

import (
	"context"

	"github.com/akarpov/specqa/internal/core/domain"
)

// Noop is the fallback retriever: it always returns an empty list, so a
// misconfigured deployment degrades to "no context found" instead of
// crashing the pipeline.
type Noop struct{}

func (Noop) Name() string { return "default" }

func (Noop) Retrieve(context.Context, domain.QueryBundle, domain.Filter) ([]domain.Chunk, error) {
	return nil, nil
}
