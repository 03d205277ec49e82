package ports

import (
	"context"

	"github.com/akarpov/specqa/internal/core/domain"
)

// AskService is the inbound contract for full question answering.
type AskService interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

// RetrievalService is the inbound contract for raw retrieval (debugging and
// the MCP retrieve tool): no generation, just chunks.
type RetrievalService interface {
	Retrieve(ctx context.Context, question string, filter map[string]any) ([]domain.Chunk, error)
}
