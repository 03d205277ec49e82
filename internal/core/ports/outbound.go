package ports

import (
	"context"

	"github.com/akarpov/specqa/internal/core/domain"
)

// Retriever executes the flattened query bundle against one backend (or a
// composition of backends) and returns scored chunks, best first.
//
// The contract is best-effort at the composition level: an adapter returns
// its error so callers and tests can tell "failed" from "legitimately
// empty", but the ensemble/hierarchical/manager layers recover by treating
// a failed retriever as an empty contribution. Retrieval never crashes the
// pipeline.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) ([]domain.Chunk, error)
}

// Embedder builds query vectors for the vector-search adapters.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryTransformer produces the alternative query formulations
// (translation, rewriting, expansion, HyDE) for one question.
type QueryTransformer interface {
	Transform(ctx context.Context, question string, history []domain.ChatLog) (domain.QueryBundle, error)
}

// AnswerGenerator creates the user-facing answer from the assembled context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, contextText domain.AssembledContext, history []domain.ChatLog) (string, error)
}

// FactVerifier checks a generated answer against the context it was
// grounded on.
type FactVerifier interface {
	Verify(ctx context.Context, contextText domain.AssembledContext, answer string) (string, error)
}

// ConversationStore persists conversation turns feeding the transformer.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, message domain.ConversationMessage) error
	ListRecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.ChatLog, error)
}

// LinkSigner turns a stored document URI into a short-lived shareable URL.
type LinkSigner interface {
	SignLink(ctx context.Context, uri string) (string, error)
}

// AnswerEventPublisher hands completed answers to the offline evaluation
// pipeline. Publishing is best-effort; failures are logged, never surfaced.
type AnswerEventPublisher interface {
	PublishAnswered(ctx context.Context, event domain.AnswerEvent) error
}
