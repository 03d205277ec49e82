package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/akarpov/specqa/internal/core/contextbuild"
	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
	"github.com/akarpov/specqa/internal/core/retrieval"
)

// AskUseCase runs the full question answering pipeline: load history,
// transform the question into query formulations, retrieve, assemble the
// context, generate, optionally verify, then persist and publish.
//
// Everything after retrieval input validation is best-effort: a failing
// transformer falls back to the raw question, a failing verifier skips the
// verdict, failing persistence and publishing are logged. Only invalid
// input and a failing generator surface as errors.
type AskUseCase struct {
	deps AskDeps
}

// AskDeps wires the pipeline. Manager, Assembler and Generator are
// required; every nil optional dependency disables its pipeline stage.
type AskDeps struct {
	Manager     *retrieval.Manager
	Transformer ports.QueryTransformer
	Assembler   *contextbuild.Assembler
	Generator   ports.AnswerGenerator

	Verifier      ports.FactVerifier
	Conversations ports.ConversationStore
	Signer        ports.LinkSigner
	Publisher     ports.AnswerEventPublisher

	Hierarchy    bool
	HistoryLimit int
	Logger       *slog.Logger
}

func NewAskUseCase(deps AskDeps) *AskUseCase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AskUseCase{deps: deps}
}

func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("empty question"))
	}

	filter, err := parseRequestFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	history := uc.loadHistory(ctx, req.UserID, req.ConversationID)
	bundle := uc.transform(ctx, question, history)

	chunks := uc.deps.Manager.Retrieve(ctx, bundle, filter)

	docs := contextbuild.Combine(chunks)
	if uc.deps.Signer != nil {
		contextbuild.AttachLinks(ctx, docs, uc.deps.Signer, uc.deps.Logger)
	}
	assembled := uc.deps.Assembler.Format(docs, uc.deps.Hierarchy)

	answerText, err := uc.deps.Generator.GenerateAnswer(ctx, question, assembled, history)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	verification := uc.verify(ctx, assembled, answerText, len(chunks))
	uc.persistTurns(ctx, req, question, answerText)
	uc.publish(ctx, req, question, answerText, verification, chunks)

	return &domain.Answer{
		Text:         answerText,
		Verification: verification,
		Queries:      bundle,
		Sources:      docs,
		Chunks:       chunks,
	}, nil
}

// Retrieve is the raw retrieval path: same transformation and retrieval as
// Ask, no generation. Serves the debug endpoint and the MCP retrieve tool.
func (uc *AskUseCase) Retrieve(ctx context.Context, question string, rawFilter map[string]any) ([]domain.Chunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("empty question"))
	}

	filter, err := parseRequestFilter(rawFilter)
	if err != nil {
		return nil, err
	}

	bundle := uc.transform(ctx, question, nil)
	return uc.deps.Manager.Retrieve(ctx, bundle, filter), nil
}

func parseRequestFilter(raw map[string]any) (domain.Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filter, err := domain.ParseFilter(raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse filter", err)
	}
	return filter, nil
}

func (uc *AskUseCase) loadHistory(ctx context.Context, userID, conversationID string) []domain.ChatLog {
	if uc.deps.Conversations == nil || conversationID == "" {
		return nil
	}
	if _, err := uc.deps.Conversations.EnsureConversation(ctx, userID, conversationID); err != nil {
		uc.deps.Logger.Warn("ensure conversation failed", "conversation_id", conversationID, "error", err)
		return nil
	}
	history, err := uc.deps.Conversations.ListRecentMessages(ctx, userID, conversationID, uc.deps.HistoryLimit)
	if err != nil {
		uc.deps.Logger.Warn("load history failed", "conversation_id", conversationID, "error", err)
		return nil
	}
	return history
}

func (uc *AskUseCase) transform(ctx context.Context, question string, history []domain.ChatLog) domain.QueryBundle {
	if uc.deps.Transformer == nil {
		return domain.BundleFromQuestion(question)
	}
	bundle, err := uc.deps.Transformer.Transform(ctx, question, history)
	if err != nil {
		uc.deps.Logger.Warn("query transformation failed, using raw question", "error", err)
		return domain.BundleFromQuestion(question)
	}
	if bundle.IsEmpty() {
		return domain.BundleFromQuestion(question)
	}
	return bundle
}

func (uc *AskUseCase) verify(ctx context.Context, assembled domain.AssembledContext, answer string, chunkCount int) string {
	if uc.deps.Verifier == nil || chunkCount == 0 {
		return ""
	}
	verdict, err := uc.deps.Verifier.Verify(ctx, assembled, answer)
	if err != nil {
		uc.deps.Logger.Warn("fact verification failed", "error", err)
		return ""
	}
	return verdict
}

func (uc *AskUseCase) persistTurns(ctx context.Context, req domain.AskRequest, question, answer string) {
	if uc.deps.Conversations == nil || req.ConversationID == "" {
		return
	}
	turns := []domain.ConversationMessage{
		{ID: uuid.NewString(), UserID: req.UserID, ConversationID: req.ConversationID, Role: "user", Content: question},
		{ID: uuid.NewString(), UserID: req.UserID, ConversationID: req.ConversationID, Role: "assistant", Content: answer},
	}
	for _, turn := range turns {
		if err := uc.deps.Conversations.AppendMessage(ctx, turn); err != nil {
			uc.deps.Logger.Warn("persist conversation turn failed",
				"conversation_id", req.ConversationID,
				"role", turn.Role,
				"error", err,
			)
		}
	}
}

func (uc *AskUseCase) publish(ctx context.Context, req domain.AskRequest, question, answer, verification string, chunks []domain.Chunk) {
	if uc.deps.Publisher == nil {
		return
	}

	chunkIDs := make([]string, 0, len(chunks))
	seen := make(map[string]bool)
	var retrievers []string
	for _, chunk := range chunks {
		chunkIDs = append(chunkIDs, chunk.ChunkID)
		if chunk.SourceRetriever != "" && !seen[chunk.SourceRetriever] {
			seen[chunk.SourceRetriever] = true
			retrievers = append(retrievers, chunk.SourceRetriever)
		}
	}

	event := domain.AnswerEvent{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Question:       question,
		Answer:         answer,
		Verification:   verification,
		ChunkIDs:       chunkIDs,
		Retrievers:     retrievers,
	}
	if err := uc.deps.Publisher.PublishAnswered(ctx, event); err != nil {
		uc.deps.Logger.Warn("publish answer event failed", "error", err)
	}
}
