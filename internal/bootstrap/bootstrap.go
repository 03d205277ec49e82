package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akarpov/specqa/internal/config"
	"github.com/akarpov/specqa/internal/core/contextbuild"
	"github.com/akarpov/specqa/internal/core/ports"
	"github.com/akarpov/specqa/internal/core/retrieval"
	"github.com/akarpov/specqa/internal/core/usecase"
	"github.com/akarpov/specqa/internal/infrastructure/llm/ollama"
	"github.com/akarpov/specqa/internal/infrastructure/queue/nats"
	"github.com/akarpov/specqa/internal/infrastructure/repository/postgres"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
	"github.com/akarpov/specqa/internal/infrastructure/retriever/milvus"
	"github.com/akarpov/specqa/internal/infrastructure/retriever/neofts"
	"github.com/akarpov/specqa/internal/infrastructure/retriever/qdrant"
	"github.com/akarpov/specqa/internal/infrastructure/storage/s3"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	AskUC *usecase.AskUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conversations := postgres.NewConversationRepository(db)
	if err := conversations.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init answer publisher: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	transformer := ollama.NewTransformer(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	var verifier ports.FactVerifier
	if cfg.FactVerification {
		verifier = ollama.NewVerifier(ollamaClient)
	}

	var signer ports.LinkSigner
	if cfg.AttachSourceLinks {
		signer, err = s3.NewLinkSigner(ctx, s3.Config{
			Endpoint:   cfg.S3Endpoint,
			Region:     cfg.S3Region,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			PresignTTL: time.Duration(cfg.PresignTTLSeconds) * time.Second,
		})
		if err != nil {
			publisher.Close()
			_ = db.Close()
			return nil, fmt.Errorf("init link signer: %w", err)
		}
	}

	qdrantClient := qdrant.NewClient(cfg.QdrantURL)
	factories := map[string]retrieval.Factory{
		"qdrant": func() (ports.Retriever, error) {
			return qdrant.New(qdrantClient, cfg.QdrantCollection, embedder, cfg.RAGTopK, executor), nil
		},
		"qdrant-multivector": func() (ports.Retriever, error) {
			return qdrant.NewMultiVector(qdrantClient, cfg.QdrantCollection, cfg.QdrantChildCollection, embedder, cfg.RAGTopK, executor, logger), nil
		},
		"milvus": func() (ports.Retriever, error) {
			cli, err := milvus.Dial(ctx, cfg.MilvusAddress)
			if err != nil {
				return nil, err
			}
			return milvus.New(cli, cfg.MilvusCollection, "", embedder, cfg.RAGTopK, executor), nil
		},
		"neofts": func() (ports.Retriever, error) {
			driver, err := neofts.Dial(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
			if err != nil {
				return nil, err
			}
			return neofts.New(driver, cfg.Neo4jFulltextIndex, cfg.RAGTopK, executor), nil
		},
	}

	manager, err := retrieval.NewManager(retrieval.Config{
		Retrievers:       cfg.Retrievers,
		Weights:          cfg.RetrieverWeights,
		TopK:             cfg.RAGTopK,
		RRFC:             cfg.RRFC,
		ContextHierarchy: cfg.ContextHierarchy,
		BaseRatio:        cfg.BaseRatio,
	}, factories, logger)
	if err != nil {
		publisher.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init retriever manager: %w", err)
	}

	truncator, err := contextbuild.NewTruncator("")
	if err != nil {
		publisher.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init truncator: %w", err)
	}
	assembler := contextbuild.NewAssembler(truncator, contextbuild.Budgets{
		Base:       cfg.BaseContextTokenBudget,
		Additional: cfg.AdditionalContextTokenBudget,
	}, logger)

	askUC := usecase.NewAskUseCase(usecase.AskDeps{
		Manager:       manager,
		Transformer:   transformer,
		Assembler:     assembler,
		Generator:     generator,
		Verifier:      verifier,
		Conversations: conversations,
		Signer:        signer,
		Publisher:     publisher,
		Hierarchy:     cfg.ContextHierarchy,
		HistoryLimit:  cfg.HistoryLimit,
		Logger:        logger,
	})

	return &App{
		Config: cfg,
		Logger: logger,
		AskUC:  askUC,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
