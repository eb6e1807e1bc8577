package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/contextual-rag/internal/config"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
	"github.com/kirillkom/contextual-rag/internal/core/usecase"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/embedding/openaiembed"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/embedding/voyage"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/llm/anthropicllm"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/llm/openaillm"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/rerank/cohere"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/vector/memory"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	SettingsUC ports.SettingsService
	IngestUC   ports.DocumentIngestor
	IndexUC    ports.DocumentIndexer
	SearchUC   ports.SearchService
	RAGUC      ports.RAGService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	settingsRepo := postgres.NewSettingsRepository(db)
	if err := settingsRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure settings schema: %w", err)
	}

	settingsUC := usecase.NewSettingsUseCase(settingsRepo, log)
	if err := settingsUC.InitializeDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed default settings: %w", err)
	}

	infraExecutor := resilience.NewExecutor(resilience.DefaultConfig())
	providerExecutor := resilience.NewExecutor(resilience.ProviderConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: infraExecutor,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var vectorDB ports.VectorIndex
	switch cfg.VectorBackend {
	case "memory":
		vectorDB = memory.NewIndex()
	default:
		vectorDB = qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
			ResilienceExecutor: infraExecutor,
		})
	}

	embedders := map[string]ports.EmbeddingProvider{}
	if cfg.VoyageAPIKey != "" {
		embedders["voyage"] = voyage.NewWithOptions(cfg.VoyageAPIKey, cfg.VoyageModel, voyage.Options{
			ResilienceExecutor: providerExecutor,
		})
	}
	if cfg.OpenAIAPIKey != "" {
		embedders["openai"] = openaiembed.New(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel)
	}

	llms := map[string]ports.CompletionProvider{}
	if cfg.AnthropicAPIKey != "" {
		llms["anthropic"] = anthropicllm.New(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	if cfg.OpenAIAPIKey != "" {
		llms["openai"] = openaillm.New(cfg.OpenAIAPIKey, cfg.OpenAIChatModel)
	}
	if cfg.GeminiAPIKey != "" {
		geminiGen, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		llms["gemini"] = geminiGen
	}

	rerankers := map[string]ports.RerankProvider{}
	if cfg.CohereAPIKey != "" {
		rerankers["cohere"] = cohere.NewWithOptions(cfg.CohereAPIKey, cfg.CohereModel, cohere.Options{
			ResilienceExecutor: providerExecutor,
		})
	}

	chunker := chunking.NewSplitter()

	ingestUC := usecase.NewIngestUseCase(repo, chunker, vectorDB, queue, settingsUC, log)
	indexUC := usecase.NewIndexUseCase(repo, vectorDB, embedders, settingsUC, log)
	searchUC := usecase.NewSearchUseCase(vectorDB, embedders, rerankers, settingsUC, log)
	ragUC := usecase.NewRAGUseCase(searchUC, llms, settingsUC, log)

	return &App{
		Config: cfg,
		Log:    log,

		Queue: queue,
		Repo:  repo,

		SettingsUC: settingsUC,
		IngestUC:   ingestUC,
		IndexUC:    indexUC,
		SearchUC:   searchUC,
		RAGUC:      ragUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
