package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

const fallbackTemperature = 0.2

// RAGUseCase is the full retrieve-rerank-generate flow. One config snapshot
// covers the whole invocation.
type RAGUseCase struct {
	search   *SearchUseCase
	llms     map[string]ports.CompletionProvider
	settings *SettingsUseCase
	log      *slog.Logger
}

func NewRAGUseCase(
	search *SearchUseCase,
	llms map[string]ports.CompletionProvider,
	settings *SettingsUseCase,
	log *slog.Logger,
) *RAGUseCase {
	return &RAGUseCase{
		search:   search,
		llms:     llms,
		settings: settings,
		log:      log,
	}
}

func (uc *RAGUseCase) Generate(ctx context.Context, req ports.GenerateRequest) (*domain.Answer, error) {
	snap := uc.settings.Snapshot(ctx)

	candidates, retrieval, err := uc.search.searchWithSnapshot(ctx, ports.SearchRequest{
		Query:             req.Query,
		NResults:          req.NResults,
		RerankMethod:      req.RerankMethod,
		EmbeddingProvider: req.EmbeddingProvider,
		Filter:            req.Filter,
	}, snap)
	if err != nil {
		return nil, err
	}

	prompt, used := buildPrompt(req.Query, candidates, snap.Int(domain.KeyMaxContextChars, fallbackMaxContextChars))

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = snap.Str(domain.KeySystemPrompt, defaultSystemPrompt)
	}
	temperature := snap.Float(domain.KeyTemperature, fallbackTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	name := req.LLMProvider
	if name == "" {
		name = snap.Str(domain.KeyDefaultLLMProvider, "anthropic")
	}
	llm, ok := uc.llms[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnknownProvider, "generate", fmt.Errorf("no completion provider %q", name))
	}

	// A single attempt per request: retrying an LLM call would multiply
	// latency and cost behind the caller's back.
	text, err := llm.Complete(ctx, prompt, systemPrompt, temperature)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationUnavailable, "complete with "+name, err)
	}

	uc.log.Info("answer generated",
		"provider", name,
		"retrieval_mode", retrieval.Mode,
		"rerank_method", retrieval.RerankMethod,
		"context_chunks", len(used),
		"retrieved", len(candidates))
	return &domain.Answer{
		Text:      text,
		Citations: citationsFor(used),
		Sources:   used,
		Retrieval: retrieval,
	}, nil
}
