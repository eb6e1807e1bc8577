package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

// IndexUseCase runs in the worker. It loads a queued document's chunks,
// embeds them when dense retrieval is enabled and upserts them into the
// vector index. The embedding flag is read once per document so a config
// flip mid-batch cannot produce a half-dense document.
type IndexUseCase struct {
	repo      ports.DocumentRepository
	vectorDB  ports.VectorIndex
	embedders map[string]ports.EmbeddingProvider
	settings  *SettingsUseCase
	log       *slog.Logger
}

func NewIndexUseCase(
	repo ports.DocumentRepository,
	vectorDB ports.VectorIndex,
	embedders map[string]ports.EmbeddingProvider,
	settings *SettingsUseCase,
	log *slog.Logger,
) *IndexUseCase {
	return &IndexUseCase{
		repo:      repo,
		vectorDB:  vectorDB,
		embedders: embedders,
		settings:  settings,
		log:       log,
	}
}

func (uc *IndexUseCase) IndexByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	chunks, err := uc.repo.ListChunks(ctx, documentID)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "load chunks", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexing, ""); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark indexing", err)
	}

	snap := uc.settings.Snapshot(ctx)

	var vectors [][]float32
	if snap.Bool(domain.KeyEnableEmbedding, false) {
		name := snap.Str(domain.KeyDefaultEmbeddingProvider, "voyage")
		embedder, ok := uc.embedders[name]
		if !ok {
			return uc.fail(ctx, documentID, domain.WrapError(domain.ErrUnknownProvider, "index document", errUnknownEmbedder(name)))
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = embedder.Embed(ctx, texts)
		if err != nil {
			return uc.fail(ctx, documentID, domain.WrapError(domain.ErrTemporary, "embed chunks", err))
		}
		if len(vectors) != len(chunks) {
			return uc.fail(ctx, documentID, domain.WrapError(domain.ErrTemporary, "embed chunks", errVectorCountMismatch))
		}
	}

	if err := uc.vectorDB.UpsertChunks(ctx, doc, chunks, vectors); err != nil {
		return uc.fail(ctx, documentID, domain.WrapError(domain.ErrTemporary, "upsert chunks", err))
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark ready", err)
	}

	uc.log.Info("document indexed",
		"document_id", documentID, "chunks", len(chunks), "dense", vectors != nil)
	return nil
}

func (uc *IndexUseCase) fail(ctx context.Context, documentID string, cause error) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, cause.Error()); err != nil {
		uc.log.Error("mark document failed", "document_id", documentID, "error", err)
	}
	return cause
}
