package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

const (
	fallbackChunkSize    = 1000
	fallbackChunkOverlap = 200
)

// IngestUseCase accepts documents, persists their chunks and queues them for
// indexing. Chunk ids are assigned here so the caller gets them back
// synchronously even though vector indexing happens in the worker.
type IngestUseCase struct {
	repo     ports.DocumentRepository
	chunker  ports.Chunker
	vectorDB ports.VectorIndex
	queue    ports.MessageQueue
	settings *SettingsUseCase
	log      *slog.Logger
}

func NewIngestUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	vectorDB ports.VectorIndex,
	queue ports.MessageQueue,
	settings *SettingsUseCase,
	log *slog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		repo:     repo,
		chunker:  chunker,
		vectorDB: vectorDB,
		queue:    queue,
		settings: settings,
		log:      log,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, docs []ports.IngestDocument) ([]ports.IngestResult, error) {
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("no documents"))
	}

	snap := uc.settings.Snapshot(ctx)
	chunkSize := snap.Int(domain.KeyChunkSize, fallbackChunkSize)
	overlap := snap.Int(domain.KeyChunkOverlap, fallbackChunkOverlap)

	results := make([]ports.IngestResult, 0, len(docs))
	for i, in := range docs {
		if strings.TrimSpace(in.Text) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("document text is empty"))
		}

		spans, err := uc.chunker.Split(in.Text, chunkSize, overlap)
		if errors.Is(err, domain.ErrInvalidChunkConfig) {
			uc.log.Warn("stored chunk config invalid, using defaults",
				"chunk_size", chunkSize, "chunk_overlap", overlap, "error", err)
			spans, err = uc.chunker.Split(in.Text, fallbackChunkSize, fallbackChunkOverlap)
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "split document", err)
		}

		doc := &domain.Document{
			ID:       uuid.NewString(),
			Text:     in.Text,
			Metadata: in.Metadata,
			Status:   domain.StatusPending,
		}
		chunks := make([]domain.Chunk, len(spans))
		chunkIDs := make([]string, len(spans))
		for j, span := range spans {
			chunks[j] = domain.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				Index:      j,
				Offset:     span.Offset,
				Text:       span.Text,
			}
			chunkIDs[j] = chunks[j].ID
		}

		if err := uc.repo.Create(ctx, doc, chunks); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "persist document", err)
		}
		if err := uc.queue.PublishDocumentQueued(ctx, doc.ID); err != nil {
			if updErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, "queueing failed"); updErr != nil {
				uc.log.Error("mark document failed", "document_id", doc.ID, "error", updErr)
			}
			return nil, domain.WrapError(domain.ErrTemporary, "queue document", err)
		}

		uc.log.Info("document queued",
			"document_id", doc.ID, "chunks", len(chunks), "position", i)
		results = append(results, ports.IngestResult{DocumentID: doc.ID, ChunkIDs: chunkIDs})
	}
	return results, nil
}

// Delete removes a document from both stores. Vector cleanup runs first so a
// failure leaves the authoritative record intact for a retry.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return err
	}
	if err := uc.vectorDB.DeleteByDocument(ctx, documentID); err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete document vectors", err)
	}
	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return err
	}
	uc.log.Info("document deleted", "document_id", documentID)
	return nil
}
