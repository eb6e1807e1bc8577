package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

func newIndexForTest(repo *documentRepoFake, vector *vectorIndexFake, embedder *embedderFake, settings *SettingsUseCase) *IndexUseCase {
	return NewIndexUseCase(repo, vector, map[string]ports.EmbeddingProvider{"voyage": embedder}, settings, testLogger())
}

func seedDocument(repo *documentRepoFake, id string, chunkTexts ...string) {
	repo.docs[id] = &domain.Document{ID: id, Status: domain.StatusPending}
	chunks := make([]domain.Chunk, len(chunkTexts))
	for i, text := range chunkTexts {
		chunks[i] = domain.Chunk{ID: id + "-c", DocumentID: id, Index: i, Text: text}
	}
	repo.chunks[id] = chunks
}

func TestIndexWithEmbeddingEnabled(t *testing.T) {
	repo := newDocumentRepoFake()
	seedDocument(repo, "d1", "one", "two")
	vector := &vectorIndexFake{}
	embedder := &embedderFake{}
	settings := settingsWith(map[string]domain.Setting{
		domain.KeyEnableEmbedding: boolSetting("true"),
	})

	uc := newIndexForTest(repo, vector, embedder, settings)
	if err := uc.IndexByID(context.Background(), "d1"); err != nil {
		t.Fatalf("IndexByID() error = %v", err)
	}
	if embedder.embedCalls != 1 {
		t.Fatalf("expected one batch embedding call, got %d", embedder.embedCalls)
	}
	if len(vector.upsertedVectors) != 2 {
		t.Fatalf("dense vectors missing from upsert: %d", len(vector.upsertedVectors))
	}
	if repo.docs["d1"].Status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", repo.docs["d1"].Status)
	}
}

func TestIndexWithEmbeddingDisabledSkipsEmbedder(t *testing.T) {
	repo := newDocumentRepoFake()
	seedDocument(repo, "d1", "one")
	vector := &vectorIndexFake{}
	embedder := &embedderFake{err: errors.New("must not be called")}

	uc := newIndexForTest(repo, vector, embedder, settingsWith(nil))
	if err := uc.IndexByID(context.Background(), "d1"); err != nil {
		t.Fatalf("IndexByID() error = %v", err)
	}
	if embedder.embedCalls != 0 {
		t.Fatalf("embedder called with embedding disabled")
	}
	if vector.upsertedVectors != nil {
		t.Fatalf("unexpected dense vectors: %v", vector.upsertedVectors)
	}
	if repo.docs["d1"].Status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", repo.docs["d1"].Status)
	}
}

func TestIndexEmbedFailureMarksFailed(t *testing.T) {
	repo := newDocumentRepoFake()
	seedDocument(repo, "d1", "one")
	settings := settingsWith(map[string]domain.Setting{
		domain.KeyEnableEmbedding: boolSetting("true"),
	})

	uc := newIndexForTest(repo, &vectorIndexFake{}, &embedderFake{err: errors.New("voyage down")}, settings)
	if err := uc.IndexByID(context.Background(), "d1"); err == nil {
		t.Fatalf("expected error")
	}
	if repo.docs["d1"].Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.docs["d1"].Status)
	}
	if repo.docs["d1"].Error == "" {
		t.Fatalf("failure reason not recorded")
	}
}

func TestIndexUnknownEmbeddingProviderMarksFailed(t *testing.T) {
	repo := newDocumentRepoFake()
	seedDocument(repo, "d1", "one")
	settings := settingsWith(map[string]domain.Setting{
		domain.KeyEnableEmbedding:          boolSetting("true"),
		domain.KeyDefaultEmbeddingProvider: strSetting("mystery"),
	})

	uc := newIndexForTest(repo, &vectorIndexFake{}, &embedderFake{}, settings)
	err := uc.IndexByID(context.Background(), "d1")
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if repo.docs["d1"].Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.docs["d1"].Status)
	}
}

func TestIndexUnknownDocument(t *testing.T) {
	uc := newIndexForTest(newDocumentRepoFake(), &vectorIndexFake{}, &embedderFake{}, settingsWith(nil))
	err := uc.IndexByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
