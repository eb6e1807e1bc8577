package ports

import (
	"context"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

// DocumentRepository persists document state and chunk text.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	Delete(ctx context.Context, id string) error
}

// SettingsStore persists runtime configuration. Raw settings come back
// undecoded; typed interpretation happens at the read site so malformed
// values can degrade per component.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	GetAll(ctx context.Context) ([]domain.Setting, error)
	GetGroup(ctx context.Context, group string) ([]domain.Setting, error)
	Set(ctx context.Context, setting domain.Setting) error
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document indexing events.
type MessageQueue interface {
	PublishDocumentQueued(ctx context.Context, documentID string) error
	SubscribeDocumentQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// Chunker splits text into bounded overlapping windows.
type Chunker interface {
	Split(text string, maxSize, overlap int) ([]domain.ChunkSpan, error)
}

// EmbeddingProvider converts text to dense vectors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunks and serves similarity and lexical search.
type VectorIndex interface {
	UpsertChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	DeleteByDocument(ctx context.Context, documentID string) error
	SimilaritySearch(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
	KeywordSearch(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// RerankProvider scores candidate texts against a query, aligned by position.
type RerankProvider interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// CompletionProvider is one LLM backend behind the generation dispatch.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error)
}
