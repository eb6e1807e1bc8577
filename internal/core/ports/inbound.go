package ports

import (
	"context"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document ingestion.
type DocumentIngestor interface {
	Ingest(ctx context.Context, docs []IngestDocument) ([]IngestResult, error)
	Delete(ctx context.Context, documentID string) error
}

// IngestDocument is one document submitted for ingestion.
type IngestDocument struct {
	Text     string
	Metadata map[string]any
}

// IngestResult reports the stored ids for one ingested document.
type IngestResult struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// DocumentIndexer is the inbound contract for asynchronous chunk indexing.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// SearchService retrieves and optionally reranks candidates for a query.
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) ([]domain.RerankedCandidate, error)
}

// SearchRequest carries per-request overrides; empty fields fall back to the
// settings store defaults.
type SearchRequest struct {
	Query             string
	NResults          int
	RerankMethod      string
	EmbeddingProvider string
	Filter            domain.SearchFilter
}

// RAGService produces a grounded answer for a query.
type RAGService interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.Answer, error)
}

// GenerateRequest mirrors SearchRequest plus generation controls.
type GenerateRequest struct {
	Query             string
	NResults          int
	SystemPrompt      string
	Temperature       *float64
	LLMProvider       string
	EmbeddingProvider string
	RerankMethod      string
	Filter            domain.SearchFilter
}

// SettingsService is the inbound contract for runtime configuration.
type SettingsService interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	List(ctx context.Context) ([]domain.Setting, error)
	Groups(ctx context.Context) ([]string, error)
	GetGroup(ctx context.Context, group string) (map[string]any, error)
	Create(ctx context.Context, setting domain.Setting) (*domain.Setting, error)
	Update(ctx context.Context, setting domain.Setting) (*domain.Setting, error)
	Delete(ctx context.Context, key string) error
	InitializeDefaults(ctx context.Context) error
}
