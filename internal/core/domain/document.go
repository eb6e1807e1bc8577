package domain

import "time"

type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusIndexing DocumentStatus = "indexing"
	StatusReady    DocumentStatus = "ready"
	StatusFailed   DocumentStatus = "failed"
)

// Document is the unit of ingestion. Once stored it is immutable except for
// status transitions and explicit deletion, which removes its chunks as well.
type Document struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Chunk is a bounded window of a document's text and the retrieval unit.
// Ordinal is a global insertion sequence used as the deterministic tie-break
// when retrieval scores are equal.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Offset     int    `json:"offset"`
	Text       string `json:"text"`
	Ordinal    int64  `json:"ordinal"`
}

// ChunkSpan is one window produced by the chunker before it is persisted.
type ChunkSpan struct {
	Text   string
	Offset int
}
