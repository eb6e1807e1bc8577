package domain

// Rerank method names accepted in requests and configuration.
const (
	RerankNone   = "none"
	RerankBM25   = "bm25"
	RerankCohere = "cohere"
)

// Retrieval modes. The embedding feature flag selects one per request.
const (
	RetrievalModeVector  = "vector"
	RetrievalModeKeyword = "keyword"
)

// RetrievalInfo reports how a request was served, for response debugging,
// logging, and metrics.
type RetrievalInfo struct {
	Mode         string `json:"mode"`
	RerankMethod string `json:"rerank_method"`
	Candidates   int    `json:"candidates"`
}

// SearchFilter restricts retrieval to chunks whose document metadata matches
// every listed key/value pair.
type SearchFilter struct {
	Where map[string]any
}

// Candidate is one retrieval hit. It exists only for the lifetime of a query.
type Candidate struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Ordinal    int64          `json:"ordinal"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score"`
	// Rank is 1-based: the best candidate has rank 1. Reranking reassigns
	// ranks on the same scale.
	Rank int `json:"rank"`
}

// RerankedCandidate replaces the candidate's score and rank with the
// secondary signal; the original retrieval score is kept for explainability.
type RerankedCandidate struct {
	Candidate
	RetrievalScore float64 `json:"retrieval_score"`
}

// Answer is the final RAG response. Citations list the source document ids of
// the context that survived the prompt budget, in rank order.
type Answer struct {
	Text      string              `json:"answer"`
	Citations []string            `json:"citations"`
	Sources   []RerankedCandidate `json:"sources,omitempty"`
	Retrieval RetrievalInfo       `json:"retrieval"`
}
