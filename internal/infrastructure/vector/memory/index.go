package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

type entry struct {
	chunk    domain.Chunk
	metadata map[string]any
	vector   []float32
}

// Index is an in-process vector index for development and tests. Keyword
// search scores with BM25 over the stored chunks; similarity search uses
// cosine distance.
type Index struct {
	mu      sync.RWMutex
	entries []entry
}

func NewIndex() *Index {
	return &Index{}
}

func (idx *Index) UpsertChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, chunk := range chunks {
		e := entry{chunk: chunk, metadata: doc.Metadata}
		if vectors != nil {
			e.vector = vectors[i]
		}
		replaced := false
		for j := range idx.entries {
			if idx.entries[j].chunk.ID == chunk.ID {
				idx.entries[j] = e
				replaced = true
				break
			}
		}
		if !replaced {
			idx.entries = append(idx.entries, e)
		}
	}
	return nil
}

func (idx *Index) DeleteByDocument(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if e.chunk.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	idx.entries = kept
	return nil
}

func (idx *Index) SimilaritySearch(_ context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.Candidate, 0, len(idx.entries))
	for _, e := range idx.entries {
		if e.vector == nil || !matches(e.metadata, filter) {
			continue
		}
		out = append(out, candidateFor(e, cosine(queryVector, e.vector)))
	}
	return top(out, limit), nil
}

func (idx *Index) KeywordSearch(_ context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docs := make([]entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		if matches(e.metadata, filter) {
			docs = append(docs, e)
		}
	}

	scores := bm25(queryText, docs)
	out := make([]domain.Candidate, 0, len(docs))
	for i, e := range docs {
		if scores[i] <= 0 {
			continue
		}
		out = append(out, candidateFor(e, scores[i]))
	}
	return top(out, limit), nil
}

func candidateFor(e entry, score float64) domain.Candidate {
	return domain.Candidate{
		ChunkID:    e.chunk.ID,
		DocumentID: e.chunk.DocumentID,
		ChunkIndex: e.chunk.Index,
		Ordinal:    e.chunk.Ordinal,
		Text:       e.chunk.Text,
		Metadata:   e.metadata,
		Score:      score,
	}
}

func matches(metadata map[string]any, filter domain.SearchFilter) bool {
	for key, want := range filter.Where {
		if metadata == nil || metadata[key] != want {
			return false
		}
	}
	return true
}

func top(candidates []domain.Candidate, limit int) []domain.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Ordinal < candidates[j].Ordinal
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

func bm25(query string, docs []entry) []float64 {
	tokenized := make([][]string, len(docs))
	totalLen := 0
	for i, e := range docs {
		tokenized[i] = tokenizeWords(e.chunk.Text)
		totalLen += len(tokenized[i])
	}
	scores := make([]float64, len(docs))
	if len(docs) == 0 {
		return scores
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		avgLen = 1
	}

	docFreq := map[string]int{}
	for _, tokens := range tokenized {
		seen := map[string]struct{}{}
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			docFreq[t]++
		}
	}

	n := float64(len(docs))
	for i, tokens := range tokenized {
		tf := map[string]int{}
		for _, t := range tokens {
			tf[t]++
		}
		docLen := float64(len(tokens))
		for _, term := range tokenizeWords(query) {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			scores[i] += idf * (freq * (bm25K1 + 1)) / (freq + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
	}
	return scores
}

func tokenizeWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
