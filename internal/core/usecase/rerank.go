package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

const (
	fallbackBM25K1 = 1.5
	fallbackBM25B  = 0.75

	// Weighting between the rerank signal and the normalized retrieval
	// score when recombining.
	rerankSignalWeight    = 0.7
	retrievalSignalWeight = 0.3
)

// rerank applies the requested second-stage scoring. A provider failure is
// surfaced as ErrRerankUnavailable; the caller decides whether unranked
// results are acceptable, not this layer.
func (uc *SearchUseCase) rerank(ctx context.Context, query string, candidates []domain.Candidate, method string, snap *ConfigSnapshot) ([]domain.RerankedCandidate, error) {
	switch method {
	case domain.RerankNone:
		return identityRerank(candidates), nil
	case domain.RerankBM25:
		k1 := snap.Float(domain.KeyBM25K1, fallbackBM25K1)
		b := snap.Float(domain.KeyBM25B, fallbackBM25B)
		return rescore(query, candidates, bm25Scores(query, candidateTexts(candidates), k1, b)), nil
	default:
		provider, ok := uc.rerankers[method]
		if !ok {
			return nil, domain.WrapError(domain.ErrUnknownProvider, "rerank", fmt.Errorf("no rerank method %q", method))
		}
		scores, err := provider.Score(ctx, query, candidateTexts(candidates))
		if err != nil {
			return nil, domain.WrapError(domain.ErrRerankUnavailable, "rerank "+method, err)
		}
		if len(scores) != len(candidates) {
			return nil, domain.WrapError(domain.ErrRerankUnavailable, "rerank "+method, fmt.Errorf("got %d scores for %d candidates", len(scores), len(candidates)))
		}
		return rescore(query, candidates, scores), nil
	}
}

func candidateTexts(candidates []domain.Candidate) []string {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	return texts
}

// rescore blends the rerank signal with the retrieval score, both min-max
// normalized over the candidate set, then re-sorts and re-ranks.
func rescore(query string, candidates []domain.Candidate, signal []float64) []domain.RerankedCandidate {
	out := make([]domain.RerankedCandidate, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	retrieval := make([]float64, len(candidates))
	for i, c := range candidates {
		retrieval[i] = c.Score
	}
	normSignal := minMaxNormalize(signal)
	normRetrieval := minMaxNormalize(retrieval)

	for i, c := range candidates {
		out[i] = domain.RerankedCandidate{Candidate: c, RetrievalScore: c.Score}
		out[i].Score = rerankSignalWeight*normSignal[i] + retrievalSignalWeight*normRetrieval[i]
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		for i, v := range values {
			if v > 0 {
				out[i] = 1
			}
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// bm25Scores treats the candidate set as the corpus and scores each text
// against the query terms.
func bm25Scores(query string, texts []string, k1, b float64) []float64 {
	docs := make([][]string, len(texts))
	totalLen := 0
	for i, t := range texts {
		docs[i] = tokenize(t)
		totalLen += len(docs[i])
	}
	avgLen := float64(totalLen) / float64(max(len(texts), 1))
	if avgLen == 0 {
		avgLen = 1
	}

	docFreq := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	n := float64(len(texts))
	queryTerms := tokenize(query)
	scores := make([]float64, len(texts))
	for i, doc := range docs {
		termFreq := map[string]int{}
		for _, term := range doc {
			termFreq[term]++
		}
		docLen := float64(len(doc))
		for _, term := range queryTerms {
			tf := float64(termFreq[term])
			if tf == 0 {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			scores[i] += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*docLen/avgLen))
		}
	}
	return scores
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		tokens = append(tokens, sb.String())
	}
	return tokens
}
