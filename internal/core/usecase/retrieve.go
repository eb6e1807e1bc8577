package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

const fallbackMaxChunks = 5

var errVectorCountMismatch = errors.New("vector count does not match chunk count")

func errUnknownEmbedder(name string) error {
	return fmt.Errorf("no embedding provider %q", name)
}

// SearchUseCase retrieves candidates for a query. The embedding feature flag
// selects dense or keyword retrieval for the whole request; a dense retrieval
// failure is surfaced, never silently downgraded to keyword search.
type SearchUseCase struct {
	vectorDB  ports.VectorIndex
	embedders map[string]ports.EmbeddingProvider
	rerankers map[string]ports.RerankProvider
	settings  *SettingsUseCase
	log       *slog.Logger
}

func NewSearchUseCase(
	vectorDB ports.VectorIndex,
	embedders map[string]ports.EmbeddingProvider,
	rerankers map[string]ports.RerankProvider,
	settings *SettingsUseCase,
	log *slog.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		vectorDB:  vectorDB,
		embedders: embedders,
		rerankers: rerankers,
		settings:  settings,
		log:       log,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req ports.SearchRequest) ([]domain.RerankedCandidate, error) {
	snap := uc.settings.Snapshot(ctx)
	results, _, err := uc.searchWithSnapshot(ctx, req, snap)
	return results, err
}

// searchWithSnapshot lets the RAG flow share one config read across retrieval
// and generation.
func (uc *SearchUseCase) searchWithSnapshot(ctx context.Context, req ports.SearchRequest, snap *ConfigSnapshot) ([]domain.RerankedCandidate, domain.RetrievalInfo, error) {
	var info domain.RetrievalInfo
	if req.Query == "" {
		return nil, info, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty"))
	}
	limit := req.NResults
	if limit <= 0 {
		limit = snap.Int(domain.KeyMaxChunks, fallbackMaxChunks)
	}

	dense := snap.Bool(domain.KeyEnableEmbedding, false)
	info.Mode = domain.RetrievalModeKeyword
	if dense {
		info.Mode = domain.RetrievalModeVector
	}

	candidates, err := uc.retrieve(ctx, req, snap, limit, dense)
	if err != nil {
		return nil, info, err
	}
	info.Candidates = len(candidates)

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	if !snap.Bool(domain.KeyEnableReranking, false) {
		info.RerankMethod = domain.RerankNone
		return identityRerank(candidates), info, nil
	}
	method := req.RerankMethod
	if method == "" {
		method = snap.Str(domain.KeyDefaultRerankingMethod, domain.RerankBM25)
	}
	info.RerankMethod = method
	reranked, err := uc.rerank(ctx, req.Query, candidates, method, snap)
	return reranked, info, err
}

func (uc *SearchUseCase) retrieve(ctx context.Context, req ports.SearchRequest, snap *ConfigSnapshot, limit int, dense bool) ([]domain.Candidate, error) {
	// Over-fetch so equal-score candidates past the cut still compete on
	// the deterministic tie-break.
	fetch := limit * 2
	if fetch < limit {
		fetch = limit
	}

	if dense {
		name := req.EmbeddingProvider
		if name == "" {
			name = snap.Str(domain.KeyDefaultEmbeddingProvider, "voyage")
		}
		embedder, ok := uc.embedders[name]
		if !ok {
			return nil, domain.WrapError(domain.ErrUnknownProvider, "search", errUnknownEmbedder(name))
		}
		queryVector, err := embedder.EmbedQuery(ctx, req.Query)
		if err != nil {
			return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
		}
		candidates, err := uc.vectorDB.SimilaritySearch(ctx, queryVector, fetch, req.Filter)
		if err != nil {
			return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "similarity search", err)
		}
		return candidates, nil
	}

	candidates, err := uc.vectorDB.KeywordSearch(ctx, req.Query, fetch, req.Filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "keyword search", err)
	}
	return candidates, nil
}

// sortCandidates orders by score descending with ascending insertion ordinal
// breaking ties, which keeps repeated queries over an unchanged corpus stable.
func sortCandidates(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Ordinal < candidates[j].Ordinal
	})
}

func identityRerank(candidates []domain.Candidate) []domain.RerankedCandidate {
	out := make([]domain.RerankedCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RerankedCandidate{Candidate: c, RetrievalScore: c.Score}
	}
	return out
}
