package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	defaultTopK             = 5
	defaultOversampleFactor = 3
)

// RetrieverConfig controls the two-stage retrieval pipeline.
type RetrieverConfig struct {
	TopK             int
	OversampleFactor int
}

func (c RetrieverConfig) normalized() RetrieverConfig {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.OversampleFactor <= 1 {
		c.OversampleFactor = defaultOversampleFactor
	}
	return c
}

// Retriever runs two-stage retrieval: approximate vector search over an
// oversampled candidate pool, then cross-encoder reranking down to top k.
// A nil reranker degrades to single-stage vector search.
type Retriever struct {
	embedder EmbeddingClient
	reranker RerankClient
	chunks   ChunkSearchRepository
	logs     SearchLogRepository
	cfg      RetrieverConfig
}

// NewRetriever creates a new Retriever instance. reranker and logs may be nil.
func NewRetriever(embedder EmbeddingClient, reranker RerankClient, chunks ChunkSearchRepository, logs SearchLogRepository, cfg RetrieverConfig) *Retriever {
	return &Retriever{
		embedder: embedder,
		reranker: reranker,
		chunks:   chunks,
		logs:     logs,
		cfg:      cfg.normalized(),
	}
}

// Search retrieves the topK most relevant chunks for query. With a reranker
// configured, stage one fetches topK times the oversample factor candidates
// and stage two reorders them by cross-encoder score. Reranking is skipped
// when the candidate pool is already within topK.
func (r *Retriever) Search(ctx context.Context, query string, topK int, filters SearchFilters) ([]domain.RetrievalResult, error) {
	started := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	limit := topK
	if r.reranker != nil {
		limit = topK * r.cfg.OversampleFactor
	}

	candidates, err := r.searchStage1(ctx, query, limit, filters)
	if err != nil {
		return []domain.RetrievalResult{}, err
	}

	results, err := r.rerank(ctx, query, candidates, topK)
	if err != nil {
		return []domain.RetrievalResult{}, err
	}

	r.logSearch(ctx, SearchLogEntry{
		Query:       query,
		Mode:        SearchModeStandard,
		SchoolID:    filters.SchoolID,
		PageType:    string(filters.PageType),
		ResultCount: len(results),
		Duration:    time.Since(started),
	})
	return results, nil
}

// searchStage1 embeds the query and runs approximate vector search, returning
// candidates ordered by descending cosine similarity.
func (r *Retriever) searchStage1(ctx context.Context, query string, limit int, filters SearchFilters) ([]domain.RetrievalResult, error) {
	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrieval, "query embedding failed", err)
	}

	candidates, err := r.chunks.SearchByEmbedding(ctx, embeddings[0], filters, limit)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrieval, "vector search failed", err)
	}
	return candidates, nil
}

// rerank scores candidates against query with the cross-encoder and returns
// the topK by descending score. Without a reranker, or when the pool is
// already within topK, the vector ordering is kept.
func (r *Retriever) rerank(ctx context.Context, query string, candidates []domain.RetrievalResult, topK int) ([]domain.RetrievalResult, error) {
	if r.reranker == nil || len(candidates) <= topK {
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	scores, err := r.reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrieval, "rerank failed", err)
	}
	for i := range candidates {
		score := scores[i]
		candidates[i].RerankScore = &score
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return *candidates[i].RerankScore > *candidates[j].RerankScore
	})
	return candidates[:topK], nil
}

// logSearch is best-effort; a logging failure never fails the search.
func (r *Retriever) logSearch(ctx context.Context, entry SearchLogEntry) {
	if r.logs == nil {
		return
	}
	if err := r.logs.CreateSearchLog(ctx, entry); err != nil {
		log.Printf("search log write failed: %v", err)
	}
}
