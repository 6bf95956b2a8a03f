package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	defaultParaphrases    = 3
	paraphraseStageFactor = 2
)

const paraphrasePrompt = `Rewrite the following graduate admissions question as %d alternative search queries. Vary the wording and emphasis but keep the meaning. Return one query per line with no numbering or commentary.

Question: %s`

// Expander widens recall by searching several paraphrases of the query in
// parallel, merging the candidate pools, and reranking the union against the
// original query.
type Expander struct {
	retriever *Retriever
	chat      ChatClient
	n         int
}

// NewExpander creates a new Expander instance. n is the number of paraphrases
// generated in addition to the original query.
func NewExpander(retriever *Retriever, chat ChatClient, n int) *Expander {
	if n <= 0 {
		n = defaultParaphrases
	}
	return &Expander{retriever: retriever, chat: chat, n: n}
}

// SearchExpanded runs stage-one retrieval for the original query plus n
// paraphrases concurrently, deduplicates the union by chunk text in
// first-seen order, then reranks once against the original query.
func (e *Expander) SearchExpanded(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	started := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = e.retriever.cfg.TopK
	}

	queries := e.paraphrase(ctx, query)

	// Each paraphrase contributes an unranked stage-one pool; reranking
	// happens once, over the merged union.
	pools := make([][]domain.RetrievalResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			candidates, err := e.retriever.searchStage1(gctx, q, topK*paraphraseStageFactor, SearchFilters{})
			if err != nil {
				return err
			}
			pools[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return []domain.RetrievalResult{}, err
	}

	merged := mergePools(pools)
	results, err := e.retriever.rerank(ctx, query, merged, topK)
	if err != nil {
		return []domain.RetrievalResult{}, err
	}

	e.retriever.logSearch(ctx, SearchLogEntry{
		Query:       query,
		Mode:        SearchModeExpanded,
		ResultCount: len(results),
		Duration:    time.Since(started),
	})
	return results, nil
}

// paraphrase asks the chat model for alternative phrasings. The original
// query always comes first; on any failure the original alone is used.
func (e *Expander) paraphrase(ctx context.Context, query string) []string {
	queries := []string{query}
	if e.chat == nil {
		return queries
	}

	reply, err := e.chat.Chat(ctx, []ChatMessage{
		{Role: RoleUser, Content: fmt.Sprintf(paraphrasePrompt, e.n, query)},
	}, nil)
	if err != nil {
		log.Printf("query expansion failed, searching original only: %v", err)
		return queries
	}

	for _, line := range strings.Split(reply.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == query {
			continue
		}
		queries = append(queries, line)
		if len(queries) > e.n {
			break
		}
	}
	return queries
}

// mergePools deduplicates by exact chunk text, keeping first-seen order
// across pools and within each pool.
func mergePools(pools [][]domain.RetrievalResult) []domain.RetrievalResult {
	seen := make(map[string]struct{})
	var merged []domain.RetrievalResult
	for _, pool := range pools {
		for _, result := range pool {
			if _, ok := seen[result.Text]; ok {
				continue
			}
			seen[result.Text] = struct{}{}
			merged = append(merged, result)
		}
	}
	return merged
}
