// Package rerank implements cross-encoder scoring against a
// Cohere-compatible /v2/rerank HTTP endpoint, which is also the contract
// local rerank servers expose for bge-reranker models.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config holds connection settings for the rerank endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client scores (query, document) pairs with a cross-encoder. It is a
// process-wide singleton treated as a stateless pure function by callers.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns one relevance score per input text, in input order.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := rerankRequest{
		Query:     query,
		Documents: texts,
		Model:     c.cfg.Model,
		TopN:      len(texts),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v2/rerank",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank returned no score for document %d", i)
		}
	}

	return scores, nil
}
