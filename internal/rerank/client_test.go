package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "minimum gpa", req.Query)
		require.Len(t, req.Documents, 3)

		// Out of order on purpose: scores must land by index.
		resp := map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.91},
				{"index": 0, "relevance_score": 0.12},
				{"index": 1, "relevance_score": 0.55},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Model: "bge-reranker-v2-m3"})
	scores, err := client.Score(context.Background(), "minimum gpa", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.12, 0.55, 0.91}, scores)
}

func TestScoreEmptyInput(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:0"})
	scores, err := client.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"model not loaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=503")
}

func TestScoreMissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"index": 0, "relevance_score": 0.5}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Score(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no score for document 1")
}
