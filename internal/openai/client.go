package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/gradnav/gradnav/internal/service"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel matches the model the stored corpus was
	// embedded with; switching models invalidates stored vectors.
	DefaultEmbeddingModel = "bge-m3"
	// DefaultEmbeddingDimensions is the bge-m3 output dimension.
	DefaultEmbeddingDimensions = 1024
	// DefaultChatModel is used for answers, paraphrases and the agent loop.
	DefaultChatModel = "gpt-4o-mini"
)

var (
	// ErrEmptyText is returned when no text was given to embed
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Config holds connection settings for an OpenAI-compatible endpoint.
// BaseURL may point at a local inference server.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

// Client wraps an OpenAI-compatible API for embeddings and chat. It is a
// process-wide singleton treated as a stateless pure function by callers.
type Client struct {
	api        *openai.Client
	model      openai.EmbeddingModel
	chatModel  string
	dimensions int
}

// NewClient creates a Client from explicit configuration.
func NewClient(cfg Config) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		model:      openai.EmbeddingModel(model),
		chatModel:  chatModel,
		dimensions: dimensions,
	}
}

// EmbedTexts generates one fixed-dimension embedding per input text, in
// input order. The whole batch goes out in a single request.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if len(d.Embedding) != c.dimensions {
			return nil, ErrWrongDimensions
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
}

// Chat sends the turn history to the generative model. When tools is
// non-empty the model may answer with tool-invocation requests instead of
// text; an empty tools slice withdraws tool-calling capability.
func (c *Client) Chat(ctx context.Context, messages []service.ChatMessage, tools []service.ToolSpec) (*service.ChatMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: toAPIMessages(messages),
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	out := &service.ChatMessage{
		Role:    msg.Role,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, service.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toAPIMessages(messages []service.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		apiMsg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, apiMsg)
	}
	return out
}
