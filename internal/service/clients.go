package service

import (
	"context"
	"encoding/json"
)

// Chat message roles as used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a single turn in a chat transcript.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes a callable tool exposed to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// EmbeddingClient defines the interface for generating embeddings.
type EmbeddingClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RerankClient defines the interface for cross-encoder relevance scoring.
// Score returns one relevance score per document, index-aligned with texts.
type RerankClient interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// ChatClient defines the interface for chat completions with optional tools.
type ChatClient interface {
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolSpec) (*ChatMessage, error)
}
