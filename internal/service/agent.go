package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	defaultAgentMaxSteps = 5
	agentToolTopK        = 4
	toolContextBudget    = 4000
	forcedStopGrace      = 15 * time.Second
)

const agentSystemPrompt = `You are a graduate admissions research assistant. Use the search tools to gather evidence before answering; prefer school-scoped searches when the question names a school. Cite source URLs from the tool results. When the gathered material answers the question, reply in plain text without calling tools. Do not invent requirements, deadlines, or scores that the material does not state.`

const forcedStopPrompt = `Answer the question now using only the material gathered above. Do not call any tools.`

// AgentConfig bounds a single agent session.
type AgentConfig struct {
	MaxSteps int
	ToolTopK int
}

func (c AgentConfig) normalized() AgentConfig {
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultAgentMaxSteps
	}
	if c.ToolTopK <= 0 {
		c.ToolTopK = agentToolTopK
	}
	return c
}

// AgentResult is the outcome of one agent session.
type AgentResult struct {
	Answer         string
	ToolDispatches int
	ForcedStop     bool
}

// Agent runs a bounded tool-use loop: the model plans, dispatches search
// tools, sees the merged results, and repeats until it answers in plain text
// or the step cap forces a final no-tool generation.
type Agent struct {
	retriever *Retriever
	auditor   *Auditor
	chat      ChatClient
	cfg       AgentConfig
}

// NewAgent creates a new Agent instance.
func NewAgent(retriever *Retriever, auditor *Auditor, chat ChatClient, cfg AgentConfig) *Agent {
	return &Agent{
		retriever: retriever,
		auditor:   auditor,
		chat:      chat,
		cfg:       cfg.normalized(),
	}
}

// Run executes one session for question. The number of tool-dispatch steps
// never exceeds MaxSteps; if the model is still requesting tools at the cap,
// or ctx expires mid-loop, exactly one more generation without tool
// capability produces the answer.
func (a *Agent) Run(ctx context.Context, question string) (*AgentResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuery
	}

	started := time.Now()
	turns := []ChatMessage{
		{Role: RoleSystem, Content: agentSystemPrompt},
		{Role: RoleUser, Content: question},
	}
	result := &AgentResult{}
	done := false

	for result.ToolDispatches < a.cfg.MaxSteps {
		if ctx.Err() != nil {
			break
		}

		reply, err := a.chat.Chat(ctx, turns, agentToolSpecs())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "agent generation failed", err)
		}
		turns = append(turns, *reply)

		if len(reply.ToolCalls) == 0 {
			done = true
			result.Answer = reply.Content
			break
		}

		outputs := make([]string, len(reply.ToolCalls))
		var wg sync.WaitGroup
		for i, call := range reply.ToolCalls {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outputs[i] = a.execTool(ctx, call)
			}()
		}
		wg.Wait()

		// Merge in call order so transcripts are deterministic regardless
		// of tool completion order.
		for i, call := range reply.ToolCalls {
			turns = append(turns, ChatMessage{
				Role:       RoleTool,
				Content:    outputs[i],
				ToolCallID: call.ID,
			})
		}
		result.ToolDispatches++
	}

	if !done {
		result.ForcedStop = true
		answer, err := a.forceAnswer(ctx, turns)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	}

	a.retriever.logSearch(context.WithoutCancel(ctx), SearchLogEntry{
		Query:       question,
		Mode:        SearchModeAgent,
		ResultCount: result.ToolDispatches,
		Duration:    time.Since(started),
	})
	return result, nil
}

// forceAnswer issues the single post-cap generation without tool capability.
// When ctx is already dead the call runs on a short detached grace context so
// the gathered material still yields an answer.
func (a *Agent) forceAnswer(ctx context.Context, turns []ChatMessage) (string, error) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), forcedStopGrace)
		defer cancel()
	}
	turns = append(turns, ChatMessage{Role: RoleUser, Content: forcedStopPrompt})
	reply, err := a.chat.Chat(ctx, turns, nil)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "forced answer generation failed", err)
	}
	return reply.Content, nil
}

type toolArgs struct {
	Query    string `json:"query"`
	SchoolID string `json:"school_id"`
	PageType string `json:"page_type"`
}

// execTool runs one requested tool call. Failures are reported inline as the
// tool result so the loop keeps going; only the transcript sees them.
func (a *Agent) execTool(ctx context.Context, call ToolCall) string {
	var args toolArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return fmt.Sprintf("[error] malformed tool arguments: %v", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "[error] tool call missing query"
	}

	var filters SearchFilters
	switch call.Name {
	case "search_general":
	case "search_school":
		filters.SchoolID = args.SchoolID
	case "search_page_type":
		filters.SchoolID = args.SchoolID
		pageType := domain.PageType(args.PageType)
		if !pageType.IsValid() {
			return fmt.Sprintf("[error] unknown page type %q", args.PageType)
		}
		filters.PageType = pageType
	default:
		return fmt.Sprintf("[error] unknown tool %q", call.Name)
	}

	results, err := a.retriever.Search(ctx, args.Query, a.cfg.ToolTopK, filters)
	if err != nil {
		return fmt.Sprintf("[error] search failed: %v", err)
	}
	if len(results) == 0 {
		return "[search results] no relevant information found."
	}

	results = a.auditor.Annotate(results)
	return "[search results]\n" + BuildAnswerContext(results, toolContextBudget)
}

func agentToolSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Name:        "search_general",
			Description: "Search all indexed admissions pages across every school.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query."}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "search_school",
			Description: "Search pages belonging to one school. Use when the question names a school.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query."},
					"school_id": {"type": "string", "description": "School slug, e.g. cmu, stanford, berkeley."}
				},
				"required": ["query", "school_id"]
			}`),
		},
		{
			Name:        "search_page_type",
			Description: "Search one school's pages of a specific type (faq, checklist, admissions, apply, accepting, reddit, general).",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query."},
					"school_id": {"type": "string", "description": "School slug."},
					"page_type": {"type": "string", "enum": ["faq", "checklist", "admissions", "apply", "accepting", "reddit", "general"]}
				},
				"required": ["query", "school_id", "page_type"]
			}`),
		},
	}
}
