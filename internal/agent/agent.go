// Package agent orchestrates chat turns: it grounds the model in index
// search results, runs tool calls, and records the exchange.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/loupedev/loupe/internal/index"
	"github.com/loupedev/loupe/internal/llm"
	"github.com/loupedev/loupe/internal/memory"
)

const maxToolRounds = 8

const systemPrompt = `You are Loupe, a development assistant for a single code workspace.
Answer questions about the codebase precisely. Use the search_code tool to find
relevant code and the read_file tool to inspect files before answering. Cite
file paths and line numbers. If the index has no answer, say so.`

// Agent answers questions about one workspace.
type Agent struct {
	client        llm.Client
	manager       *index.Manager
	conversations *memory.ConversationStore
	notes         *memory.ProjectStore
	tools         []Tool
}

// New builds an agent over the given index and stores.
func New(client llm.Client, manager *index.Manager, conversations *memory.ConversationStore, notes *memory.ProjectStore) *Agent {
	return &Agent{
		client:        client,
		manager:       manager,
		conversations: conversations,
		notes:         notes,
		tools: []Tool{
			searchCodeTool(manager),
			readFileTool(manager),
		},
	}
}

// Reply holds one completed chat turn.
type Reply struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	ToolCalls      int    `json:"tool_calls"`
}

// Chat runs one user turn. When conversationID is empty a new conversation
// is started; the exchange is persisted either way.
func (a *Agent) Chat(ctx context.Context, conversationID, userMessage string) (Reply, error) {
	conv, err := a.loadOrCreate(conversationID)
	if err != nil {
		return Reply{}, err
	}

	messages := a.buildTranscript(ctx, conv, userMessage)
	if err := a.conversations.Append(conv, "user", userMessage); err != nil {
		return Reply{}, fmt.Errorf("record user message: %w", err)
	}

	schemas := make([]llm.ToolSchema, len(a.tools))
	for i, t := range a.tools {
		schemas[i] = t.Schema()
	}

	toolCalls := 0
	for round := 0; round <= maxToolRounds; round++ {
		resp, err := a.client.Chat(ctx, messages, schemas)
		if err != nil {
			return Reply{}, fmt.Errorf("llm chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 || round == maxToolRounds {
			if err := a.conversations.Append(conv, "assistant", resp.Content); err != nil {
				return Reply{}, fmt.Errorf("record assistant message: %w", err)
			}
			return Reply{
				Content:        resp.Content,
				ConversationID: conv.ID,
				ToolCalls:      toolCalls,
			}, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			toolCalls++
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    a.runTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return Reply{}, fmt.Errorf("chat did not converge")
}

func (a *Agent) loadOrCreate(conversationID string) (*memory.Conversation, error) {
	if conversationID == "" {
		return a.conversations.New(""), nil
	}
	conv, err := a.conversations.Load(conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

// buildTranscript assembles system prompt, project notes, prior turns,
// grounding search results, and the new user message.
func (a *Agent) buildTranscript(ctx context.Context, conv *memory.Conversation, userMessage string) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	if notes, err := a.notes.List(""); err == nil && len(notes) > 0 {
		var sb strings.Builder
		sb.WriteString("Known facts about this project:\n")
		for i, note := range notes {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", note.Category, note.Content)
		}
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sb.String()})
	}

	for _, msg := range conv.Messages {
		role := llm.RoleUser
		if msg.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	if grounding := a.searchContext(ctx, userMessage); grounding != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: grounding})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
}

func (a *Agent) searchContext(ctx context.Context, query string) string {
	results := a.manager.Search(ctx, query, index.SearchOptions{TopK: 5, MinScore: index.DefaultMinScore})
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Potentially relevant code:\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "\n%s (%s)\n%s\n", r.Location(), r.ChunkType, r.Snippet)
	}
	return sb.String()
}

func (a *Agent) runTool(ctx context.Context, call llm.ToolCall) string {
	for _, tool := range a.tools {
		if tool.Name != call.Name {
			continue
		}
		if err := tool.ValidateArgs(call.Args); err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		result, err := tool.Fn(ctx, call.Args)
		if err != nil {
			log.Printf("agent: tool %s failed: %v", call.Name, err)
			return fmt.Sprintf("error: %v", err)
		}
		return result
	}
	return fmt.Sprintf("error: unknown tool %q", call.Name)
}
