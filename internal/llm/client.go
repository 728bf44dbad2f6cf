// Package llm normalizes chat-completion providers behind one interface.
package llm

import (
	"context"
	"fmt"
)

// Role identifies a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the provider-agnostic chat message.
type Message struct {
	Role    Role
	Content string
	// ToolCallID carries the provider's tool-use id on RoleTool messages.
	ToolCallID string
	// ToolCalls holds the calls an assistant message made, needed when the
	// transcript is replayed to the provider.
	ToolCalls []ToolCall
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolSchema describes a tool offered to the model.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string
}

// Response is the normalized result of one chat call.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string // "stop", "tool_calls", "length"
	InputTokens  int
	OutputTokens int
}

// Client is a synchronous chat-completion provider.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSchema) (Response, error)
	Model() string
}

// Options tune a provider at construction time.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return 4096
}

func (o Options) temperature() float32 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return 0.1
}

// New selects a provider by name.
func New(provider, apiKey string, opts Options) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, opts)
	case "anthropic":
		return NewAnthropicClient(apiKey, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
