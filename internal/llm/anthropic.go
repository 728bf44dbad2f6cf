package llm

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements Client over the Anthropic messages API.
type AnthropicClient struct {
	client *anthropic.Client
	opts   Options
}

// NewAnthropicClient creates an Anthropic-backed client. Defaults to
// claude-sonnet-4-20250514.
func NewAnthropicClient(apiKey string, opts Options) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: missing API key")
	}
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		opts:   opts,
	}, nil
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string { return c.opts.Model }

// Chat sends the transcript and returns the normalized response.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolSchema) (Response, error) {
	var system []anthropic.MessageSystemPart
	var msgs []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, anthropic.MessageSystemPart{
				Type: "text",
				Text: msg.Content,
			})
		case RoleUser:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		case RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(argsJSON)))
			}
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
		case RoleTool:
			body := msg.Content
			if body == "" {
				body = "{}"
			}
			msgs = append(msgs, anthropic.Message{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewToolResultMessageContent(msg.ToolCallID, body, false),
				},
			})
		}
	}

	temperature := c.opts.temperature()
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    msgs,
		MaxTokens:   c.opts.maxTokens(),
		Temperature: &temperature,
	}
	if len(system) > 0 {
		req.MultiSystem = system
	}
	for _, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal([]byte(t.JSONSchema), &schema); err != nil {
			return Response{}, fmt.Errorf("anthropic: tool schema for %s: %w", t.Name, err)
		}
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic chat: %w", err)
	}

	out := Response{
		FinishReason: "stop",
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				out.Content += *block.Text
			}
		case "tool_use":
			if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
				continue
			}
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = make(map[string]any)
				}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}
	switch {
	case len(out.ToolCalls) > 0:
		out.FinishReason = "tool_calls"
	case resp.StopReason == "max_tokens":
		out.FinishReason = "length"
	}
	return out, nil
}
