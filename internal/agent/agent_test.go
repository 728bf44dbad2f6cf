package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loupedev/loupe/internal/embedding"
	"github.com/loupedev/loupe/internal/index"
	"github.com/loupedev/loupe/internal/llm"
	"github.com/loupedev/loupe/internal/memory"
)

// scriptedClient replays canned responses in order.
type scriptedClient struct {
	responses []llm.Response
	calls     int
	lastMsgs  []llm.Message
}

func (s *scriptedClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolSchema) (llm.Response, error) {
	s.lastMsgs = messages
	if s.calls >= len(s.responses) {
		return llm.Response{Content: "done", FinishReason: "stop"}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedClient) Model() string { return "scripted" }

func newAgentFixture(t *testing.T, client llm.Client) (*Agent, string) {
	t.Helper()
	workspace := t.TempDir()
	src := `package app

// Run starts the request loop.
func Run(addr string) error {
	return listenAndServe(addr)
}
`
	if err := os.WriteFile(filepath.Join(workspace, "app.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	manager, err := index.Open(workspace, filepath.Join(t.TempDir(), "index"), embedding.NewStaticEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })
	if _, err := manager.Build(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	base := t.TempDir()
	conversations := memory.NewConversationStore(base, workspace)
	notes := memory.NewProjectStore(base, workspace)
	return New(client, manager, conversations, notes), workspace
}

func TestAgentChatPlainAnswer(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Content: "Run starts the request loop.", FinishReason: "stop"},
	}}
	a, _ := newAgentFixture(t, client)

	reply, err := a.Chat(context.Background(), "", "what does Run do?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Content != "Run starts the request loop." {
		t.Errorf("Content = %q", reply.Content)
	}
	if reply.ConversationID == "" {
		t.Error("expected a conversation id")
	}
	if reply.ToolCalls != 0 {
		t.Errorf("ToolCalls = %d, want 0", reply.ToolCalls)
	}

	// Transcript carries the system prompt and grounding context.
	if len(client.lastMsgs) == 0 || client.lastMsgs[0].Role != llm.RoleSystem {
		t.Fatal("transcript should start with the system prompt")
	}
}

func TestAgentChatToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{
			FinishReason: "tool_calls",
			ToolCalls: []llm.ToolCall{{
				ID:   "call_1",
				Name: "read_file",
				Args: map[string]any{"path": "app.go"},
			}},
		},
		{Content: "It delegates to listenAndServe.", FinishReason: "stop"},
	}}
	a, _ := newAgentFixture(t, client)

	reply, err := a.Chat(context.Background(), "", "what does Run call?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", reply.ToolCalls)
	}
	if reply.Content != "It delegates to listenAndServe." {
		t.Errorf("Content = %q", reply.Content)
	}

	// The tool result was fed back as a tool message.
	var sawToolResult bool
	for _, msg := range client.lastMsgs {
		if msg.Role == llm.RoleTool && strings.Contains(msg.Content, "listenAndServe") {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Error("tool result missing from transcript")
	}
}

func TestAgentChatPersistsConversation(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Content: "first answer", FinishReason: "stop"},
		{Content: "second answer", FinishReason: "stop"},
	}}
	a, _ := newAgentFixture(t, client)

	first, err := a.Chat(context.Background(), "", "first question")
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Chat(context.Background(), first.ConversationID, "second question")
	if err != nil {
		t.Fatal(err)
	}
	if second.ConversationID != first.ConversationID {
		t.Error("follow-up should stay in the same conversation")
	}

	conv, err := a.conversations.Load(first.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 4 {
		t.Errorf("persisted messages = %d, want 4", len(conv.Messages))
	}
}

func TestToolValidateArgs(t *testing.T) {
	a, _ := newAgentFixture(t, &scriptedClient{})

	var readFile Tool
	for _, tool := range a.tools {
		if tool.Name == "read_file" {
			readFile = tool
		}
	}
	if readFile.Name == "" {
		t.Fatal("read_file tool not registered")
	}

	if err := readFile.ValidateArgs(map[string]any{"path": "app.go"}); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
	if err := readFile.ValidateArgs(map[string]any{}); err == nil {
		t.Error("missing required path should fail validation")
	}
	if err := readFile.ValidateArgs(map[string]any{"path": "app.go", "start_line": 0}); err == nil {
		t.Error("start_line below minimum should fail validation")
	}
}

func TestReadFileToolLineRange(t *testing.T) {
	a, _ := newAgentFixture(t, &scriptedClient{})

	result := a.runTool(context.Background(), llm.ToolCall{
		ID:   "call_range",
		Name: "read_file",
		Args: map[string]any{"path": "app.go", "start_line": float64(1), "end_line": float64(1)},
	})
	if result != "package app" {
		t.Errorf("line range result = %q", result)
	}
}

func TestReadFileToolRejectsEscape(t *testing.T) {
	a, _ := newAgentFixture(t, &scriptedClient{})

	result := a.runTool(context.Background(), llm.ToolCall{
		ID:   "call_escape",
		Name: "read_file",
		Args: map[string]any{"path": "../../etc/passwd"},
	})
	if !strings.HasPrefix(result, "error:") {
		t.Errorf("path escape should error, got %q", result)
	}
}

func TestRunToolUnknown(t *testing.T) {
	a, _ := newAgentFixture(t, &scriptedClient{})
	result := a.runTool(context.Background(), llm.ToolCall{Name: "launch_rockets"})
	if !strings.Contains(result, "unknown tool") {
		t.Errorf("unknown tool result = %q", result)
	}
}
