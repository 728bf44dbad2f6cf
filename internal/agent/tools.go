package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/loupedev/loupe/internal/index"
	"github.com/loupedev/loupe/internal/llm"
)

// ToolFunc executes a tool call and returns its textual result.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool couples a JSON-schema contract with its implementation.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
}

// ValidateArgs checks args against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", t.Name, strings.Join(msgs, "; "))
	}
	return nil
}

// Schema exposes the tool contract to an LLM client.
func (t Tool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		JSONSchema:  t.SchemaJSON,
	}
}

const maxToolFileBytes = 64 * 1024

// searchCodeTool exposes semantic search over the index.
func searchCodeTool(manager *index.Manager) Tool {
	return Tool{
		Name:        "search_code",
		Description: "Semantically search the indexed codebase. Returns ranked chunks with file locations.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Natural-language or code search query"},
				"language": {"type": "string", "description": "Restrict to one language tag, e.g. go or python"},
				"top_k": {"type": "integer", "minimum": 1, "maximum": 50}
			},
			"required": ["query"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			opts := index.SearchOptions{MinScore: index.DefaultMinScore}
			if lang, ok := args["language"].(string); ok {
				opts.Language = lang
			}
			if k, ok := args["top_k"].(float64); ok {
				opts.TopK = int(k)
			}

			results := manager.Search(ctx, query, opts)
			if len(results) == 0 {
				return "No results.", nil
			}

			var sb strings.Builder
			for i, r := range results {
				if i >= 10 {
					break
				}
				fmt.Fprintf(&sb, "%s (%s, score %.2f)\n%s\n\n", r.Location(), r.ChunkType, r.Score, r.Snippet)
			}
			return sb.String(), nil
		},
	}
}

// readFileTool reads a workspace file, optionally a line range.
func readFileTool(manager *index.Manager) Tool {
	return Tool{
		Name:        "read_file",
		Description: "Read a file from the workspace, optionally restricted to a line range.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Path relative to the workspace root"},
				"start_line": {"type": "integer", "minimum": 1},
				"end_line": {"type": "integer", "minimum": 1}
			},
			"required": ["path"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			rel, _ := args["path"].(string)
			abs, err := resolveWorkspacePath(manager.Workspace(), rel)
			if err != nil {
				return "", err
			}
			content, err := os.ReadFile(abs)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", rel, err)
			}
			if len(content) > maxToolFileBytes {
				content = content[:maxToolFileBytes]
			}

			lines := strings.Split(string(content), "\n")
			start, end := 1, len(lines)
			if v, ok := args["start_line"].(float64); ok {
				start = int(v)
			}
			if v, ok := args["end_line"].(float64); ok {
				end = int(v)
			}
			if start < 1 {
				start = 1
			}
			if end > len(lines) {
				end = len(lines)
			}
			if start > end {
				return "", fmt.Errorf("read %s: empty line range %d-%d", rel, start, end)
			}
			return strings.Join(lines[start-1:end], "\n"), nil
		},
	}
}

// resolveWorkspacePath rejects paths that escape the workspace root.
func resolveWorkspacePath(workspace, rel string) (string, error) {
	abs := filepath.Join(workspace, rel)
	cleanRoot := filepath.Clean(workspace) + string(filepath.Separator)
	if !strings.HasPrefix(abs+string(filepath.Separator), cleanRoot) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return abs, nil
}
