package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loupedev/loupe/internal/agent"
	"github.com/loupedev/loupe/internal/config"
	"github.com/loupedev/loupe/internal/embedding"
	"github.com/loupedev/loupe/internal/index"
	"github.com/loupedev/loupe/internal/llm"
	"github.com/loupedev/loupe/internal/memory"
)

var workspaceFlag string

var rootCmd = &cobra.Command{
	Use:   "loupe",
	Short: "Semantic code index and development assistant",
	Long: `Loupe indexes a code workspace for semantic and keyword search and
answers questions about it through an LLM-backed chat agent.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", ".", "workspace root to operate on")
	rootCmd.AddCommand(indexCmd, searchCmd, chatCmd, serveCmd, sessionsCmd, notesCmd)
}

// runtime bundles everything a command needs.
type runtime struct {
	cfg       *config.Config
	workspace string
	manager   *index.Manager
}

func newRuntime() (*runtime, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	workspace, err := filepath.Abs(workspaceFlag)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	indexManager, err := index.Open(workspace, filepath.Join(workspace, ".loupe", "index"), newEmbedder(cfg))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &runtime{cfg: cfg, workspace: workspace, manager: indexManager}, nil
}

func (r *runtime) close() {
	r.manager.Close()
}

// newEmbedder picks OpenAI when a key is present and falls back to the
// offline static embedder otherwise.
func newEmbedder(cfg *config.Config) embedding.Embedder {
	if cfg.OpenAIKey != "" {
		return embedding.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	}
	return embedding.NewStaticEmbedder(256)
}

// newAgent builds the chat agent, or returns an error when no provider
// credential is configured.
func (r *runtime) newAgent() (*agent.Agent, error) {
	apiKey := r.cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured; set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	client, err := llm.New(r.cfg.Provider, apiKey, llm.Options{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return agent.New(
		client,
		r.manager,
		memory.NewConversationStore(r.cfg.DataDir, r.workspace),
		memory.NewProjectStore(r.cfg.DataDir, r.workspace),
	), nil
}

func (r *runtime) conversations() *memory.ConversationStore {
	return memory.NewConversationStore(r.cfg.DataDir, r.workspace)
}

func (r *runtime) notes() *memory.ProjectStore {
	return memory.NewProjectStore(r.cfg.DataDir, r.workspace)
}
