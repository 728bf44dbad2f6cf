// Package config loads Loupe's persistent settings and merges them with
// the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds user preferences plus API credentials. Credentials come
// from the environment and are never written back to disk.
type Config struct {
	Provider           string `json:"provider,omitempty"` // openai or anthropic
	Model              string `json:"model,omitempty"`
	EmbeddingModel     string `json:"embedding_model,omitempty"`
	EmbeddingDimension int    `json:"embedding_dimension,omitempty"`
	MaxTokens          int    `json:"max_tokens,omitempty"`
	DataDir            string `json:"data_dir,omitempty"` // conversation/note storage root

	OpenAIKey    string `json:"-"`
	AnthropicKey string `json:"-"`
}

// Manager reads and writes the config file under the user config dir.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted at <user-config-dir>/loupe.
func NewManager() (*Manager, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(base, "loupe")}, nil
}

// NewManagerAt creates a manager over an explicit directory.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the config file, fills defaults, and applies environment
// overrides. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(m.Path()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes preferences with owner-only permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Exists reports whether the config file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path())
	return err == nil
}

func applyEnv(cfg *Config) {
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")

	if v := os.Getenv("LOUPE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("LOUPE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("LOUPE_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("LOUPE_EMBEDDING_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbeddingDimension = n
		}
	}
	if v := os.Getenv("LOUPE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		if cfg.AnthropicKey != "" && cfg.OpenAIKey == "" {
			cfg.Provider = "anthropic"
		} else {
			cfg.Provider = "openai"
		}
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.EmbeddingDimension == 0 {
		cfg.EmbeddingDimension = 1536
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".loupe")
		} else {
			cfg.DataDir = ".loupe-data"
		}
	}
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == "anthropic" {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}
