// Package memory persists conversations and project notes as JSON files,
// scoped to a workspace.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a single exchange turn.
type Message struct {
	Role      string    `json:"role"` // "user", "assistant", "tool"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a stored chat session.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationMeta is the listing view of a conversation.
type ConversationMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationStore persists conversations under
// <basePath>/conversations/<workspace-hash>/.
type ConversationStore struct {
	basePath  string
	workspace string
}

// NewConversationStore creates a store rooted at basePath for workspace.
func NewConversationStore(basePath, workspace string) *ConversationStore {
	return &ConversationStore{basePath: basePath, workspace: workspace}
}

// WorkspaceHash derives the directory name scoping data to one workspace.
func WorkspaceHash(workspace string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(workspace)))
	return hex.EncodeToString(hash[:])[:12]
}

func (s *ConversationStore) dir() string {
	return filepath.Join(s.basePath, "conversations", WorkspaceHash(s.workspace))
}

// New creates an empty conversation with a fresh id.
func (s *ConversationStore) New(title string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Save writes the conversation to disk.
func (s *ConversationStore) Save(c *Conversation) error {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("create conversation dir: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	path := filepath.Join(s.dir(), c.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

// Load retrieves a conversation by id.
func (s *ConversationStore) Load(id string) (*Conversation, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(), id+".json"))
	if err != nil {
		return nil, fmt.Errorf("read conversation %s: %w", id, err)
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", id, err)
	}
	return &c, nil
}

// Append adds a message and persists the conversation.
func (s *ConversationStore) Append(c *Conversation, role, content string) error {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if c.Title == "" && role == "user" {
		c.Title = truncateTitle(content)
	}
	return s.Save(c)
}

// List returns conversation metadata, newest first. A missing directory
// yields an empty list.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.dir())
	if os.IsNotExist(err) {
		return []ConversationMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	var metas []ConversationMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir(), entry.Name()))
		if err != nil {
			continue
		}
		var c Conversation
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		metas = append(metas, ConversationMeta{
			ID:        c.ID,
			Title:     c.Title,
			Messages:  len(c.Messages),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a conversation by id.
func (s *ConversationStore) Delete(id string) error {
	path := filepath.Join(s.dir(), id+".json")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

func truncateTitle(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}
