package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectNote is a persistent fact about the workspace, recorded by the
// user or the agent and surfaced in later chats.
type ProjectNote struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"` // "architecture", "convention", "decision", ...
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectStore persists notes under <basePath>/projects/<workspace-hash>/.
type ProjectStore struct {
	basePath  string
	workspace string
}

// NewProjectStore creates a store rooted at basePath for workspace.
func NewProjectStore(basePath, workspace string) *ProjectStore {
	return &ProjectStore{basePath: basePath, workspace: workspace}
}

func (s *ProjectStore) dir() string {
	return filepath.Join(s.basePath, "projects", WorkspaceHash(s.workspace))
}

// Add creates and persists a new note.
func (s *ProjectStore) Add(category, content string) (*ProjectNote, error) {
	now := time.Now().UTC()
	note := &ProjectNote{
		ID:        uuid.NewString(),
		Category:  category,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(note); err != nil {
		return nil, err
	}
	return note, nil
}

// Update rewrites an existing note's content.
func (s *ProjectStore) Update(id, content string) (*ProjectNote, error) {
	note, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	note.Content = content
	note.UpdatedAt = time.Now().UTC()
	if err := s.save(note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *ProjectStore) save(note *ProjectNote) error {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir(), note.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	return nil
}

// Get loads a note by id.
func (s *ProjectStore) Get(id string) (*ProjectNote, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(), id+".json"))
	if err != nil {
		return nil, fmt.Errorf("read note %s: %w", id, err)
	}
	var note ProjectNote
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("unmarshal note %s: %w", id, err)
	}
	return &note, nil
}

// List returns all notes, newest first, optionally filtered by category.
func (s *ProjectStore) List(category string) ([]ProjectNote, error) {
	entries, err := os.ReadDir(s.dir())
	if os.IsNotExist(err) {
		return []ProjectNote{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	var notes []ProjectNote
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir(), entry.Name()))
		if err != nil {
			continue
		}
		var note ProjectNote
		if err := json.Unmarshal(data, &note); err != nil {
			continue
		}
		if category != "" && note.Category != category {
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

// Delete removes a note by id.
func (s *ProjectStore) Delete(id string) error {
	if err := os.Remove(filepath.Join(s.dir(), id+".json")); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}
