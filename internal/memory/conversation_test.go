package memory

import (
	"testing"
	"time"
)

func TestConversationSaveLoadRoundTrip(t *testing.T) {
	store := NewConversationStore(t.TempDir(), "/work/project")

	c := store.New("debugging session")
	if err := store.Append(c, "user", "why does the index skip hidden files?"); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(c, "assistant", "hidden paths are filtered unless allow-listed"); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "debugging session" {
		t.Errorf("Title = %q", loaded.Title)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[1].Role != "assistant" {
		t.Errorf("roles = %q, %q", loaded.Messages[0].Role, loaded.Messages[1].Role)
	}
}

func TestConversationTitleFromFirstMessage(t *testing.T) {
	store := NewConversationStore(t.TempDir(), "/work/project")

	c := store.New("")
	if err := store.Append(c, "user", "explain the ranker\nwith details"); err != nil {
		t.Fatal(err)
	}
	if c.Title != "explain the ranker" {
		t.Errorf("Title = %q, want first line of first user message", c.Title)
	}
}

func TestConversationListNewestFirst(t *testing.T) {
	store := NewConversationStore(t.TempDir(), "/work/project")

	first := store.New("first")
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	second := store.New("second")
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("List = %d entries, want 2", len(metas))
	}
	if metas[0].Title != "second" {
		t.Errorf("newest first: got %q", metas[0].Title)
	}
}

func TestConversationListEmpty(t *testing.T) {
	store := NewConversationStore(t.TempDir(), "/work/project")
	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("List = %d entries, want 0", len(metas))
	}
}

func TestConversationDelete(t *testing.T) {
	store := NewConversationStore(t.TempDir(), "/work/project")
	c := store.New("doomed")
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(c.ID); err == nil {
		t.Error("expected load failure after delete")
	}
}

func TestWorkspaceScoping(t *testing.T) {
	base := t.TempDir()
	a := NewConversationStore(base, "/work/alpha")
	b := NewConversationStore(base, "/work/beta")

	c := a.New("alpha only")
	if err := a.Save(c); err != nil {
		t.Fatal(err)
	}

	metas, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("workspace beta sees %d conversations, want 0", len(metas))
	}
}

func TestProjectNotesCRUD(t *testing.T) {
	store := NewProjectStore(t.TempDir(), "/work/project")

	note, err := store.Add("convention", "errors are wrapped with %w")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := store.Update(note.ID, "errors are wrapped with fmt.Errorf and %w")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content == note.Content {
		t.Error("content should change on update")
	}

	if _, err := store.Add("decision", "vectors are reclaimed only on forced rebuild"); err != nil {
		t.Fatal(err)
	}

	all, err := store.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d notes, want 2", len(all))
	}

	conventions, err := store.List("convention")
	if err != nil {
		t.Fatal(err)
	}
	if len(conventions) != 1 {
		t.Fatalf("category filter = %d notes, want 1", len(conventions))
	}

	if err := store.Delete(note.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(note.ID); err == nil {
		t.Error("expected get failure after delete")
	}
}
