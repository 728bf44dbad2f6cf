package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goSample = `package sample

import (
	"fmt"
	"strings"
)

// Greeter renders greetings.
type Greeter struct {
	Prefix string
}

// Greet returns a greeting for name.
func (g *Greeter) Greet(name string) string {
	return g.Prefix + strings.TrimSpace(name)
}

// Shout upper-cases a greeting.
func Shout(name string) string {
	return fmt.Sprintf("HELLO %s", name)
}
`

func TestChunkGoExtraction(t *testing.T) {
	chunks := ChunkFile("sample.go", []byte(goSample))
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	byType := make(map[string][]Chunk)
	for _, c := range chunks {
		byType[c.Type] = append(byType[c.Type], c)
	}

	if len(byType[ChunkImport]) != 1 {
		t.Errorf("import chunks = %d, want 1", len(byType[ChunkImport]))
	}
	if len(byType[ChunkClass]) != 1 {
		t.Errorf("class chunks = %d, want 1", len(byType[ChunkClass]))
	}
	if len(byType[ChunkFunction]) != 1 {
		t.Errorf("function chunks = %d, want 1", len(byType[ChunkFunction]))
	}
	if len(byType[ChunkMethod]) != 1 {
		t.Errorf("method chunks = %d, want 1", len(byType[ChunkMethod]))
	}

	method := byType[ChunkMethod][0]
	wantID := fmt.Sprintf("sample.go:%d-%d", method.StartLine, method.EndLine)
	if method.Identifier() != wantID {
		t.Errorf("Identifier = %q, want %q", method.Identifier(), wantID)
	}
	if method.Metadata["name"] != "Greet" {
		t.Errorf("method name = %v, want Greet", method.Metadata["name"])
	}
	if !strings.Contains(method.Content, "// Greet returns") {
		t.Error("method chunk should include its doc comment")
	}

	class := byType[ChunkClass][0]
	if class.Metadata["name"] != "Greeter" {
		t.Errorf("class name = %v, want Greeter", class.Metadata["name"])
	}
	methods, _ := class.Metadata["methods"].([]string)
	if len(methods) != 1 || methods[0] != "Greet" {
		t.Errorf("class methods = %v, want [Greet]", class.Metadata["methods"])
	}
}

func TestChunkGoSortedAndCovering(t *testing.T) {
	chunks := ChunkFile("sample.go", []byte(goSample))

	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine < chunks[i-1].StartLine {
			t.Fatalf("chunks out of order at %d: %d before %d", i, chunks[i].StartLine, chunks[i-1].StartLine)
		}
	}

	covered := make(map[int]bool)
	for _, c := range chunks {
		for line := c.StartLine; line <= c.EndLine; line++ {
			covered[line] = true
		}
	}
	for i, line := range strings.Split(goSample, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !covered[i+1] {
			t.Errorf("line %d (%q) not covered by any chunk", i+1, line)
		}
	}
}

func TestChunkGoParseFailureFallsBack(t *testing.T) {
	broken := "package sample\n\nfunc Broken( {\n"
	chunks := ChunkFile("broken.go", []byte(broken))
	if len(chunks) == 0 {
		t.Fatal("expected generic chunks for unparseable file")
	}
	for _, c := range chunks {
		if c.Type != ChunkText {
			t.Errorf("fallback chunk type = %q, want text", c.Type)
		}
	}
}

func TestChunkEmptyContent(t *testing.T) {
	if got := ChunkFile("empty.py", []byte("")); got != nil {
		t.Errorf("empty content chunks = %v, want nil", got)
	}
	if got := ChunkFile("blank.py", []byte("  \n\t\n")); got != nil {
		t.Errorf("whitespace content chunks = %v, want nil", got)
	}
}

func TestChunkGenericBudgetAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString(strings.Repeat("x", 40))
		sb.WriteByte('\n')
	}
	chunks := ChunkFile("big.txt", []byte(sb.String()))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for _, c := range chunks {
		if len(c.Content) > genericChunkBudget+genericOverlapLines*41 {
			t.Errorf("chunk far exceeds budget: %d chars", len(c.Content))
		}
		if c.Metadata["line_count"] != c.EndLine-c.StartLine+1 {
			t.Errorf("line_count = %v, want %d", c.Metadata["line_count"], c.EndLine-c.StartLine+1)
		}
	}

	// Consecutive chunks share the overlap lines.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine > chunks[i-1].EndLine+1 {
			t.Errorf("gap between chunk %d and %d", i-1, i)
		}
	}

	last := chunks[len(chunks)-1]
	if last.EndLine < 100 {
		t.Errorf("final partial chunk missing: last end line %d", last.EndLine)
	}
}

func TestShouldIndexFile(t *testing.T) {
	dir := t.TempDir()

	ok := filepath.Join(dir, "main.go")
	if err := os.WriteFile(ok, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !ShouldIndexFile(ok) {
		t.Error("regular source file should be indexed")
	}

	cases := []string{
		filepath.Join(dir, "node_modules", "pkg", "index.js"),
		filepath.Join(dir, ".git", "config"),
		filepath.Join(dir, ".hidden", "file.txt"),
		filepath.Join(dir, "photo.png"),
		filepath.Join(dir, "archive.tar"),
	}
	for _, path := range cases {
		if ShouldIndexFile(path) {
			t.Errorf("ShouldIndexFile(%q) = true, want false", path)
		}
	}

	// Allow-listed hidden files pass.
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("KEY=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !ShouldIndexFile(env) {
		t.Error(".env should be indexed")
	}
}

func TestShouldIndexFileSizeCeiling(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, make([]byte, maxIndexableSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	if ShouldIndexFile(big) {
		t.Error("oversized file should not be indexed")
	}
}

func TestFileStats(t *testing.T) {
	chunks := ChunkFile("sample.go", []byte(goSample))
	stats := FileStats(chunks)
	if stats.TotalChunks != len(chunks) {
		t.Errorf("TotalChunks = %d, want %d", stats.TotalChunks, len(chunks))
	}
	if stats.ByType[ChunkFunction] != 1 {
		t.Errorf("function count = %d, want 1", stats.ByType[ChunkFunction])
	}

	empty := FileStats(nil)
	if empty.TotalChunks != 0 || empty.TotalChars != 0 {
		t.Errorf("empty stats = %+v, want zeroes", empty)
	}
}
