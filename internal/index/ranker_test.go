package index

import (
	"strings"
	"testing"
)

func TestRankResultsOrderingAndBoosts(t *testing.T) {
	results := []SearchResult{
		{
			Content:   "some unrelated text that talks about nothing in particular here",
			FilePath:  "notes/todo.txt",
			ChunkType: ChunkText,
			Language:  "text",
			Score:     0.5,
		},
		{
			Content:   "func ParseConfig(path string) error { return parseConfig(path) }",
			FilePath:  "internal/config/parse.go",
			ChunkType: ChunkFunction,
			Language:  "go",
			Score:     0.5,
			Metadata:  map[string]any{"name": "ParseConfig"},
		},
	}

	ranked := RankResults(results, "ParseConfig", 10)
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Metadata["name"] != "ParseConfig" {
		t.Errorf("function with exact match should rank first, got %q", ranked[0].FilePath)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Error("boosted result should score higher")
	}
}

func TestRankResultsClamp(t *testing.T) {
	results := []SearchResult{{
		Content:   strings.Repeat("query match query match query match padding words here ", 3),
		FilePath:  "query.go",
		ChunkType: ChunkFunction,
		Language:  "go",
		Score:     0.95,
		Metadata:  map[string]any{"name": "query"},
	}}
	ranked := RankResults(results, "query", 10)
	if ranked[0].Score > 1 {
		t.Errorf("score %f exceeds 1", ranked[0].Score)
	}

	short := []SearchResult{{Content: "tiny", FilePath: "a.txt", ChunkType: ChunkText, Language: "text", Score: 0.05}}
	ranked = RankResults(short, "zzz", 10)
	if ranked[0].Score < 0 {
		t.Errorf("score %f below 0", ranked[0].Score)
	}
}

func TestRankResultsTruncates(t *testing.T) {
	var results []SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, SearchResult{
			Content:   strings.Repeat("distinct content block ", i+1) + strings.Repeat("word", i),
			FilePath:  "file.go",
			ChunkType: ChunkText,
			Language:  "go",
			Score:     float32(i) / 10,
		})
	}
	ranked := RankResults(results, "nomatch", 3)
	if len(ranked) > 3 {
		t.Errorf("got %d results, want at most 3", len(ranked))
	}
}

func TestRankResultsEmpty(t *testing.T) {
	if got := RankResults(nil, "query", 5); got != nil {
		t.Errorf("RankResults(nil) = %v, want nil", got)
	}
}

func TestExtractSnippetShortContent(t *testing.T) {
	content := "short content fits entirely"
	if got := extractSnippet(content, "content"); got != content {
		t.Errorf("short content should pass through, got %q", got)
	}
}

func TestExtractSnippetAnchorsOnMatch(t *testing.T) {
	content := strings.Repeat("padding words before the interesting part ", 10) +
		"the magic keyword lives here" +
		strings.Repeat(" trailing filler words after the match", 10)
	snippet := extractSnippet(content, "magic keyword")
	if !strings.Contains(snippet, "magic keyword") {
		t.Errorf("snippet %q should contain the match", snippet)
	}
	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("truncated snippet should carry ellipses: %q", snippet)
	}
	if len(snippet) > snippetLength+40 {
		t.Errorf("snippet length %d exceeds budget", len(snippet))
	}
}

func TestHighlightSnippet(t *testing.T) {
	got := highlightSnippet("the Widget builds widgets", "widget")
	if !strings.Contains(got, "**widget**") {
		t.Errorf("highlight missing: %q", got)
	}
	// Whole-word boundary: "widgets" must not be partially wrapped.
	if strings.Contains(got, "**widget**s") {
		t.Errorf("partial word highlighted: %q", got)
	}
}

func TestDeduplicateKeepsHigherScore(t *testing.T) {
	results := []SearchResult{
		{Content: "func add(a, b int) int { return a + b }", Score: 0.9, FilePath: "a.go"},
		{Content: "func add(a, b int) int  {  return a + b  }", Score: 0.5, FilePath: "b.go"},
		{Content: "completely different content about rendering templates safely", Score: 0.4, FilePath: "c.go"},
	}
	deduped := deduplicate(results)
	if len(deduped) != 2 {
		t.Fatalf("got %d results, want 2", len(deduped))
	}
	if deduped[0].FilePath != "a.go" {
		t.Errorf("higher-scored duplicate should survive, got %q", deduped[0].FilePath)
	}
}

func TestGroupResultsByFile(t *testing.T) {
	results := []SearchResult{
		{FilePath: "a.go", StartLine: 30},
		{FilePath: "b.go", StartLine: 5},
		{FilePath: "a.go", StartLine: 10},
	}
	grouped := GroupResultsByFile(results)
	if len(grouped) != 2 {
		t.Fatalf("got %d files, want 2", len(grouped))
	}
	if grouped["a.go"][0].StartLine != 10 {
		t.Error("results within a file should be line-ordered")
	}
}
