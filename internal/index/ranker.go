package index

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// SearchResult is a ranked match returned by the index.
type SearchResult struct {
	Content   string         `json:"content"`
	FilePath  string         `json:"file_path"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Score     float32        `json:"score"`
	ChunkType string         `json:"chunk_type"`
	Language  string         `json:"language"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Snippet   string         `json:"snippet,omitempty"`
	Highlight string         `json:"highlighted_snippet,omitempty"`
}

// Location renders "path:start-end" for display.
func (r SearchResult) Location() string {
	return fmt.Sprintf("%s:%d-%d", r.FilePath, r.StartLine, r.EndLine)
}

const (
	snippetLength  = 200
	dedupThreshold = 0.9
)

var wordPattern = regexp.MustCompile(`\w+`)

var chunkTypeBoosts = map[string]float32{
	ChunkFunction: 0.15,
	ChunkClass:    0.15,
	ChunkMethod:   0.1,
	ChunkImport:   0.05,
	ChunkComment:  0.05,
	ChunkText:     0.0,
}

var languageBoosts = map[string]float32{
	"python":     0.1,
	"javascript": 0.08,
	"typescript": 0.08,
	"java":       0.06,
	"cpp":        0.06,
	"go":         0.06,
	"rust":       0.06,
}

// RankResults re-scores results against the query, sorts them, truncates to
// max, attaches snippets and highlights, and drops near-duplicates.
func RankResults(results []SearchResult, query string, max int) []SearchResult {
	if len(results) == 0 {
		return nil
	}

	ranked := make([]SearchResult, len(results))
	copy(ranked, results)
	for i := range ranked {
		ranked[i].Score = enhancedScore(ranked[i], query)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	for i := range ranked {
		ranked[i].Snippet = extractSnippet(ranked[i].Content, query)
		ranked[i].Highlight = highlightSnippet(ranked[i].Snippet, query)
	}
	return deduplicate(ranked)
}

func enhancedScore(result SearchResult, query string) float32 {
	score := result.Score

	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(result.Content)

	if n := strings.Count(contentLower, queryLower); n > 0 && queryLower != "" {
		if n > 3 {
			n = 3
		}
		score += 0.3 * float32(n)
	}

	queryWords := wordSet(queryLower)
	if len(queryWords) > 0 {
		contentWords := wordSet(contentLower)
		overlap := 0
		for w := range queryWords {
			if contentWords[w] {
				overlap++
			}
		}
		score += 0.2 * float32(overlap) / float32(len(queryWords))
	}

	score += chunkTypeBoosts[result.ChunkType]
	score += languageBoosts[result.Language]

	fileName := strings.ToLower(result.FilePath)
	for w := range queryWords {
		if strings.Contains(fileName, w) {
			score += 0.1
			break
		}
	}

	if name, ok := result.Metadata["name"].(string); ok {
		nameLower := strings.ToLower(name)
		for w := range queryWords {
			if strings.Contains(nameLower, w) {
				score += 0.15
				break
			}
		}
	}

	switch n := len(result.Content); {
	case n < 50:
		score -= 0.1
	case n > 2000:
		score -= 0.05
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// extractSnippet pulls a window around the best query match, expanded to
// whitespace boundaries with ellipses where truncated.
func extractSnippet(content, query string) string {
	if len(content) <= snippetLength {
		return content
	}

	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(content)

	matchPos := strings.Index(contentLower, queryLower)
	if matchPos == -1 {
		// No exact match; anchor on the position with the most query words
		// within a 100-char radius.
		bestPos, bestScore := 0, 0
		for _, word := range wordPattern.FindAllString(queryLower, -1) {
			pos := strings.Index(contentLower, word)
			if pos == -1 {
				continue
			}
			lo := pos - 100
			if lo < 0 {
				lo = 0
			}
			hi := pos + 100
			if hi > len(contentLower) {
				hi = len(contentLower)
			}
			window := contentLower[lo:hi]
			local := 0
			for _, w := range wordPattern.FindAllString(queryLower, -1) {
				if strings.Contains(window, w) {
					local++
				}
			}
			if local > bestScore {
				bestScore = local
				bestPos = pos
			}
		}
		matchPos = bestPos
	}

	start := matchPos - snippetLength/2
	if start < 0 {
		start = 0
	}
	end := start + snippetLength
	if end > len(content) {
		end = len(content)
	}

	if start > 0 {
		for start > 0 && !isSpace(content[start]) {
			start--
		}
		start++
	}
	for end < len(content) && !isSpace(content[end]) {
		end++
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

// highlightSnippet wraps whole-word query matches in **markers**,
// longest word first so shorter words cannot split an earlier match.
func highlightSnippet(snippet, query string) string {
	if snippet == "" || query == "" {
		return snippet
	}
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })

	highlighted := snippet
	for _, word := range words {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		highlighted = pattern.ReplaceAllString(highlighted, "**"+word+"**")
	}
	return highlighted
}

// deduplicate drops results whose normalized content is identical or over
// 90% word-Jaccard-similar to a kept result, preferring the higher score.
func deduplicate(results []SearchResult) []SearchResult {
	var kept []SearchResult
	seen := make(map[string]bool)

	for _, result := range results {
		normalized := normalizeContent(result.Content)
		if seen[normalized] {
			continue
		}

		duplicate := false
		for i, existing := range kept {
			existingNorm := normalizeContent(existing.Content)
			if jaccardSimilarity(normalized, existingNorm) > dedupThreshold {
				if result.Score > existing.Score {
					kept = append(kept[:i], kept[i+1:]...)
					delete(seen, existingNorm)
				} else {
					duplicate = true
				}
				break
			}
		}
		if !duplicate {
			kept = append(kept, result)
			seen[normalized] = true
		}
	}
	return kept
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	codePunct     = regexp.MustCompile(`[{}();,]`)
)

func normalizeContent(content string) string {
	normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(content), " ")
	normalized = codePunct.ReplaceAllString(normalized, "")
	return strings.ToLower(normalized)
}

func jaccardSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	wordsA := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		wordsA[w] = true
	}
	wordsB := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		wordsB[w] = true
	}
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(s, -1) {
		set[w] = true
	}
	return set
}

// GroupResultsByFile groups results by path, ordered by line within a file.
func GroupResultsByFile(results []SearchResult) map[string][]SearchResult {
	grouped := make(map[string][]SearchResult)
	for _, r := range results {
		grouped[r.FilePath] = append(grouped[r.FilePath], r)
	}
	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].StartLine < list[j].StartLine })
	}
	return grouped
}
