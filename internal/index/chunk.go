package index

import "fmt"

// Chunk is one indexable unit of a source file.
type Chunk struct {
	Content   string         `json:"content"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Type      string         `json:"chunk_type"`
	Language  string         `json:"language"`
	FilePath  string         `json:"file_path"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Chunk types.
const (
	ChunkFunction = "function"
	ChunkMethod   = "method"
	ChunkClass    = "class"
	ChunkImport   = "import"
	ChunkComment  = "comment"
	ChunkText     = "text"
)

// LineCount reports the number of lines the chunk spans.
func (c Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// Identifier renders "path:start-end", for deduplication and debugging.
func (c Chunk) Identifier() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine, c.EndLine)
}

// ChunkStats summarizes a file's chunks.
type ChunkStats struct {
	TotalChunks int            `json:"total_chunks"`
	TotalLines  int            `json:"total_lines"`
	TotalChars  int            `json:"total_chars"`
	ByType      map[string]int `json:"by_type"`
}

// FileStats aggregates chunk counts for a single file's chunks.
// An empty input yields a zero-valued summary.
func FileStats(chunks []Chunk) ChunkStats {
	stats := ChunkStats{ByType: make(map[string]int)}
	for _, c := range chunks {
		stats.TotalChunks++
		if c.EndLine > stats.TotalLines {
			stats.TotalLines = c.EndLine
		}
		stats.TotalChars += len(c.Content)
		stats.ByType[c.Type]++
	}
	return stats
}
