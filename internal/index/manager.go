package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/loupedev/loupe/internal/embedding"
)

const (
	vectorsFile    = "vectors.bin"
	metadataFile   = "metadata.json"
	fileHashesFile = "file_hashes.json"
	keywordDir     = "keyword.bleve"
)

// ChunkEntry is the stored metadata for one indexed chunk.
type ChunkEntry struct {
	FilePath  string         `json:"file_path"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	ChunkType string         `json:"chunk_type"`
	Language  string         `json:"language"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// BuildStats reports the outcome of a Build pass. ChunksCreated counts
// chunker output; ChunksIndexed counts chunks that made it through
// embedding into the store, so the two diverge when embedding fails.
type BuildStats struct {
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	ChunksCreated  int           `json:"chunks_created"`
	ChunksIndexed  int           `json:"chunks_indexed"`
	Errors         []string      `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// UpdateResult reports the outcome of a single-file update.
type UpdateResult struct {
	Action string `json:"action"` // "updated", "removed", or "error"
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

// IndexStats is a snapshot of index contents. TotalVectors can exceed
// TotalChunks because removing a file drops its metadata but leaves its
// vectors behind; a forced rebuild reclaims the space.
type IndexStats struct {
	TotalVectors int            `json:"total_vectors"`
	TotalChunks  int            `json:"total_chunks"`
	TotalFiles   int            `json:"total_files"`
	Languages    map[string]int `json:"languages"`
	ChunkTypes   map[string]int `json:"chunk_types"`
	Dimension    int            `json:"dimension"`
	IndexDir     string         `json:"index_dir"`
}

// Search defaults. MinScore is applied exactly as given so that zero can
// request an unfiltered search; callers wanting the standard floor pass
// DefaultMinScore.
const (
	DefaultTopK     = 20
	DefaultMinScore = float32(0.1)
)

// SearchOptions narrows a semantic search.
type SearchOptions struct {
	TopK      int     // 0 means DefaultTopK
	MinScore  float32 // drop hits scoring below this
	File      string  // substring match on file path
	Language  string  // exact match
	ChunkType string  // exact match
}

// Manager owns the vector store, chunk metadata, file hashes, and the
// keyword index for one workspace. It is the sole mutator; all methods are
// safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	workspace string
	indexDir  string
	embedder  embedding.Embedder

	store      *VectorStore
	metadata   map[int64]ChunkEntry
	fileHashes map[string]string
	nextID     int64
	keyword    *KeywordIndex
}

// Open loads or initializes the index for workspace under indexDir. A
// damaged artifact resets the index to empty rather than failing.
func Open(workspace, indexDir string, embedder embedding.Embedder) (*Manager, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	m := &Manager{
		workspace:  workspace,
		indexDir:   indexDir,
		embedder:   embedder,
		store:      NewVectorStore(embedder.Dimension()),
		metadata:   make(map[int64]ChunkEntry),
		fileHashes: make(map[string]string),
		nextID:     1,
	}
	m.load()

	kw, err := OpenKeywordIndex(filepath.Join(indexDir, keywordDir))
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	m.keyword = kw

	return m, nil
}

// load reads the persisted artifacts. Any failure logs and leaves the
// index empty.
func (m *Manager) load() {
	vectorsPath := filepath.Join(m.indexDir, vectorsFile)
	if _, err := os.Stat(vectorsPath); err != nil {
		return
	}

	store, err := LoadVectorStore(vectorsPath)
	if err != nil {
		log.Printf("index: failed to load vectors, starting fresh: %v", err)
		return
	}
	if store.Dimension() != m.store.Dimension() {
		log.Printf("index: stored vectors have dimension %d but the embedder produces %d, starting fresh",
			store.Dimension(), m.store.Dimension())
		return
	}

	metadata, err := loadMetadata(filepath.Join(m.indexDir, metadataFile))
	if err != nil {
		log.Printf("index: failed to load metadata, starting fresh: %v", err)
		return
	}

	hashes, err := loadFileHashes(filepath.Join(m.indexDir, fileHashesFile))
	if err != nil {
		log.Printf("index: failed to load file hashes, starting fresh: %v", err)
		return
	}

	m.store = store
	m.metadata = metadata
	m.fileHashes = hashes
	m.nextID = store.MaxID() + 1
	log.Printf("index: loaded %d vectors, %d chunks, %d files", store.Count(), len(metadata), len(hashes))
}

func loadMetadata(path string) (map[int64]ChunkEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]ChunkEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	metadata := make(map[int64]ChunkEntry, len(raw))
	for key, entry := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", key, err)
		}
		metadata[id] = entry
	}
	return metadata, nil
}

func loadFileHashes(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string)
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Persist writes all three artifacts to the index directory.
func (m *Manager) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

func (m *Manager) persistLocked() error {
	if err := m.store.Save(filepath.Join(m.indexDir, vectorsFile)); err != nil {
		return err
	}

	raw := make(map[string]ChunkEntry, len(m.metadata))
	for id, entry := range m.metadata {
		raw[strconv.FormatInt(id, 10)] = entry
	}
	if err := writeJSON(filepath.Join(m.indexDir, metadataFile), raw); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := writeJSON(filepath.Join(m.indexDir, fileHashesFile), m.fileHashes); err != nil {
		return fmt.Errorf("save file hashes: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Close releases the keyword index.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyword == nil {
		return nil
	}
	err := m.keyword.Close()
	m.keyword = nil
	return err
}

// Build walks the workspace and indexes every eligible file. Per-file
// failures are collected in the stats; only persistence failure is fatal.
func (m *Manager) Build(ctx context.Context, force bool) (BuildStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	stats := BuildStats{Errors: []string{}}

	matcher := m.gitignoreMatcher()

	err := filepath.WalkDir(m.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(m.workspace, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if skipDirs[name] || (strings.HasPrefix(name, ".") && name != ".") {
				return fs.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if !ShouldIndexFile(path) {
			return nil
		}

		created, indexed, skipped, fileErr := m.processFile(ctx, rel, force)
		switch {
		case fileErr != nil:
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", rel, fileErr))
		case skipped:
			stats.FilesSkipped++
		default:
			stats.FilesProcessed++
		}
		stats.ChunksCreated += created
		stats.ChunksIndexed += indexed
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk workspace: %w", err)
	}

	if err := m.persistLocked(); err != nil {
		return stats, fmt.Errorf("persist index: %w", err)
	}

	stats.Duration = time.Since(start)
	log.Printf("index: build done, %d processed, %d skipped, %d chunks, %d errors in %s",
		stats.FilesProcessed, stats.FilesSkipped, stats.ChunksCreated, len(stats.Errors), stats.Duration.Round(time.Millisecond))
	return stats, nil
}

func (m *Manager) gitignoreMatcher() *ignore.GitIgnore {
	path := filepath.Join(m.workspace, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		log.Printf("index: unreadable .gitignore, ignoring: %v", err)
		return nil
	}
	return matcher
}

// processFile indexes one file, returning how many chunks the chunker
// produced and how many reached the store. skipped is true when the hash
// is unchanged or the embedder is unavailable; in the latter case the
// hash is left stale so the file is retried on the next build.
func (m *Manager) processFile(ctx context.Context, rel string, force bool) (created, indexed int, skipped bool, err error) {
	abs := filepath.Join(m.workspace, rel)

	content, err := os.ReadFile(abs)
	if err != nil {
		return 0, 0, false, fmt.Errorf("read: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, 0, false, fmt.Errorf("stat: %w", err)
	}
	hash := hashFile(content, info.ModTime())

	if !force && m.fileHashes[rel] == hash {
		return 0, 0, true, nil
	}

	m.removeFileEntries(rel)

	chunks := ChunkFile(rel, content)
	if len(chunks) == 0 {
		m.fileHashes[rel] = hash
		return 0, 0, true, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) < len(chunks) {
		if err != nil {
			log.Printf("index: embedding unavailable for %s, skipping: %v", rel, err)
		}
		return len(chunks), 0, true, nil
	}

	ids := make([]int64, len(chunks))
	for i := range chunks {
		ids[i] = m.nextID
		m.nextID++
	}
	if err := m.store.Add(ids, vectors[:len(chunks)]); err != nil {
		return len(chunks), 0, false, fmt.Errorf("store: %w", err)
	}
	for i, c := range chunks {
		m.metadata[ids[i]] = ChunkEntry{
			FilePath:  rel,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			ChunkType: c.Type,
			Language:  c.Language,
			Content:   c.Content,
			Metadata:  c.Metadata,
		}
	}
	if err := m.keyword.BatchIndex(ids, chunks); err != nil {
		log.Printf("index: keyword indexing failed for %s: %v", rel, err)
	}
	m.fileHashes[rel] = hash

	return len(chunks), len(chunks), false, nil
}

// removeFileEntries drops metadata, hash, and keyword docs for a path.
// The file's vectors stay in the store until the next forced rebuild.
func (m *Manager) removeFileEntries(rel string) {
	var stale []int64
	for id, entry := range m.metadata {
		if entry.FilePath == rel {
			stale = append(stale, id)
			delete(m.metadata, id)
		}
	}
	delete(m.fileHashes, rel)
	if len(stale) > 0 && m.keyword != nil {
		if err := m.keyword.Delete(stale); err != nil {
			log.Printf("index: keyword delete failed for %s: %v", rel, err)
		}
	}
}

// UpdateFile re-indexes a single file, or removes its entries when the
// file no longer exists. Persists immediately.
func (m *Manager) UpdateFile(ctx context.Context, rel string) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	abs := filepath.Join(m.workspace, rel)
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		m.removeFileEntries(rel)
		if err := m.persistLocked(); err != nil {
			return UpdateResult{Action: "error", Error: err.Error()}, err
		}
		return UpdateResult{Action: "removed"}, nil
	}

	_, indexed, _, err := m.processFile(ctx, rel, true)
	if err != nil {
		return UpdateResult{Action: "error", Error: err.Error()}, nil
	}
	if err := m.persistLocked(); err != nil {
		return UpdateResult{Action: "error", Error: err.Error()}, err
	}
	return UpdateResult{Action: "updated", Chunks: indexed}, nil
}

// Search embeds the query and returns ranked results. Failures to embed
// and empty indexes yield an empty result set, not an error.
func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	if m.store.Count() == 0 {
		return nil
	}

	vectors, err := m.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		if err != nil {
			log.Printf("index: query embedding failed: %v", err)
		}
		return nil
	}

	k := 2 * opts.TopK
	if k > m.store.Count() {
		k = m.store.Count()
	}
	ids, scores := m.store.Search(vectors[0], k)

	var candidates []SearchResult
	for i, id := range ids {
		if scores[i] < opts.MinScore {
			continue
		}
		entry, ok := m.metadata[id]
		if !ok {
			continue
		}
		if opts.File != "" && !strings.Contains(entry.FilePath, opts.File) {
			continue
		}
		if opts.Language != "" && entry.Language != opts.Language {
			continue
		}
		if opts.ChunkType != "" && entry.ChunkType != opts.ChunkType {
			continue
		}
		candidates = append(candidates, SearchResult{
			Content:   entry.Content,
			FilePath:  entry.FilePath,
			StartLine: entry.StartLine,
			EndLine:   entry.EndLine,
			Score:     scores[i],
			ChunkType: entry.ChunkType,
			Language:  entry.Language,
			Metadata:  entry.Metadata,
		})
	}

	return RankResults(candidates, query, opts.TopK)
}

// SearchKeyword runs a BM25 query against the keyword index and hydrates
// hits from chunk metadata.
func (m *Manager) SearchKeyword(query, language string, size int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if size <= 0 {
		size = 20
	}
	hits, err := m.keyword.Search(query, language, size)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		entry, ok := m.metadata[hit.ChunkID]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Content:   entry.Content,
			FilePath:  entry.FilePath,
			StartLine: entry.StartLine,
			EndLine:   entry.EndLine,
			Score:     float32(hit.Score),
			ChunkType: entry.ChunkType,
			Language:  entry.Language,
			Metadata:  entry.Metadata,
		})
	}
	return results, nil
}

// Stats returns a snapshot of the index.
func (m *Manager) Stats() IndexStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := IndexStats{
		TotalVectors: m.store.Count(),
		TotalChunks:  len(m.metadata),
		TotalFiles:   len(m.fileHashes),
		Languages:    make(map[string]int),
		ChunkTypes:   make(map[string]int),
		Dimension:    m.store.Dimension(),
		IndexDir:     m.indexDir,
	}
	for _, entry := range m.metadata {
		stats.Languages[entry.Language]++
		stats.ChunkTypes[entry.ChunkType]++
	}
	return stats
}

// Clear resets the index and removes all on-disk artifacts.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = NewVectorStore(m.embedder.Dimension())
	m.metadata = make(map[int64]ChunkEntry)
	m.fileHashes = make(map[string]string)
	m.nextID = 1

	for _, name := range []string{vectorsFile, metadataFile, fileHashesFile} {
		if err := os.Remove(filepath.Join(m.indexDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear index: %w", err)
		}
	}

	if m.keyword != nil {
		if err := m.keyword.Close(); err != nil {
			log.Printf("index: closing keyword index: %v", err)
		}
	}
	if err := os.RemoveAll(filepath.Join(m.indexDir, keywordDir)); err != nil {
		return fmt.Errorf("clear keyword index: %w", err)
	}
	kw, err := OpenKeywordIndex(filepath.Join(m.indexDir, keywordDir))
	if err != nil {
		return fmt.Errorf("reopen keyword index: %w", err)
	}
	m.keyword = kw
	return nil
}

// Workspace returns the absolute workspace root.
func (m *Manager) Workspace() string { return m.workspace }

func hashFile(content []byte, modTime time.Time) string {
	h := sha256.New()
	h.Write(content)
	fmt.Fprintf(h, "|%d", modTime.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}
