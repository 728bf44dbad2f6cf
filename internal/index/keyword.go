package index

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// KeywordResult is a BM25 hit from the keyword index.
type KeywordResult struct {
	ChunkID   int64   `json:"chunk_id"`
	Score     float64 `json:"score"`
	FilePath  string  `json:"file_path"`
	Language  string  `json:"language"`
	ChunkType string  `json:"chunk_type"`
}

// KeywordIndex provides BM25 keyword search over chunks, maintained
// alongside the vector store. Unlike the vector store it supports true
// per-document deletion.
type KeywordIndex struct {
	index bleve.Index
	path  string
}

// OpenKeywordIndex creates or opens the bleve index at path. A corrupted
// index is deleted and recreated rather than failing the caller.
func OpenKeywordIndex(path string) (*KeywordIndex, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, keywordIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create keyword index: %w", err)
		}
	} else if err != nil {
		log.Printf("keyword index at %s unreadable (%v), recreating", path, err)
		if idx != nil {
			idx.Close()
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove corrupted keyword index: %w", err)
		}
		idx, err = bleve.New(path, keywordIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("recreate keyword index: %w", err)
		}
	}
	return &KeywordIndex{index: idx, path: path}, nil
}

func keywordIndexMapping() mapping.IndexMapping {
	chunkMapping := bleve.NewDocumentMapping()

	exact := func(field string) {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.Index = true
		chunkMapping.AddFieldMappingsAt(field, fm)
	}
	exact("file_path")
	exact("language")
	exact("chunk_type")

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	contentField.Index = true
	chunkMapping.AddFieldMappingsAt("content", contentField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = false
	nameField.Index = true
	chunkMapping.AddFieldMappingsAt("name", nameField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	return indexMapping
}

// BatchIndex adds chunks under their vector-store ids.
func (k *KeywordIndex) BatchIndex(ids []int64, chunks []Chunk) error {
	if len(ids) != len(chunks) {
		return fmt.Errorf("keyword index: %d ids for %d chunks", len(ids), len(chunks))
	}
	batch := k.index.NewBatch()
	for i, chunk := range chunks {
		doc := map[string]any{
			"file_path":  chunk.FilePath,
			"language":   chunk.Language,
			"chunk_type": chunk.Type,
			"content":    chunk.Content,
		}
		if name, ok := chunk.Metadata["name"].(string); ok {
			doc["name"] = name
		}
		if err := batch.Index(strconv.FormatInt(ids[i], 10), doc); err != nil {
			return fmt.Errorf("keyword index chunk %d: %w", ids[i], err)
		}
	}
	return k.index.Batch(batch)
}

// Delete removes the given chunk ids.
func (k *KeywordIndex) Delete(ids []int64) error {
	batch := k.index.NewBatch()
	for _, id := range ids {
		batch.Delete(strconv.FormatInt(id, 10))
	}
	return k.index.Batch(batch)
}

// Search runs a BM25 match query, optionally restricted to a file path
// substring handled by the caller; filtering here is by exact language.
func (k *KeywordIndex) Search(query string, language string, size int) ([]KeywordResult, error) {
	matchQuery := bleve.NewMatchQuery(query)
	var searchQuery = bleve.NewConjunctionQuery(matchQuery)
	if language != "" {
		langQuery := bleve.NewTermQuery(language)
		langQuery.SetField("language")
		searchQuery = bleve.NewConjunctionQuery(matchQuery, langQuery)
	}

	req := bleve.NewSearchRequest(searchQuery)
	req.Size = size
	req.Fields = []string{"file_path", "language", "chunk_type"}

	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]KeywordResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		result := KeywordResult{ChunkID: id, Score: hit.Score}
		if v, ok := hit.Fields["file_path"].(string); ok {
			result.FilePath = v
		}
		if v, ok := hit.Fields["language"].(string); ok {
			result.Language = v
		}
		if v, ok := hit.Fields["chunk_type"].(string); ok {
			result.ChunkType = v
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the underlying bleve index.
func (k *KeywordIndex) Close() error {
	return k.index.Close()
}

// Path returns the on-disk location of the index.
func (k *KeywordIndex) Path() string {
	return k.path
}
