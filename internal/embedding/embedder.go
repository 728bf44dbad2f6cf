// Package embedding turns text into fixed-dimension vectors for the
// semantic index.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// Embedder produces one vector per input text. Implementations signal
// unavailability with an error or a nil/short result; callers treat any of
// these as a failed batch.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIEmbedder builds an embedder for the given API key. Defaults to
// text-embedding-3-small at 1536 dimensions.
func NewOpenAIEmbedder(apiKey, model string, dimension int) *OpenAIEmbedder {
	m := openai.SmallEmbedding3
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	if dimension == 0 {
		dimension = 1536
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		model:     m,
		dimension: dimension,
	}
}

// EmbedBatch embeds all texts in a single API call, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimension returns the configured vector dimension.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// StaticEmbedder produces deterministic hash-derived vectors. It keeps the
// index usable offline and backs the tests; identical texts always map to
// identical vectors, and texts sharing words map to nearby vectors.
type StaticEmbedder struct {
	dimension int
}

// NewStaticEmbedder creates a static embedder of the given dimension.
func NewStaticEmbedder(dimension int) *StaticEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &StaticEmbedder{dimension: dimension}
}

// EmbedBatch hashes each text's tokens into a bag-of-words vector.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *StaticEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		slot := int(h.Sum32()) % e.dimension
		if slot < 0 {
			slot += e.dimension
		}
		vec[slot]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// Dimension returns the configured vector dimension.
func (e *StaticEmbedder) Dimension() int { return e.dimension }

func tokenize(text string) []string {
	var tokens []string
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		isWord := c == '_' || (c >= '0' && c <= '9') ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower(text[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower(text[start:]))
	}
	return tokens
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
