package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

const vectorFileMagic = uint32(0x4C505645) // "LPVE"

// VectorStore is an exact brute-force inner-product index over
// L2-normalized float32 vectors keyed by int64 ids. Vectors cannot be
// removed individually; reclaiming space requires a rebuild.
type VectorStore struct {
	dim     int
	ids     []int64
	vectors [][]float32
}

// NewVectorStore creates an empty store for vectors of the given dimension.
func NewVectorStore(dim int) *VectorStore {
	return &VectorStore{dim: dim}
}

// Dimension returns the vector dimension.
func (s *VectorStore) Dimension() int { return s.dim }

// Count returns the number of stored vectors.
func (s *VectorStore) Count() int { return len(s.ids) }

// Add appends vectors under the given ids. Vectors are normalized before
// storage so inner product equals cosine similarity.
func (s *VectorStore) Add(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("vector store: %d ids for %d vectors", len(ids), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != s.dim {
			return fmt.Errorf("vector store: vector %d has dimension %d, want %d", ids[i], len(vec), s.dim)
		}
	}
	for i, vec := range vectors {
		s.ids = append(s.ids, ids[i])
		s.vectors = append(s.vectors, Normalize(vec))
	}
	return nil
}

// Search returns the ids and similarity scores of the k nearest vectors,
// best first. The query is normalized before comparison. A query whose
// dimension does not match the store yields no results.
func (s *VectorStore) Search(query []float32, k int) ([]int64, []float32) {
	if len(s.ids) == 0 || k <= 0 || len(query) != s.dim {
		return nil, nil
	}
	if k > len(s.ids) {
		k = len(s.ids)
	}
	q := Normalize(query)

	type hit struct {
		id    int64
		score float32
	}
	hits := make([]hit, len(s.ids))
	for i, vec := range s.vectors {
		hits[i] = hit{id: s.ids[i], score: dot(q, vec)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	ids := make([]int64, k)
	scores := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = hits[i].id
		scores[i] = hits[i].score
	}
	return ids, scores
}

// MaxID returns the largest stored id, or 0 when empty.
func (s *VectorStore) MaxID() int64 {
	var max int64
	for _, id := range s.ids {
		if id > max {
			max = id
		}
	}
	return max
}

// Save writes the store to path in a little-endian binary layout:
// magic, dim, count, then count records of id followed by dim float32s.
func (s *VectorStore) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := []any{vectorFileMagic, uint32(s.dim), uint64(len(s.ids))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("save vectors: %w", err)
		}
	}
	for i, id := range s.ids {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("save vectors: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, s.vectors[i]); err != nil {
			return fmt.Errorf("save vectors: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	return nil
}

// LoadVectorStore reads a store written by Save.
func LoadVectorStore(path string) (*VectorStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, dim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	if magic != vectorFileMagic {
		return nil, fmt.Errorf("load vectors: bad magic %#x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	s := NewVectorStore(int(dim))
	s.ids = make([]int64, 0, count)
	s.vectors = make([][]float32, 0, count)
	for i := uint64(0); i < count; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("load vectors: record %d: %w", i, err)
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("load vectors: record %d: %w", i, err)
		}
		s.ids = append(s.ids, id)
		s.vectors = append(s.vectors, vec)
	}
	return s, nil
}

// Normalize returns the L2-normalized copy of v. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
