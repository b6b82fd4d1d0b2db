package embedding

import (
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"
)

// ErrNoUsableEmbeddings is returned when no document in the requested scope
// has a loadable artifact.
var ErrNoUsableEmbeddings = errors.New("no usable embeddings in scope")

// Hit is one ranked search result mapped back to its source chunk.
type Hit struct {
	Text       string
	Score      float64
	DocumentID uuid.UUID
	ChunkIndex int
	Vector     []float32
}

type indexEntry struct {
	documentID uuid.UUID
	chunkIndex int
	text       string
}

// Index is a brute-force inner-product index over L2-normalized vectors,
// scoped to a fixed document set. Scores are cosine similarities.
type Index struct {
	vectors [][]float32
	entries []indexEntry
	dim     int
}

func newIndex() *Index {
	return &Index{}
}

// add appends one document's vectors. Vectors are normalized in place.
func (ix *Index) add(docID uuid.UUID, vectors [][]float32, chunks []string) {
	for i, vec := range vectors {
		normalized := normalize(vec)
		ix.vectors = append(ix.vectors, normalized)
		ix.entries = append(ix.entries, indexEntry{
			documentID: docID,
			chunkIndex: i,
			text:       chunks[i],
		})
		if len(normalized) > ix.dim {
			ix.dim = len(normalized)
		}
	}
}

func (ix *Index) size() int { return len(ix.entries) }

// search returns the topK nearest entries in non-increasing score order.
// Scores are bounded and never NaN because both sides are unit vectors (or
// zero vectors, which score 0).
func (ix *Index) search(query []float32, topK int) []Hit {
	if topK <= 0 || len(ix.entries) == 0 {
		return nil
	}

	q := normalize(query)
	hits := make([]Hit, 0, len(ix.entries))
	for i, vec := range ix.vectors {
		entry := ix.entries[i]
		hits = append(hits, Hit{
			Text:       entry.text,
			Score:      dot(q, vec),
			DocumentID: entry.documentID,
			ChunkIndex: entry.chunkIndex,
			Vector:     vec,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}

// normalize returns a unit-length copy of v. A zero vector is returned as an
// all-zero copy so downstream dot products stay finite.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
