package retrieval

import (
	"container/heap"
	"fmt"
	"math"
)

// entry pairs an indexed document with its embedding and precomputed norm.
type entry struct {
	doc  Document
	vec  []float32
	norm float32
}

// Index is an in-memory nearest-neighbor structure over document embeddings.
// Search is brute-force cosine similarity with a min-heap tracking the top-K.
type Index struct {
	entries []entry
}

// NewIndex builds an Index from parallel document and vector slices.
func NewIndex(docs []Document, vectors [][]float32) (*Index, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("document count %d does not match vector count %d", len(docs), len(vectors))
	}
	idx := &Index{entries: make([]entry, len(docs))}
	for i := range docs {
		idx.entries[i] = entry{doc: docs[i], vec: vectors[i], norm: norm(vectors[i])}
	}
	return idx, nil
}

// Merge appends all of other's entries. Duplicates are kept from both sides;
// the index never de-duplicates.
func (x *Index) Merge(other *Index) {
	x.entries = append(x.entries, other.entries...)
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	return len(x.entries)
}

// Documents returns the indexed documents in insertion order.
func (x *Index) Documents() []Document {
	docs := make([]Document, len(x.entries))
	for i := range x.entries {
		docs[i] = x.entries[i].doc
	}
	return docs
}

// Vectors returns the indexed embeddings in insertion order.
func (x *Index) Vectors() [][]float32 {
	vectors := make([][]float32, len(x.entries))
	for i := range x.entries {
		vectors[i] = x.entries[i].vec
	}
	return vectors
}

// ScoredDocument pairs a search hit with its cosine similarity score.
type ScoredDocument struct {
	Document
	Score float32
}

// indexScore holds an entry position and its score during the scan phase.
type indexScore struct {
	pos   int
	score float32
}

// Search returns the topK documents most similar to vector, best first.
// A zero-norm query matches nothing.
func (x *Index) Search(vector []float32, topK int) []Document {
	scored := x.SearchScored(vector, topK)
	if scored == nil {
		return nil
	}
	docs := make([]Document, len(scored))
	for i := range scored {
		docs[i] = scored[i].Document
	}
	return docs
}

// SearchScored is Search with each hit's cosine score attached.
func (x *Index) SearchScored(vector []float32, topK int) []ScoredDocument {
	if topK <= 0 || len(x.entries) == 0 {
		return nil
	}

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil
	}

	h := &indexScoreHeap{}
	heap.Init(h)

	for i := range x.entries {
		e := &x.entries[i]
		score := cosine(vector, e.vec, queryNorm, e.norm)
		if h.Len() < topK {
			heap.Push(h, indexScore{pos: i, score: score})
		} else if score > (*h)[0].score {
			(*h)[0] = indexScore{pos: i, score: score}
			heap.Fix(h, 0)
		}
	}

	// Popping the min-heap yields ascending scores; fill from the back for
	// best-first order.
	results := make([]ScoredDocument, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		item := heap.Pop(h).(indexScore)
		results[i] = ScoredDocument{Document: x.entries[item.pos].doc, Score: item.score}
	}
	return results
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * bNorm) with both norms precomputed.
// Mismatched dimensions or a zero bNorm score 0.
func cosine(a, b []float32, aNorm, bNorm float32) float32 {
	if len(a) != len(b) || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(aNorm) * float64(bNorm)))
}

// indexScoreHeap is a min-heap of indexScore ordered by score, used during
// the scan phase of Search to track top-K candidates.
type indexScoreHeap []indexScore

func (h indexScoreHeap) Len() int            { return len(h) }
func (h indexScoreHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h indexScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexScoreHeap) Push(x interface{}) { *h = append(*h, x.(indexScore)) }
func (h *indexScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
