package similarity

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	lexicalWeight  = 0.5
	semanticWeight = 0.5
)

// tokenPattern matches word-like runs of letters, digits and underscores.
// Single-character fragments carry no signal and are skipped.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Scorer blends lexical and semantic similarity into a single score.
// The lexical half is a term-frequency cosine over both texts' tokens,
// which anchors the score to shared wording; the semantic half is the
// cosine of the texts' embeddings, which catches paraphrases the token
// overlap misses.
type Scorer struct {
	embedder Embedder
}

func NewScorer(embedder Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// Evaluate returns the combined similarity of two texts.
// Both halves land in [0, 1] for non-negative embeddings, so the
// combination does too.
func (s *Scorer) Evaluate(ctx context.Context, a, b string) (float64, error) {
	lex := lexical(a, b)

	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("embedding first text: %w", err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("embedding second text: %w", err)
	}
	sem, err := cosine(va, vb)
	if err != nil {
		return 0, err
	}

	return lexicalWeight*lex + semanticWeight*sem, nil
}

// lexical computes term-frequency cosine similarity. Texts that produce
// no tokens score 0.
func lexical(a, b string) float64 {
	fa := termFrequencies(a)
	fb := termFrequencies(b)
	if len(fa) == 0 || len(fb) == 0 {
		return 0
	}

	var dot, na, nb float64
	for _, n := range fa {
		na += float64(n) * float64(n)
	}
	for _, n := range fb {
		nb += float64(n) * float64(n)
	}
	for tok, n := range fa {
		if m, ok := fb[tok]; ok {
			dot += float64(n) * float64(m)
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func termFrequencies(text string) map[string]int {
	freq := map[string]int{}
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		freq[tok]++
	}
	return freq
}

// cosine computes cosine similarity between two embedding vectors.
// Mismatched dimensions are an error; a zero-norm vector scores 0.
func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
