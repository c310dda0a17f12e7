package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ryumin/askd/internal/retrieval"
)

// answerLabel holds the characters trimmed from both ends of a generated
// reply. strings.Trim treats it as a character set, not a substring, so
// any run of these characters at either end is removed.
const answerLabel = "Answer:"

// DocumentStore is the retrieval surface the orchestrator drives.
type DocumentStore interface {
	Load(ctx context.Context) error
	Build(ctx context.Context, docs []retrieval.Document) error
	Setup()
	Set(ctx context.Context, docs []retrieval.Document) error
	Get(ctx context.Context, question string, k int) ([]retrieval.Document, error)
	Available() bool
	Ready() bool
}

// Scorer rates how close two texts are.
type Scorer interface {
	Evaluate(ctx context.Context, a, b string) (float64, error)
}

// IntentClassifier decides whether a question needs corpus context.
type IntentClassifier interface {
	NeedsContext(ctx context.Context, question string) (bool, error)
}

// Generator streams a completion for a system/user message pair.
type Generator interface {
	Stream(ctx context.Context, system, user string, fn func(chunk string) error) error
}

// Prompts carries the generation templates. System takes a {context}
// placeholder, User takes {question}.
type Prompts struct {
	System string
	User   string
}

// Service answers questions from the answer cache or, failing that, from
// the corpus-grounded generation model. It holds no per-request state;
// concurrent requests are safe modulo the stores' own locking.
type Service struct {
	cache     DocumentStore
	corpus    DocumentStore
	scorer    Scorer
	intent    IntentClassifier
	generator Generator
	prompts   Prompts
	threshold float64
}

func NewService(
	cache DocumentStore,
	corpus DocumentStore,
	scorer Scorer,
	intent IntentClassifier,
	generator Generator,
	prompts Prompts,
	threshold float64,
) *Service {
	return &Service{
		cache:     cache,
		corpus:    corpus,
		scorer:    scorer,
		intent:    intent,
		generator: generator,
		prompts:   prompts,
		threshold: threshold,
	}
}

// CachedAnswer looks the question up in the answer cache and returns the
// answers of every candidate whose combined similarity strictly exceeds
// the threshold, in retrieval order. A nil slice means no match; it is
// not an error. A cache that was never populated reports not ready and
// short-circuits to no match.
func (s *Service) CachedAnswer(ctx context.Context, question string, k int) ([]string, error) {
	if !s.cache.Ready() {
		slog.Debug("answer cache not ready, skipping lookup")
		return nil, nil
	}

	candidates, err := s.cache.Get(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("querying answer cache: %w", err)
	}
	if len(candidates) == 0 {
		slog.Debug("no cached candidates", "question", question)
		return nil, nil
	}

	var answers []string
	for _, doc := range candidates {
		score, err := s.scorer.Evaluate(ctx, question, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("scoring cached candidate: %w", err)
		}
		if score > s.threshold {
			answers = append(answers, doc.Metadata["answer"])
		}
	}
	if len(answers) == 0 {
		slog.Debug("all cached candidates below threshold",
			"question", question, "candidates", len(candidates))
		return nil, nil
	}
	return answers, nil
}

// Answer generates a reply for the question:
//  1. One-shot intent classification decides whether corpus context helps.
//  2. If it does, the corpus store is queried with its default k and the
//     passages are joined with blank lines; otherwise context is empty.
//  3. The system and user templates are rendered and streamed through the
//     generation model, accumulating chunks in arrival order.
//  4. The answer label characters are trimmed from both ends.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	needsContext, err := s.intent.NeedsContext(ctx, question)
	if err != nil {
		return "", err
	}

	contextBlock := ""
	if needsContext {
		docs, err := s.corpus.Get(ctx, question, 0)
		if err != nil {
			return "", fmt.Errorf("retrieving context: %w", err)
		}
		contextBlock = joinContext(docs)
	}

	system := render(s.prompts.System, map[string]string{"context": contextBlock})
	user := render(s.prompts.User, map[string]string{"question": question})

	var reply strings.Builder
	err = s.generator.Stream(ctx, system, user, func(chunk string) error {
		reply.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.Trim(reply.String(), answerLabel), nil
}

// SetCache stores question/answer pairs as one batch of cache documents.
func (s *Service) SetCache(ctx context.Context, pairs map[string]string) error {
	docs := make([]retrieval.Document, 0, len(pairs))
	for question, answer := range pairs {
		docs = append(docs, retrieval.Document{
			ID:       uuid.New().String(),
			Content:  question,
			Metadata: map[string]string{"answer": answer},
		})
	}
	if err := s.cache.Set(ctx, docs); err != nil {
		return fmt.Errorf("storing answers: %w", err)
	}
	return nil
}
