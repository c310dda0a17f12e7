package intent

import (
	"context"
	"fmt"
	"strings"
)

// affirmativePrefix is the token the classification prompt instructs the
// model to lead with when a question can be answered without context.
const affirmativePrefix = "yes"

// Generator produces a single completion for a prompt.
type Generator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether a question needs corpus context before
// generation, using a one-shot prompt against the generation model.
type Classifier struct {
	generator Generator
	template  string
}

// NewClassifier creates a Classifier around the given prompt template.
// The template carries a {question} placeholder.
func NewClassifier(generator Generator, template string) *Classifier {
	return &Classifier{generator: generator, template: template}
}

// NeedsContext reports whether retrieval is required for the question.
// The reply is read verbatim: lower-cased and checked for the
// affirmative prefix, which means the question is self-contained. Any
// other reply, including an empty one, means context is needed.
func (c *Classifier) NeedsContext(ctx context.Context, question string) (bool, error) {
	prompt := strings.ReplaceAll(c.template, "{question}", question)

	reply, err := c.generator.Invoke(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("classifying intent: %w", err)
	}

	return !strings.HasPrefix(strings.ToLower(reply), affirmativePrefix), nil
}
