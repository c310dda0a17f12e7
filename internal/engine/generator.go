package engine

import (
	"context"
	"fmt"
)

// Generator binds an Engine to a fixed generation model and exposes the two
// call shapes the answering pipeline needs: a one-shot prompt and a streamed
// system/user conversation.
type Generator struct {
	engine Engine
	model  string
}

// NewGenerator creates a Generator using the given engine and model name.
func NewGenerator(e Engine, model string) *Generator {
	return &Generator{engine: e, model: model}
}

// Invoke sends a single user prompt and returns the full reply.
func (g *Generator) Invoke(ctx context.Context, prompt string) (string, error) {
	reply, err := g.engine.Chat(ctx, g.model, []Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}
	return reply, nil
}

// Stream sends a system message followed by a user message and invokes fn
// with each reply chunk in arrival order.
func (g *Generator) Stream(ctx context.Context, system, user string, fn func(chunk string) error) error {
	messages := []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	if err := g.engine.ChatStream(ctx, g.model, messages, fn); err != nil {
		return fmt.Errorf("streaming reply: %w", err)
	}
	return nil
}
