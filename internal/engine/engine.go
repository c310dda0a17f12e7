package engine

import (
	"context"
	"errors"
)

// ErrPullUnsupported is returned by backends that cannot download models on
// demand. Callers should report the missing model instead of retrying.
var ErrPullUnsupported = errors.New("backend does not support pulling models")

// Engine abstracts an inference backend (Ollama or any OpenAI-compatible
// server). Consumers such as answer generation and embedding use this
// interface instead of depending on a concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's full response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatStream sends messages with streaming enabled, invoking fn for each
	// content chunk in arrival order. An error from fn stops the stream and is
	// returned unchanged.
	ChatStream(ctx context.Context, model string, messages []Message, fn func(chunk string) error) error

	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all models the backend serves.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress
	// updates. Backends without pull support return ErrPullUnsupported.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
