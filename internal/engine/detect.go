package engine

import "fmt"

// Engine kinds accepted by Detect.
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Kind    string
	BaseURL string
	APIKey  string
}

// Detect returns the Engine for the configured backend kind. An empty kind
// defaults to Ollama.
func Detect(cfg DetectConfig) (Engine, error) {
	switch cfg.Kind {
	case "", KindOllama:
		return NewOllamaEngine(cfg.BaseURL), nil
	case KindOpenAI:
		return NewRemoteEngine(cfg.BaseURL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q (expected %q or %q)", cfg.Kind, KindOllama, KindOpenAI)
	}
}
