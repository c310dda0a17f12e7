package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptSet holds the LLM prompt templates the server renders at runtime.
// Placeholders use single braces: {question} in the intent and user
// templates, {context} in the system template.
type PromptSet struct {
	Intent string `json:"intent"`
	System string `json:"system"`
	User   string `json:"user"`
}

// DefaultPrompts returns the built-in templates, used when no prompts
// file exists yet.
func DefaultPrompts() PromptSet {
	return PromptSet{
		Intent: "Can the following question be answered without any external documents or context? " +
			"Reply with exactly one word, yes or no.\n\nQuestion: {question}",
		System: "You are a helpful assistant. Answer using only the context below. " +
			"If the context does not contain the answer, say you do not know.\n\nContext:\n{context}",
		User: "{question}",
	}
}

// LoadPrompts reads a PromptSet from a JSON file and rejects files with
// missing or blank templates.
func LoadPrompts(path string) (PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("reading prompts file %s: %w", path, err)
	}
	var ps PromptSet
	if err := json.Unmarshal(data, &ps); err != nil {
		return PromptSet{}, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	for key, tmpl := range map[string]string{
		"intent": ps.Intent,
		"system": ps.System,
		"user":   ps.User,
	} {
		if strings.TrimSpace(tmpl) == "" {
			return PromptSet{}, fmt.Errorf("prompt template %q missing or empty in %s", key, path)
		}
	}
	return ps, nil
}

// WritePrompts writes a PromptSet as indented JSON, creating parent
// directories as needed.
func WritePrompts(path string, ps PromptSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating prompts dir: %w", err)
	}
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
