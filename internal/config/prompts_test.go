package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePromptsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPrompts_Valid(t *testing.T) {
	path := writePromptsFile(t, `{
  "intent": "Answerable without context? {question}",
  "system": "Context:\n{context}",
  "user": "{question}"
}`)

	ps, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts() error = %v", err)
	}
	if !strings.Contains(ps.Intent, "{question}") {
		t.Errorf("Intent = %q, want it to carry the question placeholder", ps.Intent)
	}
	if !strings.Contains(ps.System, "{context}") {
		t.Errorf("System = %q, want it to carry the context placeholder", ps.System)
	}
	if ps.User != "{question}" {
		t.Errorf("User = %q, want %q", ps.User, "{question}")
	}
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("LoadPrompts() error = nil, want read error")
	}
}

func TestLoadPrompts_BadJSON(t *testing.T) {
	path := writePromptsFile(t, `{not json`)
	_, err := LoadPrompts(path)
	if err == nil {
		t.Fatal("LoadPrompts() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error = %q, want it to name the file", err)
	}
}

func TestLoadPrompts_EmptyTemplate(t *testing.T) {
	path := writePromptsFile(t, `{
  "intent": "  ",
  "system": "Context:\n{context}",
  "user": "{question}"
}`)

	_, err := LoadPrompts(path)
	if err == nil {
		t.Fatal("LoadPrompts() error = nil, want empty template error")
	}
	if !strings.Contains(err.Error(), `"intent"`) {
		t.Errorf("error = %q, want it to name the empty key", err)
	}
}

func TestLoadPrompts_MissingKey(t *testing.T) {
	path := writePromptsFile(t, `{
  "intent": "Answerable? {question}",
  "system": "Context:\n{context}"
}`)

	_, err := LoadPrompts(path)
	if err == nil {
		t.Fatal("LoadPrompts() error = nil, want missing template error")
	}
	if !strings.Contains(err.Error(), `"user"`) {
		t.Errorf("error = %q, want it to name the missing key", err)
	}
}

func TestWritePrompts_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "prompts.json")

	want := DefaultPrompts()
	if err := WritePrompts(path, want); err != nil {
		t.Fatalf("WritePrompts() error = %v", err)
	}

	got, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestDefaultPrompts_Placeholders(t *testing.T) {
	ps := DefaultPrompts()
	if !strings.Contains(ps.Intent, "{question}") {
		t.Error("default intent template lacks {question}")
	}
	if !strings.Contains(ps.System, "{context}") {
		t.Error("default system template lacks {context}")
	}
	if !strings.Contains(ps.User, "{question}") {
		t.Error("default user template lacks {question}")
	}
}
