package engine

import (
	"context"
	"errors"
	"testing"
)

type scriptedEngine struct {
	mockEngine
	chatFn   func(model string, messages []Message) (string, error)
	streamFn func(model string, messages []Message, fn func(string) error) error
}

func (s *scriptedEngine) Chat(_ context.Context, model string, messages []Message) (string, error) {
	return s.chatFn(model, messages)
}

func (s *scriptedEngine) ChatStream(_ context.Context, model string, messages []Message, fn func(string) error) error {
	return s.streamFn(model, messages, fn)
}

func TestGenerator_Invoke(t *testing.T) {
	var gotMessages []Message
	e := &scriptedEngine{
		chatFn: func(model string, messages []Message) (string, error) {
			if model != "llama3.2" {
				t.Errorf("model = %q, want %q", model, "llama3.2")
			}
			gotMessages = messages
			return "the reply", nil
		},
	}

	g := NewGenerator(e, "llama3.2")
	reply, err := g.Invoke(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if reply != "the reply" {
		t.Errorf("reply = %q, want %q", reply, "the reply")
	}
	if len(gotMessages) != 1 || gotMessages[0].Role != "user" || gotMessages[0].Content != "the prompt" {
		t.Errorf("messages = %v, want a single user message with the prompt", gotMessages)
	}
}

func TestGenerator_Invoke_WrapsError(t *testing.T) {
	fail := errors.New("model exploded")
	e := &scriptedEngine{
		chatFn: func(string, []Message) (string, error) { return "", fail },
	}

	g := NewGenerator(e, "llama3.2")
	_, err := g.Invoke(context.Background(), "prompt")
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want it to wrap the engine error", err)
	}
}

func TestGenerator_Stream_SystemThenUser(t *testing.T) {
	e := &scriptedEngine{
		streamFn: func(model string, messages []Message, fn func(string) error) error {
			if len(messages) != 2 {
				t.Fatalf("got %d messages, want 2", len(messages))
			}
			if messages[0].Role != "system" || messages[0].Content != "sys" {
				t.Errorf("messages[0] = %v, want system message", messages[0])
			}
			if messages[1].Role != "user" || messages[1].Content != "usr" {
				t.Errorf("messages[1] = %v, want user message", messages[1])
			}
			fn("a")
			fn("b")
			return nil
		},
	}

	g := NewGenerator(e, "llama3.2")
	var got string
	err := g.Stream(context.Background(), "sys", "usr", func(chunk string) error {
		got += chunk
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got != "ab" {
		t.Errorf("accumulated %q, want %q", got, "ab")
	}
}
