package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAskEnvelope_SingleAnswer(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /ask": `{"response":"Use the settings menu"}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/ask?question=how+to+reset+password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	answer, ok := env.Response.(string)
	if !ok {
		t.Fatalf("response type = %T, want string", env.Response)
	}
	if answer != "Use the settings menu" {
		t.Errorf("answer = %q, want %q", answer, "Use the settings menu")
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if got := ts.requests[0].Path; got != "/ask?question=how+to+reset+password" {
		t.Errorf("path = %q", got)
	}
}

func TestAskEnvelope_CachedList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /ask": `{"response":["first answer","second answer"]}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/ask?question=q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	answers, ok := env.Response.([]any)
	if !ok {
		t.Fatalf("response type = %T, want list", env.Response)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0] != "first answer" {
		t.Errorf("answers[0] = %v", answers[0])
	}
}

func TestAskEnvelope_Degraded(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /ask-llm": `{"response":false}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/ask-llm?question=q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if ok, isBool := env.Response.(bool); !isBool || ok {
		t.Errorf("response = %v (%T), want false", env.Response, env.Response)
	}
}

func TestCacheSetRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /set-cache": `{"response":true}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/set-cache", map[string]string{
		"how do I reset my password?": "Use the settings menu",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ok, _ := env.Response.(bool); !ok {
		t.Errorf("response = %v, want true", env.Response)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	r := ts.requests[0]
	if r.Method != "POST" {
		t.Errorf("method = %q, want POST", r.Method)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["how do I reset my password?"] != "Use the settings menu" {
		t.Errorf("body = %v", body)
	}
}

func TestCacheListDecode(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/cache": `[{"id":"a1","question":"what is askd?","answer":"a QA server"}]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/admin/cache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []struct {
		ID       string `json:"id"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := decodeJSON(resp, &entries); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Question != "what is askd?" {
		t.Errorf("question = %q", entries[0].Question)
	}
}

func TestReindexErrorSurface(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client()
	resp, err := client.post(ctx, "/admin/reindex", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention 404", err.Error())
	}
}

func TestAskCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ask"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing question")
	}
}
