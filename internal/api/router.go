package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ryumin/askd/internal/retrieval"
)

const maxRequestBodySize = 1 << 20 // 1MB

// QAService is the question-answering surface the HTTP boundary exposes.
type QAService interface {
	CachedAnswer(ctx context.Context, question string, k int) ([]string, error)
	Answer(ctx context.Context, question string) (string, error)
	SetCache(ctx context.Context, pairs map[string]string) error
}

// StoreInfo is the read-only store view the admin endpoints report on.
type StoreInfo interface {
	Len() int
	Ready() bool
	Documents() []retrieval.Document
}

// EngineProbe reports inference backend reachability.
type EngineProbe interface {
	IsRunning(ctx context.Context) bool
}

// Rebuilder forces a corpus re-read and re-index.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Deps holds everything the HTTP routes need.
type Deps struct {
	QA        QAService
	Cache     StoreInfo
	Corpus    StoreInfo
	Engine    EngineProbe
	Refresher Rebuilder
	Token     string
	Version   string
}

var errMissingQuestion = errors.New("missing question parameter")

// NewRouter builds the full HTTP surface: the public QA endpoints with the
// always-200 degradation contract, plus the bearer-authed admin routes with
// conventional status codes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/ask", handleAsk(deps))
	r.Get("/ask-llm", handleAskLLM(deps))
	r.Post("/set-cache", handleSetCache(deps))

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(BearerAuth(deps.Token))
		ar.Get("/status", handleStatus(deps))
		ar.Post("/reindex", handleReindex(deps))
		ar.Get("/cache", handleCacheList(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleAsk tries the answer cache first and falls back to generation only
// when the cache path produced neither answers nor an error.
func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question := r.URL.Query().Get("question")
		if question == "" {
			respondDegraded(w, r, "ask", errMissingQuestion)
			return
		}

		answers, err := deps.QA.CachedAnswer(r.Context(), question, 1)
		if err != nil {
			respondDegraded(w, r, "ask", err)
			return
		}
		if len(answers) > 0 {
			respondEnvelope(w, answers)
			return
		}

		answer, err := deps.QA.Answer(r.Context(), question)
		if err != nil {
			respondDegraded(w, r, "ask", err)
			return
		}
		respondEnvelope(w, answer)
	}
}

// handleAskLLM skips the cache and goes straight to generation.
func handleAskLLM(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question := r.URL.Query().Get("question")
		if question == "" {
			respondDegraded(w, r, "ask-llm", errMissingQuestion)
			return
		}

		answer, err := deps.QA.Answer(r.Context(), question)
		if err != nil {
			respondDegraded(w, r, "ask-llm", err)
			return
		}
		respondEnvelope(w, answer)
	}
}

func handleSetCache(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var pairs map[string]string
		if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
			respondDegraded(w, r, "set-cache", fmt.Errorf("decoding request body: %w", err))
			return
		}

		if err := deps.QA.SetCache(r.Context(), pairs); err != nil {
			respondDegraded(w, r, "set-cache", err)
			return
		}
		respondEnvelope(w, true)
	}
}

// respondEnvelope writes the {"response": ...} contract shared by all
// public endpoints.
func respondEnvelope(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"response": v})
}

// respondDegraded is the always-200 policy: the error becomes one
// diagnostic log line and the client sees {"response": false}. Public
// endpoints never surface a 5xx.
func respondDegraded(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("request degraded", "op", op, "path", r.URL.Path, "error", err)
	respondEnvelope(w, false)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
