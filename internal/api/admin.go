package api

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is the /admin/status payload.
type StatusResponse struct {
	Version string      `json:"version"`
	Engine  EngineState `json:"engine"`
	Cache   StoreState  `json:"cache"`
	Corpus  StoreState  `json:"corpus"`
}

type EngineState struct {
	Running bool `json:"running"`
}

type StoreState struct {
	Documents int  `json:"documents"`
	Ready     bool `json:"ready"`
}

// CacheEntry is one stored question/answer pair in the /admin/cache listing.
type CacheEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Version: deps.Version,
			Engine:  EngineState{Running: deps.Engine.IsRunning(r.Context())},
			Cache:   StoreState{Documents: deps.Cache.Len(), Ready: deps.Cache.Ready()},
			Corpus:  StoreState{Documents: deps.Corpus.Len(), Ready: deps.Corpus.Ready()},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleReindex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Refresher == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "reindex not available")
			return
		}
		if err := deps.Refresher.Rebuild(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reindex failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "reindexed"})
	}
}

func handleCacheList(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs := deps.Cache.Documents()

		entries := make([]CacheEntry, len(docs))
		for i, doc := range docs {
			entries[i] = CacheEntry{
				ID:       doc.ID,
				Question: doc.Content,
				Answer:   doc.Metadata["answer"],
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}
