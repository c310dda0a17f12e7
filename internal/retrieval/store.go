package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryumin/askd/internal/storage"
)

// ContentEmbedder produces embedding vectors for indexed passages and queries.
type ContentEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// view is the finalized query surface: the index it was built over plus the
// default result count. Queries go through the view, never the raw index.
type view struct {
	index *Index
	k     int
}

// Store manages one persisted document index behind an embedding boundary.
// The server runs two: the answer cache and the corpus index, distinguished
// by name in logs.
//
// The mutex serializes writes (Load, Build, Set) against queries so a query
// never observes a half-rebuilt view.
type Store struct {
	name     string
	db       *storage.DB
	embedder ContentEmbedder
	defaultK int

	mu    sync.RWMutex
	index *Index
	view  *view
}

// NewStore creates a Store persisting through db. name labels the store in
// logs and errors; defaultK is the result count queries fall back to.
func NewStore(name string, db *storage.DB, embedder ContentEmbedder, defaultK int) *Store {
	return &Store{
		name:     name,
		db:       db,
		embedder: embedder,
		defaultK: defaultK,
	}
}

// Name returns the store's role label.
func (s *Store) Name() string {
	return s.name
}

// Load reads the persisted index. An empty or unreadable persisted state
// leaves the store unavailable with a logged diagnostic; that is not an
// error to the caller. Context cancellation propagates.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.db.ListDocuments()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("persisted index unreadable, starting without it", "store", s.name, "error", err)
		s.index = nil
		return nil
	}
	if len(stored) == 0 {
		slog.Info("no persisted index found", "store", s.name)
		s.index = nil
		return nil
	}

	docs := make([]Document, len(stored))
	vectors := make([][]float32, len(stored))
	for i, sd := range stored {
		doc, err := fromStored(sd)
		if err != nil {
			slog.Error("persisted index corrupt, starting without it", "store", s.name, "error", err)
			s.index = nil
			return nil
		}
		docs[i] = doc
		vectors[i] = sd.Embedding
	}

	idx, err := NewIndex(docs, vectors)
	if err != nil {
		slog.Error("persisted index corrupt, starting without it", "store", s.name, "error", err)
		s.index = nil
		return nil
	}

	s.index = idx
	slog.Info("persisted index loaded", "store", s.name, "documents", idx.Len())
	return nil
}

// Build embeds docs, replaces the in-memory index, and persists it
// immediately. The queryable view is untouched until Setup or Set.
func (s *Store) Build(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.embedAndIndex(ctx, docs)
	if err != nil {
		return fmt.Errorf("building %s index: %w", s.name, err)
	}
	s.index = idx

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting %s index: %w", s.name, err)
	}
	return nil
}

// Setup finalizes the queryable view over the current index with the default
// result count. Calling it before an index is loaded or built is a
// programming error and panics.
func (s *Store) Setup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		panic(fmt.Sprintf("retrieval: setup of store %q before an index is loaded or built", s.name))
	}
	s.view = &view{index: s.index, k: s.defaultK}
}

// Set embeds docs and merges them into the index, keeping duplicates from
// both sides, then persists and rebuilds the queryable view with the
// original default k. On a store with no index yet the docs become the index.
func (s *Store) Set(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.embedAndIndex(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing %s entries: %w", s.name, err)
	}

	if s.index == nil {
		s.index = fresh
	} else {
		s.index.Merge(fresh)
	}

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting %s index: %w", s.name, err)
	}

	// A write always re-finalizes the view so queries see the merged index.
	s.view = &view{index: s.index, k: s.defaultK}
	return nil
}

// Get embeds the question and returns the top-k most similar documents.
// k <= 0 means the view's default. Calling Get before the view is finalized
// by Setup or Set is a programming error and panics.
func (s *Store) Get(ctx context.Context, question string, k int) ([]Document, error) {
	scored, err := s.GetScored(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if scored == nil {
		return nil, nil
	}
	docs := make([]Document, len(scored))
	for i := range scored {
		docs[i] = scored[i].Document
	}
	return docs, nil
}

// GetScored is Get with each document's cosine score attached.
func (s *Store) GetScored(ctx context.Context, question string, k int) ([]ScoredDocument, error) {
	s.mu.RLock()
	ready := s.view != nil
	s.mu.RUnlock()
	if !ready {
		panic(fmt.Sprintf("retrieval: get from store %q before setup", s.name))
	}

	// Embedding is a network call; keep it outside the lock.
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	if k <= 0 {
		k = v.k
	}
	return v.index.SearchScored(vec, k), nil
}

// Save persists the current index, overwriting the previous snapshot.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting %s index: %w", s.name, err)
	}
	return nil
}

// Available reports whether an index is loaded or built.
func (s *Store) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Ready reports whether the queryable view has been finalized.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view != nil
}

// Len returns the number of indexed documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// PutMeta persists a key/value pair alongside the index. The corpus role
// records the tree signature its index was built from here.
func (s *Store) PutMeta(key, value string) error {
	return s.db.SetMeta(key, value)
}

// Meta returns a persisted meta value, or storage.ErrNotFound.
func (s *Store) Meta(key string) (string, error) {
	return s.db.GetMeta(key)
}

// Documents returns the indexed documents in insertion order, or nil when
// the store is unavailable.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index.Documents()
}

// embedAndIndex embeds the documents' contents and builds a fresh index.
func (s *Store) embedAndIndex(ctx context.Context, docs []Document) (*Index, error) {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return NewIndex(docs, vectors)
}

// persistLocked writes the index to the database. Callers hold the mutex.
func (s *Store) persistLocked() error {
	if s.index == nil {
		return fmt.Errorf("no index to persist")
	}

	docs := s.index.Documents()
	vectors := s.index.Vectors()
	stored := make([]storage.StoredDocument, len(docs))
	for i := range docs {
		sd, err := toStored(docs[i], vectors[i])
		if err != nil {
			return err
		}
		stored[i] = sd
	}
	return s.db.ReplaceDocuments(stored)
}

func toStored(doc Document, vec []float32) (storage.StoredDocument, error) {
	metadata := "{}"
	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return storage.StoredDocument{}, fmt.Errorf("encoding metadata for document %s: %w", doc.ID, err)
		}
		metadata = string(b)
	}
	return storage.StoredDocument{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  metadata,
		Embedding: vec,
	}, nil
}

func fromStored(sd storage.StoredDocument) (Document, error) {
	var meta map[string]string
	if err := json.Unmarshal([]byte(sd.Metadata), &meta); err != nil {
		return Document{}, fmt.Errorf("decoding metadata for document %s: %w", sd.ID, err)
	}
	return Document{ID: sd.ID, Content: sd.Content, Metadata: meta}, nil
}
