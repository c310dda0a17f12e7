package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/ryumin/askd/internal/storage"
)

// mockContentEmbedder implements ContentEmbedder via an injectable function.
type mockContentEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockContentEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFn(ctx, text)
}

func (m *mockContentEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.embedFn(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// vectorEmbedder maps known texts to fixed vectors; unknown texts share a
// fallback direction.
func vectorEmbedder(vectors map[string][]float32) *mockContentEmbedder {
	return &mockContentEmbedder{
		embedFn: func(_ context.Context, text string) ([]float32, error) {
			if v, ok := vectors[text]; ok {
				return v, nil
			}
			return []float32{0.5, 0.5, 0.5}, nil
		},
	}
}

func openTestStore(t *testing.T, emb ContentEmbedder, k int) *Store {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore("cache", db, emb, k)
}

func TestStore_BuildSetupGet(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0, 0, 1},
		"query": {0.9, 0.1, 0},
	})
	s := openTestStore(t, emb, 2)

	docs := []Document{
		{ID: "a", Content: "alpha"},
		{ID: "b", Content: "beta"},
		{ID: "c", Content: "gamma"},
	}
	if err := s.Build(context.Background(), docs); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !s.Available() {
		t.Fatal("Available() = false after Build, want true")
	}
	if s.Ready() {
		t.Fatal("Ready() = true before Setup, want false")
	}

	s.Setup()
	if !s.Ready() {
		t.Fatal("Ready() = false after Setup, want true")
	}

	got, err := s.Get(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want default k = 2", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("got[0].ID = %q, want %q (closest to query)", got[0].ID, "a")
	}
}

func TestStore_GetBeforeSetupPanics(t *testing.T) {
	s := openTestStore(t, vectorEmbedder(nil), 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Get before Setup")
		}
	}()
	_, _ = s.Get(context.Background(), "question", 0)
}

func TestStore_GetKOverrideDoesNotStick(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0, 0, 1},
	})
	s := openTestStore(t, emb, 2)

	if err := s.Build(context.Background(), []Document{
		{ID: "a", Content: "alpha"},
		{ID: "b", Content: "beta"},
		{ID: "c", Content: "gamma"},
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Setup()

	one, err := s.Get(context.Background(), "alpha", 1)
	if err != nil {
		t.Fatalf("Get with override: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("got %d documents with k=1, want 1", len(one))
	}

	// The override is per-call; the next default query uses k=2 again.
	two, err := s.Get(context.Background(), "alpha", 0)
	if err != nil {
		t.Fatalf("Get with default: %v", err)
	}
	if len(two) != 2 {
		t.Errorf("got %d documents with default k, want 2", len(two))
	}
}

func TestStore_SetOnEmptyStore(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"how do I reset my password": {1, 0, 0},
	})
	s := openTestStore(t, emb, 4)

	if s.Available() || s.Ready() {
		t.Fatal("fresh store should be neither available nor ready")
	}

	err := s.Set(context.Background(), []Document{
		{ID: "q1", Content: "how do I reset my password", Metadata: map[string]string{"answer": "Use the settings menu"}},
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Set finalizes the view itself; no explicit Setup needed.
	if !s.Ready() {
		t.Fatal("Ready() = false after Set, want true")
	}

	got, err := s.Get(context.Background(), "how do I reset my password", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d documents, want 1", len(got))
	}
	if got[0].Metadata["answer"] != "Use the settings menu" {
		t.Errorf("answer = %q, want %q", got[0].Metadata["answer"], "Use the settings menu")
	}
}

func TestStore_SetKeepsDuplicates(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"what is the wifi password": {1, 0, 0},
	})
	s := openTestStore(t, emb, 4)

	first := []Document{
		{ID: "v1", Content: "what is the wifi password", Metadata: map[string]string{"answer": "hunter2"}},
	}
	second := []Document{
		{ID: "v2", Content: "what is the wifi password", Metadata: map[string]string{"answer": "correct horse battery staple"}},
	}
	if err := s.Set(context.Background(), first); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := s.Set(context.Background(), second); err != nil {
		t.Fatalf("second Set: %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (duplicates kept)", s.Len())
	}

	got, err := s.Get(context.Background(), "what is the wifi password", 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want both duplicate entries", len(got))
	}
	answers := map[string]bool{}
	for _, d := range got {
		answers[d.Metadata["answer"]] = true
	}
	if !answers["hunter2"] || !answers["correct horse battery staple"] {
		t.Errorf("answers = %v, want both stored answers retrievable", answers)
	}
}

func TestStore_SetRebuildsViewWithDefaultK(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0, 0, 1},
	})
	s := openTestStore(t, emb, 2)

	if err := s.Build(context.Background(), []Document{{ID: "a", Content: "alpha"}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Setup()

	if err := s.Set(context.Background(), []Document{
		{ID: "b", Content: "beta"},
		{ID: "c", Content: "gamma"},
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// View was rebuilt over the merged index, keeping the original k=2.
	got, err := s.Get(context.Background(), "beta", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want 2", len(got))
	}
	if got[0].ID != "b" {
		t.Errorf("got[0].ID = %q, want the newly set %q", got[0].ID, "b")
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openTestStore(t, vectorEmbedder(nil), 2)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Available() {
		t.Error("Available() = true after loading an empty database, want false")
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Valid row shape, unparseable metadata JSON.
	if err := db.ReplaceDocuments([]storage.StoredDocument{
		{ID: "bad", Content: "text", Metadata: "not-json", Embedding: []float32{1}},
	}); err != nil {
		t.Fatalf("ReplaceDocuments: %v", err)
	}

	s := NewStore("cache", db, vectorEmbedder(nil), 2)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v (corrupt data must not surface as an error)", err)
	}
	if s.Available() {
		t.Error("Available() = true after loading corrupt data, want false")
	}
}

func TestStore_BuildLoadRoundTrip(t *testing.T) {
	emb := vectorEmbedder(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
	})
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	writer := NewStore("corpus", db, emb, 2)
	docs := []Document{
		{ID: "a", Content: "alpha", Metadata: map[string]string{"link": "https://example.com/a"}},
		{ID: "b", Content: "beta"},
	}
	if err := writer.Build(context.Background(), docs); err != nil {
		t.Fatalf("Build: %v", err)
	}
	writer.Setup()

	reader := NewStore("corpus", db, emb, 2)
	if err := reader.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reader.Available() {
		t.Fatal("Available() = false after Load, want true")
	}
	reader.Setup()

	wantDocs, err := writer.Get(context.Background(), "alpha", 0)
	if err != nil {
		t.Fatalf("Get from writer: %v", err)
	}
	gotDocs, err := reader.Get(context.Background(), "alpha", 0)
	if err != nil {
		t.Fatalf("Get from reader: %v", err)
	}

	if len(gotDocs) != len(wantDocs) {
		t.Fatalf("reader returned %d documents, writer %d", len(gotDocs), len(wantDocs))
	}
	for i := range wantDocs {
		if gotDocs[i].ID != wantDocs[i].ID {
			t.Errorf("result[%d].ID = %q, want %q", i, gotDocs[i].ID, wantDocs[i].ID)
		}
	}
	if gotDocs[0].Metadata["link"] != "https://example.com/a" {
		t.Errorf("metadata lost in round trip: %v", gotDocs[0].Metadata)
	}
}

func TestStore_SaveWithoutIndex(t *testing.T) {
	s := openTestStore(t, vectorEmbedder(nil), 2)
	if err := s.Save(); err == nil {
		t.Fatal("expected error when saving with no index")
	}
}

func TestStore_MetaRoundTrip(t *testing.T) {
	s := openTestStore(t, vectorEmbedder(nil), 2)

	if _, err := s.Meta("corpus_signature"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Meta on empty store = %v, want storage.ErrNotFound", err)
	}

	if err := s.PutMeta("corpus_signature", "deadbeef"); err != nil {
		t.Fatalf("PutMeta: %v", err)
	}
	got, err := s.Meta("corpus_signature")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if got != "deadbeef" {
		t.Errorf("Meta = %q, want %q", got, "deadbeef")
	}
}

func TestStore_GetEmbedError(t *testing.T) {
	fail := errors.New("embedding backend down")
	calls := 0
	emb := &mockContentEmbedder{
		embedFn: func(_ context.Context, text string) ([]float32, error) {
			calls++
			if calls > 1 {
				// First call embeds the build; later calls fail.
				return nil, fail
			}
			return []float32{1, 0}, nil
		},
	}
	s := openTestStore(t, emb, 2)
	if err := s.Build(context.Background(), []Document{{ID: "a", Content: "alpha"}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Setup()

	_, err := s.Get(context.Background(), "question", 0)
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want the embedding error", err)
	}
}
