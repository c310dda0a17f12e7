package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/ryumin/askd/internal/retrieval"
)

// mockBuilder stands in for the corpus refresher: a Rebuild reads the
// tree, builds the store and finalizes it.
type mockBuilder struct {
	calls int
	err   error
	store *mockStore
}

func (m *mockBuilder) Rebuild(ctx context.Context) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if err := m.store.Build(ctx, []retrieval.Document{{ID: "d1", Content: "passage"}}); err != nil {
		return err
	}
	m.store.Setup()
	return nil
}

func TestBootstrap_ColdStart(t *testing.T) {
	cache := &mockStore{}
	corpus := &mockStore{}
	builder := &mockBuilder{store: corpus}

	if err := Bootstrap(context.Background(), cache, corpus, builder); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	// Nothing persisted: the cache stays un-finalized, the corpus is
	// built from disk and finalized.
	if cache.setups != 0 {
		t.Errorf("cache setups = %d, want 0 on first run", cache.setups)
	}
	if builder.calls != 1 {
		t.Errorf("builder called %d times, want 1", builder.calls)
	}
	if len(corpus.builds) != 1 || len(corpus.builds[0]) != 1 {
		t.Fatalf("corpus builds = %v, want one build with one document", corpus.builds)
	}
	if corpus.setups != 1 {
		t.Errorf("corpus setups = %d, want 1", corpus.setups)
	}
}

func TestBootstrap_WarmStart(t *testing.T) {
	cache := &mockStore{available: true}
	corpus := &mockStore{available: true}
	builder := &mockBuilder{store: corpus}

	if err := Bootstrap(context.Background(), cache, corpus, builder); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if cache.setups != 1 {
		t.Errorf("cache setups = %d, want 1", cache.setups)
	}
	if builder.calls != 0 {
		t.Errorf("builder called %d times, want 0 when the corpus is persisted", builder.calls)
	}
	if len(corpus.builds) != 0 {
		t.Errorf("corpus builds = %d, want 0", len(corpus.builds))
	}
	if corpus.setups != 1 {
		t.Errorf("corpus setups = %d, want 1", corpus.setups)
	}
}

func TestBootstrap_CorpusReadFailure(t *testing.T) {
	fail := errors.New("permission denied")
	corpus := &mockStore{}
	builder := &mockBuilder{store: corpus, err: fail}

	err := Bootstrap(context.Background(), &mockStore{}, corpus, builder)
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want the read failure", err)
	}
	if len(corpus.builds) != 0 {
		t.Errorf("corpus builds = %d, want 0 after a read failure", len(corpus.builds))
	}
	if corpus.setups != 0 {
		t.Errorf("corpus setups = %d, want 0 after a read failure", corpus.setups)
	}
}

func TestBootstrap_CacheLoadErrorPropagates(t *testing.T) {
	fail := errors.New("database locked")
	cache := &mockStore{loadErr: fail}
	corpus := &mockStore{}

	err := Bootstrap(context.Background(), cache, corpus, &mockBuilder{store: corpus})
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want the load error", err)
	}
}

func TestBootstrap_BuildErrorPropagates(t *testing.T) {
	fail := errors.New("embedding backend down")
	corpus := &mockStore{buildErr: fail}

	err := Bootstrap(context.Background(), &mockStore{}, corpus, &mockBuilder{store: corpus})
	if !errors.Is(err, fail) {
		t.Fatalf("err = %v, want the build error", err)
	}
	if corpus.setups != 0 {
		t.Errorf("corpus setups = %d, want 0 after a failed build", corpus.setups)
	}
}
